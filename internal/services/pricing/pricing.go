package pricing

import (
	"time"

	"lunetier_back_end/internal/models"
)

// ResolveActive choisit la promotion applicable parmi les promotions
// courantes : la plus récemment démarrée gagne, jamais de cumul.
func ResolveActive(promos []models.Promotion, now time.Time) *models.Promotion {
	var best *models.Promotion
	for i := range promos {
		p := &promos[i]
		if !p.IsCurrent(now) {
			continue
		}
		if best == nil || p.ValidFrom.After(best.ValidFrom) {
			best = p
		}
	}
	return best
}

// EffectivePrice : prix d'affichage et de snapshot d'un produit.
// Priorité au tarif promotionnel de sa catégorie, sinon au prix barré du
// produit, sinon au prix catalogue.
func EffectivePrice(p *models.Product, promo *models.Promotion) float64 {
	price := p.Price
	if p.DiscountedPrice != nil && *p.DiscountedPrice > 0 {
		price = *p.DiscountedPrice
	}
	if promo != nil {
		if cp := promo.PricingFor(p.Category); cp != nil && cp.DiscountedPrice > 0 {
			price = cp.DiscountedPrice
		}
	}
	return price
}

// LineTotal applique le tarif "deuxième paire" par paires complètes,
// le reliquat au tarif promotionnel unitaire.
func LineTotal(p *models.Product, promo *models.Promotion, quantity int) float64 {
	unit := EffectivePrice(p, promo)
	if promo == nil || quantity < 2 {
		return unit * float64(quantity)
	}
	cp := promo.PricingFor(p.Category)
	if cp == nil || cp.BuyTwoPrice <= 0 {
		return unit * float64(quantity)
	}
	pairs := quantity / 2
	rest := quantity % 2
	return float64(pairs)*cp.BuyTwoPrice + float64(rest)*unit
}

type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// PriceRange agrège la fourchette de prix effectifs d'une liste de produits
func PriceRange(products []models.Product, promo *models.Promotion) Range {
	var r Range
	for i := range products {
		price := EffectivePrice(&products[i], promo)
		if i == 0 {
			r.Min, r.Max = price, price
			continue
		}
		if price < r.Min {
			r.Min = price
		}
		if price > r.Max {
			r.Max = price
		}
	}
	return r
}
