package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lunetier_back_end/internal/models"
)

func promoWindow(from, to time.Time, signaturePrice, buyTwo float64) models.Promotion {
	return models.Promotion{
		OfferName: "Offre test",
		ValidFrom: from,
		ValidTo:   to,
		IsActive:  true,
		Signature: models.CategoryPricing{DiscountedPrice: signaturePrice, BuyTwoPrice: buyTwo},
	}
}

func TestResolveActivePicksLatestStarted(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	old := promoWindow(now.Add(-10*24*time.Hour), now.Add(24*time.Hour), 100, 0)
	recent := promoWindow(now.Add(-1*24*time.Hour), now.Add(24*time.Hour), 80, 0)

	got := ResolveActive([]models.Promotion{old, recent}, now)
	if assert.NotNil(t, got) {
		assert.Equal(t, 80.0, got.Signature.DiscountedPrice)
	}
}

func TestResolveActiveIgnoresInactiveAndExpired(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	expired := promoWindow(now.Add(-48*time.Hour), now.Add(-24*time.Hour), 50, 0)
	disabled := promoWindow(now.Add(-time.Hour), now.Add(time.Hour), 60, 0)
	disabled.IsActive = false
	future := promoWindow(now.Add(time.Hour), now.Add(48*time.Hour), 70, 0)

	assert.Nil(t, ResolveActive([]models.Promotion{expired, disabled, future}, now))
}

func TestEffectivePricePrecedence(t *testing.T) {
	discounted := 120.0
	p := models.Product{Category: models.CategorySignature, Price: 150, DiscountedPrice: &discounted}

	// Sans promotion : le prix barré du produit gagne
	assert.Equal(t, 120.0, EffectivePrice(&p, nil))

	// La promotion de catégorie prime sur tout
	promo := promoWindow(time.Now().Add(-time.Hour), time.Now().Add(time.Hour), 99, 0)
	assert.Equal(t, 99.0, EffectivePrice(&p, &promo))

	// Promotion sans tarif pour cette catégorie : retour au prix barré
	other := promo
	other.Signature = models.CategoryPricing{}
	assert.Equal(t, 120.0, EffectivePrice(&p, &other))

	// Ni prix barré ni promotion : prix catalogue
	bare := models.Product{Category: models.CategoryEssential, Price: 150}
	assert.Equal(t, 150.0, EffectivePrice(&bare, nil))
}

func TestLineTotalBuyTwoPairs(t *testing.T) {
	p := models.Product{Category: models.CategorySignature, Price: 150}
	promo := promoWindow(time.Now().Add(-time.Hour), time.Now().Add(time.Hour), 100, 160)

	assert.Equal(t, 100.0, LineTotal(&p, &promo, 1))
	assert.Equal(t, 160.0, LineTotal(&p, &promo, 2))
	// Paire complète + reliquat au tarif unitaire promo
	assert.Equal(t, 260.0, LineTotal(&p, &promo, 3))
	assert.Equal(t, 320.0, LineTotal(&p, &promo, 4))

	// Pas de tarif deuxième paire : simple multiplication
	noBuyTwo := promoWindow(time.Now().Add(-time.Hour), time.Now().Add(time.Hour), 100, 0)
	assert.Equal(t, 200.0, LineTotal(&p, &noBuyTwo, 2))
}

func TestPriceRange(t *testing.T) {
	products := []models.Product{
		{Category: models.CategoryEssential, Price: 95},
		{Category: models.CategorySignature, Price: 180},
		{Category: models.CategoryEssential, Price: 140},
	}

	r := PriceRange(products, nil)
	assert.Equal(t, 95.0, r.Min)
	assert.Equal(t, 180.0, r.Max)

	// La promotion resserre la fourchette côté signature
	promo := promoWindow(time.Now().Add(-time.Hour), time.Now().Add(time.Hour), 120, 0)
	r = PriceRange(products, &promo)
	assert.Equal(t, 95.0, r.Min)
	assert.Equal(t, 140.0, r.Max)
}
