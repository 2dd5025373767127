package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CategoryPricing : tarifs promotionnels d'une catégorie
type CategoryPricing struct {
	OriginalPrice   float64 `bson:"original_price" json:"original_price"`
	DiscountedPrice float64 `bson:"discounted_price" json:"discounted_price"`
	BuyTwoPrice     float64 `bson:"buy_two_price" json:"buy_two_price"`
}

type Promotion struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OfferName string             `bson:"offer_name" json:"offer_name"`
	ValidFrom time.Time          `bson:"valid_from" json:"valid_from"`
	ValidTo   time.Time          `bson:"valid_to" json:"valid_to"`
	Signature CategoryPricing    `bson:"signature" json:"signature"`
	Essential CategoryPricing    `bson:"essential" json:"essential"`
	IsActive  bool               `bson:"is_active" json:"is_active"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// IsCurrent : active pour le pricing seulement si le flag est levé
// ET que l'instant est dans la fenêtre de validité
func (p *Promotion) IsCurrent(now time.Time) bool {
	return p.IsActive && !now.Before(p.ValidFrom) && !now.After(p.ValidTo)
}

// PricingFor retourne les tarifs de la catégorie demandée
func (p *Promotion) PricingFor(category string) *CategoryPricing {
	switch category {
	case CategorySignature:
		return &p.Signature
	case CategoryEssential:
		return &p.Essential
	}
	return nil
}
