package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProductType string

const (
	TypeGlasses    ProductType = "glasses"
	TypeSunglasses ProductType = "sunglasses"
	TypeContacts   ProductType = "contacts"
	TypeAccessory  ProductType = "accessory"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Catégories tarifaires utilisées par les promotions
const (
	CategorySignature = "signature"
	CategoryEssential = "essential"
)

// FrameColorVariant : stock et visuels par coloris de monture
// (lunettes et solaires uniquement)
type FrameColorVariant struct {
	Color     string   `bson:"color" json:"color"`
	LensColor string   `bson:"lens_color" json:"lens_color"`
	Images    []string `bson:"images" json:"images"`
	Stock     int      `bson:"stock" json:"stock"`
}

type Product struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name            string              `bson:"name" json:"name"`
	Slug            string              `bson:"slug" json:"slug"`
	Description     string              `bson:"description" json:"description"`
	Type            ProductType         `bson:"type" json:"type"`
	Category        string              `bson:"category" json:"category"`
	Price           float64             `bson:"price" json:"price"`
	DiscountedPrice *float64            `bson:"discounted_price,omitempty" json:"discounted_price,omitempty"`
	Status          string              `bson:"status" json:"status"`
	Stock           int                 `bson:"stock" json:"stock"`
	Variants        []FrameColorVariant `bson:"frame_color_variants,omitempty" json:"frame_color_variants,omitempty"`
	ImageURLs       []string            `bson:"image_urls" json:"image_urls"`
	Tags            []string            `bson:"tags" json:"tags"`
	CreatedAt       time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `bson:"updated_at" json:"updated_at"`
}

// HasVariants : les montures gèrent leur stock par coloris,
// lentilles et accessoires utilisent le compteur plat
func (p *Product) HasVariants() bool {
	return p.Type == TypeGlasses || p.Type == TypeSunglasses
}

// AvailableStock retourne le stock pertinent selon le type de produit
func (p *Product) AvailableStock() int {
	if !p.HasVariants() {
		return p.Stock
	}
	total := 0
	for _, v := range p.Variants {
		total += v.Stock
	}
	return total
}

// FindVariant cherche un coloris par nom normalisé
func (p *Product) FindVariant(color string) *FrameColorVariant {
	key := NormalizeColor(color)
	for i := range p.Variants {
		if NormalizeColor(p.Variants[i].Color) == key {
			return &p.Variants[i]
		}
	}
	return nil
}

// IsPurchasable : actif ET stock pertinent > 0
func (p *Product) IsPurchasable() bool {
	return p.Status == StatusActive && p.AvailableStock() > 0
}

// NormalizeColor : forme canonique d'un nom de coloris (minuscules + trim).
// Appliquée partout (panier, checkout, décrément) pour éviter les
// mismatchs silencieux entre vérification et décrément.
func NormalizeColor(color string) string {
	return strings.ToLower(strings.TrimSpace(color))
}
