package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StockMovement : trace d'un mouvement de stock (commande, réassort, ajustement admin)
type StockMovement struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProductID string             `bson:"product_id" json:"product_id"`
	Color     string             `bson:"color,omitempty" json:"color,omitempty"`
	Type      string             `bson:"type" json:"type"` // "order", "restock", "adjustment"
	Quantity  int                `bson:"quantity" json:"quantity"`
	PrevStock int                `bson:"prev_stock" json:"prev_stock"`
	NewStock  int                `bson:"new_stock" json:"new_stock"`
	Reason    string             `bson:"reason" json:"reason"`
	UserID    string             `bson:"user_id,omitempty" json:"user_id,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// StockAlert : alerte de stock faible ou de rupture
type StockAlert struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProductID    string             `bson:"product_id" json:"product_id"`
	ProductName  string             `bson:"product_name" json:"product_name"`
	CurrentStock int                `bson:"current_stock" json:"current_stock"`
	Threshold    int                `bson:"threshold" json:"threshold"`
	AlertType    string             `bson:"alert_type" json:"alert_type"` // "low_stock", "out_of_stock"
	IsResolved   bool               `bson:"is_resolved" json:"is_resolved"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}
