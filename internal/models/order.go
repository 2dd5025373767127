package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type DeliveryStatus string

const (
	DeliveryOrderPlaced    DeliveryStatus = "ORDER_PLACED"
	DeliveryOrderConfirmed DeliveryStatus = "ORDER_CONFIRMED"
	DeliveryProcessing     DeliveryStatus = "PROCESSING"
	DeliveryDispatched     DeliveryStatus = "DISPATCHED"
	DeliveryInTransit      DeliveryStatus = "IN_TRANSIT"
	DeliveryOutForDelivery DeliveryStatus = "OUT_FOR_DELIVERY"
	DeliveryDelivered      DeliveryStatus = "DELIVERED"
	DeliveryCancelled      DeliveryStatus = "CANCELLED"
	DeliveryReturned       DeliveryStatus = "RETURNED"
	DeliveryDelayed        DeliveryStatus = "DELAYED"
)

// Progression normale de livraison, dans l'ordre
var deliveryChain = map[DeliveryStatus]int{
	DeliveryOrderPlaced:    0,
	DeliveryOrderConfirmed: 1,
	DeliveryProcessing:     2,
	DeliveryDispatched:     3,
	DeliveryInTransit:      4,
	DeliveryOutForDelivery: 5,
	DeliveryDelivered:      6,
}

// IsTerminal : aucun état n'est atteignable depuis un état terminal
func (s DeliveryStatus) IsTerminal() bool {
	return s == DeliveryDelivered || s == DeliveryCancelled || s == DeliveryReturned
}

// CanTransitionTo valide une transition de statut de livraison.
// Avancée dans la chaîne normale, ou bascule vers CANCELLED / RETURNED /
// DELAYED depuis n'importe quel état non terminal. DELAYED peut reprendre
// la chaîne où l'admin le décide.
func (s DeliveryStatus) CanTransitionTo(next DeliveryStatus) bool {
	if s == next || s.IsTerminal() {
		return false
	}
	switch next {
	case DeliveryCancelled, DeliveryReturned, DeliveryDelayed:
		return true
	}
	ni, ok := deliveryChain[next]
	if !ok {
		return false
	}
	if s == DeliveryDelayed {
		return true
	}
	ci, ok := deliveryChain[s]
	if !ok {
		return false
	}
	return ni > ci
}

// OrderItem : snapshot d'une ligne au moment de la commande.
// Le prix et le nom ne sont jamais re-dérivés du catalogue vivant.
type OrderItem struct {
	ProductID string  `bson:"product_id" json:"product_id"`
	Name      string  `bson:"name" json:"name"`
	Price     float64 `bson:"price" json:"price"`
	Quantity  int     `bson:"quantity" json:"quantity"`
	Color     string  `bson:"color,omitempty" json:"color,omitempty"`
	ImageURL  string  `bson:"image_url,omitempty" json:"image_url,omitempty"`
}

type ShippingAddress struct {
	Name       string `bson:"name" json:"name"`
	Street     string `bson:"street" json:"street"`
	City       string `bson:"city" json:"city"`
	PostalCode string `bson:"postal_code" json:"postal_code"`
	Country    string `bson:"country" json:"country"`
	Phone      string `bson:"phone,omitempty" json:"phone,omitempty"`
}

type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderNumber     string             `bson:"order_number" json:"order_number"`
	UserID          string             `bson:"user_id,omitempty" json:"user_id,omitempty"` // vide pour les invités
	Items           []OrderItem        `bson:"items" json:"items"`
	TotalAmount     float64            `bson:"total_amount" json:"total_amount"`
	PaymentStatus   PaymentStatus      `bson:"payment_status" json:"payment_status"`
	DeliveryStatus  DeliveryStatus     `bson:"delivery_status" json:"delivery_status"`
	StripeSessionID string             `bson:"stripe_session_id" json:"stripe_session_id"`
	PaymentIntentID string             `bson:"payment_intent_id,omitempty" json:"payment_intent_id,omitempty"`
	CardLast4       string             `bson:"card_last4,omitempty" json:"card_last4,omitempty"`
	FailureReason   string             `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`
	StockReduced    bool               `bson:"stock_reduced" json:"stock_reduced"`
	CustomerEmail   string             `bson:"customer_email" json:"customer_email"`
	ShippingAddress ShippingAddress    `bson:"shipping_address" json:"shipping_address"`
	PaidAt          *time.Time         `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}

// PaymentInfo : métadonnées du prestataire enregistrées au passage en "paid"
type PaymentInfo struct {
	PaymentIntentID string
	CardLast4       string
	PaidAt          time.Time
}
