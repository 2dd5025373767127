package payment

import "context"

// LineItem : une ligne envoyée au prestataire de paiement (montants en centimes)
type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

type CreateSessionParams struct {
	LineItems     []LineItem
	SuccessURL    string // contient le placeholder de session résolu par le prestataire
	CancelURL     string
	CustomerEmail string
	OrderNumber   string // embarqué dans les métadonnées du payment intent
}

type Session struct {
	ID  string
	URL string
}

type SessionStatus struct {
	Paid            bool
	PaymentIntentID string
	CardLast4       string
}

// Provider abstrait le prestataire de paiement : création de session hébergée,
// relecture de session (réconciliation par polling) et remboursement.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, params CreateSessionParams) (*Session, error)
	RetrieveSession(ctx context.Context, sessionID string) (*SessionStatus, error)
	Refund(ctx context.Context, paymentIntentID string) error
}
