package payment

import (
	"context"
	"log"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/checkout/session"
	"github.com/stripe/stripe-go/v83/refund"
)

// StripeProvider : implémentation Stripe (Checkout Sessions hébergées)
type StripeProvider struct{}

func NewStripeProvider() *StripeProvider {
	return &StripeProvider{}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, params CreateSessionParams) (*Session, error) {
	var lineItems []*stripe.CheckoutSessionLineItemParams
	for _, item := range params.LineItems {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(item.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String("eur"),
				UnitAmount: stripe.Int64(item.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		})
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
		LineItems:  lineItems,
		Metadata:      map[string]string{"order_number": params.OrderNumber},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{"order_number": params.OrderNumber},
		},
	}
	if params.CustomerEmail != "" {
		sessionParams.CustomerEmail = stripe.String(params.CustomerEmail)
	}
	sessionParams.Context = ctx

	s, err := session.New(sessionParams)
	if err != nil {
		log.Printf("❌ Erreur Stripe création session: %v", err)
		return nil, err
	}

	log.Printf("💳 Session checkout créée: %s pour %s", s.ID, params.CustomerEmail)
	return &Session{ID: s.ID, URL: s.URL}, nil
}

func (p *StripeProvider) RetrieveSession(ctx context.Context, sessionID string) (*SessionStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent.latest_charge")

	s, err := session.Get(sessionID, params)
	if err != nil {
		return nil, err
	}

	status := &SessionStatus{
		Paid: s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}
	if s.PaymentIntent != nil {
		status.PaymentIntentID = s.PaymentIntent.ID
		if charge := s.PaymentIntent.LatestCharge; charge != nil &&
			charge.PaymentMethodDetails != nil && charge.PaymentMethodDetails.Card != nil {
			status.CardLast4 = charge.PaymentMethodDetails.Card.Last4
		}
	}
	return status, nil
}

func (p *StripeProvider) Refund(ctx context.Context, paymentIntentID string) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.Context = ctx

	r, err := refund.New(params)
	if err != nil {
		log.Printf("❌ Erreur Stripe remboursement %s: %v", paymentIntentID, err)
		return err
	}
	log.Printf("💰 Remboursement Stripe créé: %s", r.ID)
	return nil
}
