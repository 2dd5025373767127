package payement

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"

	"lunetier_back_end/internal/database"
	"lunetier_back_end/internal/events"
	"lunetier_back_end/internal/models"
	"lunetier_back_end/internal/store"
)

// StripeWebhook — POST /api/webhook
// Les no-ops (rejeux, commandes inconnues) sont acquittés en 2xx ; une
// erreur de réconciliation répond 5xx pour que Stripe rejoue la livraison.
func (h *Handler) StripeWebhook(c *gin.Context) {
	const MaxBodyBytes = int64(65536)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

	payload, err := c.GetRawData()
	if err != nil {
		log.Println("❌ Lecture payload échouée:", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Échec lecture body"})
		return
	}

	secret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	var event stripe.Event

	if secret == "" {
		log.Println("⚠️ Pas de STRIPE_WEBHOOK_SECRET — mode test")
		if err := json.Unmarshal(payload, &event); err != nil {
			log.Println("❌ JSON invalide:", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "JSON invalide"})
			return
		}
	} else {
		event, err = webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), secret)
		if err != nil {
			log.Println("❌ Signature Stripe invalide:", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Signature invalide"})
			return
		}
	}

	log.Printf("📥 Événement Stripe reçu : %s", event.Type)
	if err := h.handleStripeEvent(c.Request.Context(), event); err != nil {
		// pas d'acquittement : Stripe rejouera l'événement
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Réconciliation échouée"})
		return
	}

	c.Status(http.StatusOK)
}

func (h *Handler) handleStripeEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			log.Println("❌ Erreur décodage CheckoutSession:", err)
			return nil
		}

		info := models.PaymentInfo{PaidAt: time.Now()}
		if session.PaymentIntent != nil {
			info.PaymentIntentID = session.PaymentIntent.ID
		}

		if err := h.Reconciler.HandleSessionCompleted(ctx, session.ID, info); err != nil {
			log.Printf("❌ Erreur réconciliation session %s: %v", session.ID, err)
			return err
		}
		h.publishOrderEvent(ctx, "order.paid", session.ID)

	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			log.Println("❌ Erreur décodage PaymentIntent:", err)
			return nil
		}

		orderNumber := pi.Metadata["order_number"]
		if orderNumber == "" {
			log.Println("⚠️ PaymentIntent sans order_number, ignoré")
			return nil
		}

		info := models.PaymentInfo{
			PaymentIntentID: pi.ID,
			CardLast4:       cardLast4(&pi),
			PaidAt:          time.Now(),
		}

		if err := h.Reconciler.HandleIntentSucceeded(ctx, orderNumber, info); err != nil {
			log.Printf("❌ Erreur réconciliation commande %s: %v", orderNumber, err)
			return err
		}
		h.publishOrderEvent(ctx, "order.paid", orderNumber)

	case "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			log.Println("❌ Erreur décodage PaymentIntent:", err)
			return nil
		}

		orderNumber := pi.Metadata["order_number"]
		if orderNumber == "" {
			log.Println("⚠️ PaymentIntent sans order_number, ignoré")
			return nil
		}

		reason := "paiement refusé"
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			reason = pi.LastPaymentError.Msg
		}

		if err := h.Reconciler.HandlePaymentFailed(ctx, orderNumber, reason); err != nil {
			log.Printf("❌ Erreur enregistrement échec %s: %v", orderNumber, err)
			return err
		}
		h.publishOrderEvent(ctx, "order.failed", orderNumber)

	default:
		log.Printf("ℹ️ Événement ignoré : %s", event.Type)
	}
	return nil
}

// GetOrderStatus — GET /api/order-status?session_id=
// Relit la session chez Stripe pour rattraper un webhook perdu :
// la page de confirmation n'attend pas la livraison de l'événement.
func (h *Handler) GetOrderStatus(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paramètre 'session_id' manquant"})
		return
	}

	order, err := h.Reconciler.PollSession(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
			return
		}
		log.Printf("❌ Erreur lecture statut session %s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_number":    order.OrderNumber,
		"payment_status":  order.PaymentStatus,
		"delivery_status": order.DeliveryStatus,
		"total_amount":    order.TotalAmount,
		"items":           order.Items,
	})
}

func (h *Handler) publishOrderEvent(ctx context.Context, eventType, ref string) {
	if h.Bus == nil {
		return
	}
	h.Bus.PublishJSON(ctx, database.Redis, events.TopicOrders, eventType, gin.H{"ref": ref})
}

func cardLast4(pi *stripe.PaymentIntent) string {
	if pi.LatestCharge == nil || pi.LatestCharge.PaymentMethodDetails == nil {
		return ""
	}
	if card := pi.LatestCharge.PaymentMethodDetails.Card; card != nil {
		return card.Last4
	}
	return ""
}
