package payement

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"lunetier_back_end/internal/models"
	"lunetier_back_end/internal/payment"
	"lunetier_back_end/internal/store"
)

// RefundOrder — POST /api/admin/orders/:orderNumber/refund
// Rembourse le paiement chez Stripe puis passe la commande en "refunded".
// Le stock n'est pas réincrémenté automatiquement : les montures retournées
// repassent par un contrôle qualité avant réassort.
func (h *Handler) RefundOrder(provider payment.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderNumber := c.Param("orderNumber")

		order, err := h.Orders.FindByNumber(c.Request.Context(), orderNumber)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture commande"})
			return
		}

		if order.PaymentStatus != models.PaymentPaid {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Seule une commande payée peut être remboursée"})
			return
		}

		if order.PaymentIntentID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Commande sans paiement associé"})
			return
		}

		if err := provider.Refund(c.Request.Context(), order.PaymentIntentID); err != nil {
			log.Printf("❌ Erreur remboursement Stripe %s: %v", orderNumber, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur remboursement: " + err.Error()})
			return
		}

		applied, err := h.Orders.MarkRefunded(c.Request.Context(), order.ID.Hex())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour commande"})
			return
		}
		if !applied {
			// Remboursé chez Stripe mais déjà marqué ici : rien à refaire
			log.Printf("🔁 Commande %s déjà remboursée", orderNumber)
		}

		log.Printf("💰 Commande %s remboursée (%.2f€)", orderNumber, order.TotalAmount)
		h.publishOrderEvent(c.Request.Context(), "order.refunded", orderNumber)

		c.JSON(http.StatusOK, gin.H{"message": "Commande remboursée"})
	}
}
