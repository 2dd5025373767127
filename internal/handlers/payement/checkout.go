package payement

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"lunetier_back_end/internal/database"
	"lunetier_back_end/internal/events"
	"lunetier_back_end/internal/models"
	"lunetier_back_end/internal/services/checkout"
	"lunetier_back_end/internal/store"
)

// Handler regroupe les endpoints de paiement (checkout, webhook, statut, remboursement).
type Handler struct {
	Checkout   *checkout.Service
	Reconciler *checkout.Reconciler
	Orders     store.OrderStore
	Bus        *events.Bus
}

func NewHandler(svc *checkout.Service, rec *checkout.Reconciler, orders store.OrderStore, bus *events.Bus) *Handler {
	return &Handler{Checkout: svc, Reconciler: rec, Orders: orders, Bus: bus}
}

// CreateCheckoutSession — POST /api/checkout-session
// Valide le panier, crée la session Stripe hébergée et enregistre la
// commande en attente de paiement.
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	var req struct {
		Items           []models.CartItem      `json:"items"`
		SuccessURL      string                 `json:"success_url"`
		CancelURL       string                 `json:"cancel_url"`
		CustomerEmail   string                 `json:"customer_email"`
		ShippingAddress models.ShippingAddress `json:"shipping_address"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	userID := c.GetString("user_id")
	email := c.GetString("email")

	// Checkout invité : email fourni dans le body à défaut de token
	if email == "" {
		email = strings.TrimSpace(req.CustomerEmail)
	}

	ctx := c.Request.Context()

	// 🛒 Panier Redis en secours si le body n'en fournit pas
	if len(req.Items) == 0 && userID != "" && database.Redis != nil {
		if data, err := database.Redis.Get(ctx, "cart:"+userID).Result(); err == nil && data != "" {
			_ = json.Unmarshal([]byte(data), &req.Items)
		}
	}

	frontend := os.Getenv("FRONTEND_URL")
	if req.SuccessURL == "" {
		req.SuccessURL = frontend + "/commande/confirmation"
	}
	if req.CancelURL == "" {
		req.CancelURL = frontend + "/panier"
	}

	result, err := h.Checkout.CreateSession(ctx, checkout.Request{
		Items:           req.Items,
		SuccessURL:      req.SuccessURL,
		CancelURL:       req.CancelURL,
		CustomerEmail:   email,
		UserID:          userID,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		var insufficient *checkout.InsufficientStockError
		switch {
		case errors.Is(err, checkout.ErrEmptyCart):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Panier vide"})
		case errors.As(err, &insufficient):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "Stock insuffisant",
				"product":   insufficient.ProductName,
				"color":     insufficient.Color,
				"available": insufficient.Available,
				"requested": insufficient.Requested,
			})
		case checkout.IsValidationError(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			log.Printf("❌ Erreur création session checkout: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	log.Printf("💳 Session checkout créée : %s (commande %s)", result.SessionID, result.OrderNumber)

	c.JSON(http.StatusOK, gin.H{
		"session_id":   result.SessionID,
		"redirect_url": result.RedirectURL,
		"order_number": result.OrderNumber,
	})
}
