package admin

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"lunetier_back_end/internal/database"
	"lunetier_back_end/internal/events"
	"lunetier_back_end/internal/models"
	"lunetier_back_end/internal/store"
	"lunetier_back_end/internal/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Autoriser toutes les origines (à ajuster en production)
		return true
	},
}

// OrdersHandler : back-office commandes (liste, suivi livraison, flux temps réel).
type OrdersHandler struct {
	Orders store.OrderStore
	Bus    *events.Bus
}

func NewOrdersHandler(orders store.OrderStore, bus *events.Bus) *OrdersHandler {
	return &OrdersHandler{Orders: orders, Bus: bus}
}

// List — GET /api/admin/orders
func (h *OrdersHandler) List(c *gin.Context) {
	orders, err := h.Orders.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture commandes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// Get — GET /api/admin/orders/:orderNumber
func (h *OrdersHandler) Get(c *gin.Context) {
	order, err := h.Orders.FindByNumber(c.Request.Context(), c.Param("orderNumber"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture commande"})
		return
	}

	c.JSON(http.StatusOK, order)
}

// UpdateDelivery — PATCH /api/admin/orders/:orderNumber/delivery
// Applique la machine à états de livraison, notifie le client par email
// et pousse l'événement vers le flux admin.
func (h *OrdersHandler) UpdateDelivery(c *gin.Context) {
	orderNumber := c.Param("orderNumber")

	var input struct {
		Status models.DeliveryStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Champ 'status' manquant"})
		return
	}

	ctx := c.Request.Context()

	order, err := h.Orders.FindByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture commande"})
		return
	}

	if !order.DeliveryStatus.CanTransitionTo(input.Status) {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Transition de livraison invalide",
			"from":  order.DeliveryStatus,
			"to":    input.Status,
		})
		return
	}

	if err := h.Orders.SetDeliveryStatus(ctx, order.ID.Hex(), input.Status); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour livraison"})
		return
	}

	log.Printf("🚚 Commande %s : %s → %s", orderNumber, order.DeliveryStatus, input.Status)

	// 📧 Notification client, jamais bloquante
	go func(o models.Order, status models.DeliveryStatus) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := utils.SendDeliveryStatusEmail(ctx, &o, status); err != nil {
			log.Printf("⚠️ Email statut non envoyé pour %s: %v", o.OrderNumber, err)
		}
	}(*order, input.Status)

	if h.Bus != nil {
		h.Bus.PublishJSON(ctx, database.Redis, events.TopicOrders, "order.delivery", gin.H{
			"order_number": orderNumber,
			"status":       input.Status,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Statut de livraison mis à jour",
		"status":  input.Status,
	})
}

// Feed — GET /api/admin/orders/feed
// Flux WebSocket des événements commandes (paiements, livraisons, remboursements).
func (h *OrdersHandler) Feed(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ Erreur upgrade WebSocket: %v", err)
		return
	}
	defer conn.Close()

	ch, unsubscribe := h.Bus.Subscribe(events.TopicOrders)
	defer unsubscribe()

	// Message de connexion
	conn.WriteJSON(map[string]interface{}{
		"type":    "connected",
		"message": "Flux commandes activé",
	})

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(e); err != nil {
				log.Printf("🔌 Client feed déconnecté: %v", err)
				return
			}
		}
	}
}
