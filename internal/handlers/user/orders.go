package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lunetier_back_end/internal/store"
)

// OrdersHandler : historique de commandes du client connecté.
type OrdersHandler struct {
	Orders store.OrderStore
}

func NewOrdersHandler(orders store.OrderStore) *OrdersHandler {
	return &OrdersHandler{Orders: orders}
}

// List — GET /api/orders
func (h *OrdersHandler) List(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}

	orders, err := h.Orders.ListByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture commandes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}
