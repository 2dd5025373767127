package product

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"lunetier_back_end/internal/database"
	"lunetier_back_end/internal/models"
	"lunetier_back_end/internal/store"
)

const lowStockThreshold = 5

// InventoryHandler : endpoints admin de gestion de stock
// (réassorts, ajustements manuels, historique et alertes).
type InventoryHandler struct {
	Products  store.ProductStore
	Inventory store.InventoryStore
}

func NewInventoryHandler(products store.ProductStore, inventory store.InventoryStore) *InventoryHandler {
	return &InventoryHandler{Products: products, Inventory: inventory}
}

// AdjustStock — PATCH /api/admin/products/:id/stock
// Delta positif = réassort, négatif = ajustement (casse, inventaire).
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	productID := c.Param("id")

	var input struct {
		Delta  int    `json:"delta" binding:"required"`
		Color  string `json:"color"`
		Reason string `json:"reason"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	ctx := c.Request.Context()

	p, err := h.Products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture produit"})
		return
	}

	var prevStock, newStock int
	color := models.NormalizeColor(input.Color)

	if p.HasVariants() && color != "" {
		v := p.FindVariant(color)
		if v == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Coloris introuvable"})
			return
		}
		if v.Stock+input.Delta < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Le stock ne peut pas devenir négatif"})
			return
		}
		prevStock = v.Stock
		newStock, err = h.Products.AdjustVariantStock(ctx, productID, color, input.Delta)
	} else {
		if p.Stock+input.Delta < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Le stock ne peut pas devenir négatif"})
			return
		}
		prevStock = p.Stock
		newStock, err = h.Products.AdjustFlatStock(ctx, productID, input.Delta)
	}

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur ajustement stock: " + err.Error()})
		return
	}

	movementType := "restock"
	if input.Delta < 0 {
		movementType = "adjustment"
	}

	movement := &models.StockMovement{
		ProductID: productID,
		Color:     color,
		Type:      movementType,
		Quantity:  input.Delta,
		PrevStock: prevStock,
		NewStock:  newStock,
		Reason:    input.Reason,
		UserID:    c.GetString("user_id"),
		CreatedAt: time.Now(),
	}
	if err := h.Inventory.RecordMovement(ctx, movement); err != nil {
		log.Printf("⚠️ Erreur enregistrement mouvement de stock: %v", err)
	}

	h.checkLowStock(c, p, newStock)
	if database.Redis != nil {
		database.Redis.Del(ctx, cacheKeyAll)
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Stock mis à jour",
		"new_stock": newStock,
	})
}

// ListMovements — GET /api/admin/products/:id/movements
func (h *InventoryHandler) ListMovements(c *gin.Context) {
	limit := 50
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}

	movements, err := h.Inventory.ListMovements(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture mouvements"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"movements": movements})
}

// ListAlerts — GET /api/admin/stock-alerts
func (h *InventoryHandler) ListAlerts(c *gin.Context) {
	alerts, err := h.Inventory.ListOpenAlerts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture alertes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// ResolveAlert — PATCH /api/admin/stock-alerts/:id/resolve
func (h *InventoryHandler) ResolveAlert(c *gin.Context) {
	if err := h.Inventory.ResolveAlert(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Alerte introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur résolution alerte"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Alerte résolue"})
}

func (h *InventoryHandler) checkLowStock(c *gin.Context, p *models.Product, newStock int) {
	if newStock > lowStockThreshold {
		return
	}

	alertType := "low_stock"
	if newStock == 0 {
		alertType = "out_of_stock"
	}

	alert := &models.StockAlert{
		ProductID:    p.ID.Hex(),
		ProductName:  p.Name,
		CurrentStock: newStock,
		Threshold:    lowStockThreshold,
		AlertType:    alertType,
		CreatedAt:    time.Now(),
	}
	if err := h.Inventory.InsertAlert(c.Request.Context(), alert); err != nil {
		log.Printf("⚠️ Erreur création alerte stock: %v", err)
	} else {
		log.Printf("🚨 Alerte stock (%s): %s → %d restant(s)", alertType, p.Name, newStock)
	}
}
