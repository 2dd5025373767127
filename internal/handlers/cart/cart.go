package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lunetier_back_end/internal/database"
	"lunetier_back_end/internal/models"
	"lunetier_back_end/internal/services/pricing"
	"lunetier_back_end/internal/store"
)

const cartTTL = 30 * 24 * time.Hour

// Handler : panier côté serveur, miroir Redis par utilisateur.
type Handler struct {
	Products   store.ProductStore
	Promotions store.PromotionStore
}

func NewHandler(products store.ProductStore, promotions store.PromotionStore) *Handler {
	return &Handler{Products: products, Promotions: promotions}
}

func cartKey(userID string) string {
	return "cart:" + userID
}

func loadCart(ctx context.Context, userID string) []models.CartItem {
	data, err := database.Redis.Get(ctx, cartKey(userID)).Result()
	if err != nil || data == "" {
		return nil
	}
	var cart []models.CartItem
	if err := json.Unmarshal([]byte(data), &cart); err != nil {
		return nil
	}
	return cart
}

func saveCart(ctx context.Context, userID string, cart []models.CartItem) {
	jsonData, _ := json.Marshal(cart)
	database.Redis.Set(ctx, cartKey(userID), jsonData, cartTTL)
}

// Get — GET /api/cart
func (h *Handler) Get(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}

	cart := loadCart(c.Request.Context(), userID)
	if cart == nil {
		cart = []models.CartItem{} // panier vide
	}

	full := models.Cart{UserID: userID, Items: cart}
	c.JSON(http.StatusOK, gin.H{
		"items":    cart,
		"subtotal": full.Subtotal(),
	})
}

//
// 🟢 POST /api/cart/add
//
func (h *Handler) Add(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}

	var input struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
		Color     string `json:"color"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	if input.Quantity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantité invalide"})
		return
	}

	ctx := c.Request.Context()

	product, err := h.Products.FindByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture produit"})
		return
	}

	if product.Status != models.StatusActive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Produit indisponible"})
		return
	}

	color := models.NormalizeColor(input.Color)
	imageURL := ""

	if color != "" {
		v := product.FindVariant(color)
		if v == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Coloris introuvable"})
			return
		}
		if len(v.Images) > 0 {
			imageURL = v.Images[0]
		}
	}
	// 🖼️ Première image produit pour l'aperçu panier
	if imageURL == "" && len(product.ImageURLs) > 0 {
		imageURL = product.ImageURLs[0]
	}

	promo := h.activePromotion(ctx)

	item := models.CartItem{
		ProductID: input.ProductID,
		Name:      product.Name,
		Price:     pricing.EffectivePrice(product, promo),
		Quantity:  input.Quantity,
		Color:     color,
		ImageURL:  imageURL,
	}

	cart := loadCart(ctx, userID)

	// 🔁 Met à jour ou ajoute l'item (même produit + même coloris)
	found := false
	for i := range cart {
		if cart[i].ProductID == item.ProductID && cart[i].Color == item.Color {
			cart[i].Quantity += item.Quantity
			found = true
			break
		}
	}
	if !found {
		cart = append(cart, item)
	}

	saveCart(ctx, userID, cart)

	c.JSON(http.StatusOK, gin.H{
		"message": "Produit ajouté au panier",
		"items":   cart,
	})
}

//
// ❌ DELETE /api/cart/:productId
//
func (h *Handler) Remove(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}

	productID := c.Param("productId")
	color := models.NormalizeColor(c.Query("color"))
	ctx := c.Request.Context()

	cart := loadCart(ctx, userID)
	filtered := cart[:0]
	for _, item := range cart {
		if item.ProductID == productID && (color == "" || item.Color == color) {
			continue
		}
		filtered = append(filtered, item)
	}

	saveCart(ctx, userID, filtered)

	c.JSON(http.StatusOK, gin.H{
		"message": "Produit retiré du panier",
		"items":   filtered,
	})
}

// Clear — DELETE /api/cart
func (h *Handler) Clear(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}

	database.Redis.Del(c.Request.Context(), cartKey(userID))

	c.JSON(http.StatusOK, gin.H{"message": "Panier vidé"})
}

func (h *Handler) activePromotion(ctx context.Context) *models.Promotion {
	if h.Promotions == nil {
		return nil
	}
	promos, err := h.Promotions.ListCurrent(ctx, time.Now())
	if err != nil {
		return nil
	}
	return pricing.ResolveActive(promos, time.Now())
}
