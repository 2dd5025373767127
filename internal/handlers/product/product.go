package product

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lunetier_back_end/internal/database"
	"lunetier_back_end/internal/models"
	"lunetier_back_end/internal/services/pricing"
	"lunetier_back_end/internal/services/search"
	"lunetier_back_end/internal/store"
)

const cacheKeyAll = "products:all"

// Handler regroupe les endpoints produits (catalogue public + admin).
type Handler struct {
	Products   store.ProductStore
	Promotions store.PromotionStore
}

func NewHandler(products store.ProductStore, promotions store.PromotionStore) *Handler {
	return &Handler{Products: products, Promotions: promotions}
}

func (h *Handler) Create(c *gin.Context) {
	var p models.Product

	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if p.Name == "" || p.Slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Les champs 'name' et 'slug' sont obligatoires"})
		return
	}

	if p.Price < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prix invalide"})
		return
	}

	if p.Status == "" {
		p.Status = models.StatusActive
	}

	// Normalise les coloris des variantes dès l'entrée
	for i := range p.Variants {
		p.Variants[i].Color = models.NormalizeColor(p.Variants[i].Color)
	}

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := h.Products.Insert(c.Request.Context(), &p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création produit: " + err.Error()})
		return
	}

	// 🔄 Indexation Elasticsearch
	go search.IndexProduct(p)

	h.invalidateCache(c.Request.Context())

	c.JSON(http.StatusCreated, p)
}

func (h *Handler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := store.ProductFilter{
		Type:   models.ProductType(c.Query("type")),
		Status: models.StatusActive,
	}

	// L'admin peut demander tous les statuts
	if c.Query("all") == "true" {
		filter.Status = ""
	}

	// ✅ Vérifie le cache Redis (catalogue public uniquement)
	cacheable := filter.Type == "" && filter.Status == models.StatusActive
	if cacheable && database.Redis != nil {
		if val, err := database.Redis.Get(ctx, cacheKeyAll).Result(); err == nil && val != "" {
			var cached gin.H
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				c.JSON(http.StatusOK, cached)
				return
			}
		}
	}

	products, err := h.Products.List(ctx, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture produits: " + err.Error()})
		return
	}

	promo := h.activePromotion(ctx)
	payload := gin.H{
		"products":    withEffectivePrices(products, promo),
		"price_range": pricing.PriceRange(products, promo),
	}

	// ✅ Met en cache
	if cacheable && database.Redis != nil {
		if data, err := json.Marshal(payload); err == nil {
			database.Redis.Set(ctx, cacheKeyAll, data, time.Hour)
		}
	}

	c.JSON(http.StatusOK, payload)
}

func (h *Handler) GetBySlug(c *gin.Context) {
	ctx := c.Request.Context()

	p, err := h.Products.FindBySlug(ctx, c.Param("slug"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture produit"})
		return
	}

	promo := h.activePromotion(ctx)
	c.JSON(http.StatusOK, productView(*p, promo))
}

func (h *Handler) Get(c *gin.Context) {
	p, err := h.Products.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture produit"})
		return
	}

	c.JSON(http.StatusOK, p)
}

func (h *Handler) Update(c *gin.Context) {
	id := c.Param("id")

	p, err := h.Products.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture produit"})
		return
	}

	oid := p.ID
	if err := c.ShouldBindJSON(p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p.ID = oid
	for i := range p.Variants {
		p.Variants[i].Color = models.NormalizeColor(p.Variants[i].Color)
	}
	p.UpdatedAt = time.Now()

	if err := h.Products.Update(c.Request.Context(), p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour produit: " + err.Error()})
		return
	}

	go search.IndexProduct(*p)
	h.invalidateCache(c.Request.Context())

	c.JSON(http.StatusOK, p)
}

func (h *Handler) Delete(c *gin.Context) {
	id := c.Param("id")

	if err := h.Products.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression produit"})
		return
	}

	go search.RemoveProduct(id)
	h.invalidateCache(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{"message": "Produit supprimé"})
}

func (h *Handler) activePromotion(ctx context.Context) *models.Promotion {
	if h.Promotions == nil {
		return nil
	}
	promos, err := h.Promotions.ListCurrent(ctx, time.Now())
	if err != nil {
		log.Printf("⚠️ Erreur lecture promotions: %v", err)
		return nil
	}
	return pricing.ResolveActive(promos, time.Now())
}

func (h *Handler) invalidateCache(ctx context.Context) {
	if database.Redis != nil {
		database.Redis.Del(ctx, cacheKeyAll)
	}
}

// productView enrichit un produit de son prix effectif (promo comprise)
// et du stock total disponible.
func productView(p models.Product, promo *models.Promotion) gin.H {
	return gin.H{
		"product":         p,
		"effective_price": pricing.EffectivePrice(&p, promo),
		"available_stock": p.AvailableStock(),
	}
}

func withEffectivePrices(products []models.Product, promo *models.Promotion) []gin.H {
	views := make([]gin.H, 0, len(products))
	for _, p := range products {
		views = append(views, productView(p, promo))
	}
	return views
}
