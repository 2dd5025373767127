package product

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lunetier_back_end/internal/models"
	"lunetier_back_end/internal/services/search"
	"lunetier_back_end/internal/store"
)

// Search — GET /api/products/search?q=
func (h *Handler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paramètre 'q' manquant"})
		return
	}

	// 🔎 Recherche Elasticsearch (prioritaire)
	results, err := search.SearchProducts(query)
	if err == nil && len(results) > 0 {
		c.JSON(http.StatusOK, results)
		return
	}

	// 🔁 Fallback Mongo si ES vide ou indisponible : filtre en mémoire
	products, err := h.Products.List(c.Request.Context(), store.ProductFilter{Status: models.StatusActive})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur recherche: " + err.Error()})
		return
	}

	var matched []models.Product
	for _, p := range products {
		if containsIgnoreCase(p.Name, query) || containsIgnoreCase(p.Description, query) || containsTagsIgnoreCase(p.Tags, query) {
			matched = append(matched, p)
		}
	}

	c.JSON(http.StatusOK, matched)
}

// Helper pour recherche insensible à la casse
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func containsTagsIgnoreCase(tags []string, query string) bool {
	for _, tag := range tags {
		if containsIgnoreCase(tag, query) {
			return true
		}
	}
	return false
}
