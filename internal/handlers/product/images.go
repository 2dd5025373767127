package product

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lunetier_back_end/internal/models"
	"lunetier_back_end/internal/services/storage"
	"lunetier_back_end/internal/store"
)

// UploadImage — POST /api/admin/products/:id/images
// Envoie l'image dans MinIO puis attache l'URL au produit
// (au coloris si le champ "color" est fourni).
func (h *Handler) UploadImage(c *gin.Context) {
	productID := c.Param("id")

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Fichier 'image' manquant"})
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

	url, err := storage.UploadProductImage(ctx, file)
	if err != nil {
		log.Printf("❌ Erreur upload MinIO: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur upload image"})
		return
	}

	color := models.NormalizeColor(c.PostForm("color"))
	if color != "" {
		v := p.FindVariant(color)
		if v == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Coloris introuvable"})
			return
		}
		v.Images = append(v.Images, url)
	} else {
		p.ImageURLs = append(p.ImageURLs, url)
	}

	p.UpdatedAt = time.Now()
	if err := h.Products.Update(ctx, p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour produit"})
		return
	}

	h.invalidateCache(ctx)

	c.JSON(http.StatusOK, gin.H{
		"message": "Image ajoutée",
		"url":     url,
	})
}
