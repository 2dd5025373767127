package promotion

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"lunetier_back_end/internal/database"
	"lunetier_back_end/internal/events"
	"lunetier_back_end/internal/models"
	"lunetier_back_end/internal/services/pricing"
	"lunetier_back_end/internal/store"
)

// Handler : gestion des offres promotionnelles par fenêtre de validité.
type Handler struct {
	Promotions store.PromotionStore
	Bus        *events.Bus
}

func NewHandler(promotions store.PromotionStore, bus *events.Bus) *Handler {
	return &Handler{Promotions: promotions, Bus: bus}
}

// GetActive — GET /api/promotions/active
// Retourne l'offre en cours (la plus récente si chevauchement), ou null.
func (h *Handler) GetActive(c *gin.Context) {
	now := time.Now()

	promos, err := h.Promotions.ListCurrent(c.Request.Context(), now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture promotions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"promotion": pricing.ResolveActive(promos, now)})
}

// List — GET /api/admin/promotions
func (h *Handler) List(c *gin.Context) {
	promos, err := h.Promotions.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture promotions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"promotions": promos})
}

// Create — POST /api/admin/promotions
func (h *Handler) Create(c *gin.Context) {
	var p models.Promotion

	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := validatePromotion(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Promotions.Insert(c.Request.Context(), &p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création promotion: " + err.Error()})
		return
	}

	h.notifyRefresh(c, "promotion.created", &p)

	c.JSON(http.StatusCreated, p)
}

// Update — PUT /api/admin/promotions/:id
func (h *Handler) Update(c *gin.Context) {
	var p models.Promotion

	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := validatePromotion(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	oid, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID invalide"})
		return
	}
	p.ID = oid
	p.UpdatedAt = time.Now()

	if err := h.Promotions.Update(c.Request.Context(), &p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Promotion introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour promotion"})
		return
	}

	h.notifyRefresh(c, "promotion.updated", &p)

	c.JSON(http.StatusOK, p)
}

// Delete — DELETE /api/admin/promotions/:id
func (h *Handler) Delete(c *gin.Context) {
	if err := h.Promotions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Promotion introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression promotion"})
		return
	}

	h.notifyRefresh(c, "promotion.deleted", nil)

	c.JSON(http.StatusOK, gin.H{"message": "Promotion supprimée"})
}

func validatePromotion(p *models.Promotion) error {
	if p.OfferName == "" {
		return errors.New("le champ 'offer_name' est obligatoire")
	}
	if !p.ValidTo.After(p.ValidFrom) {
		return errors.New("la fenêtre de validité est incohérente")
	}
	for _, cat := range []models.CategoryPricing{p.Signature, p.Essential} {
		if cat.DiscountedPrice < 0 || cat.BuyTwoPrice < 0 {
			return errors.New("tarif promotionnel négatif")
		}
	}
	return nil
}

// notifyRefresh force les vitrines à recharger leurs prix affichés.
func (h *Handler) notifyRefresh(c *gin.Context, eventType string, p *models.Promotion) {
	log.Printf("🏷️ %s", eventType)
	if h.Bus != nil {
		h.Bus.PublishJSON(c.Request.Context(), database.Redis, events.TopicPromotions, eventType, p)
	}
}
