package store

import (
	"context"
	"errors"
	"time"

	"lunetier_back_end/internal/models"
)

var (
	ErrNotFound       = errors.New("document introuvable")
	ErrVariantMissing = errors.New("coloris introuvable")
)

type ProductFilter struct {
	Type   models.ProductType
	Status string
}

type ProductStore interface {
	Insert(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*models.Product, error)
	FindBySlug(ctx context.Context, slug string) (*models.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]models.Product, error)

	// AdjustFlatStock incrémente (delta négatif pour décrémenter) le compteur
	// plat d'un produit en une seule écriture et retourne le nouveau stock.
	AdjustFlatStock(ctx context.Context, id string, delta int) (int, error)

	// AdjustVariantStock fait de même sur le compteur du coloris donné
	// (nom comparé sous forme normalisée).
	AdjustVariantStock(ctx context.Context, id, color string, delta int) (int, error)

	// ReduceFlatStock décrémente le compteur plat d'au plus qty, borné au
	// stock disponible dans la même écriture : deux commandes payées en course
	// ne peuvent pas le faire passer en négatif. Retourne le décrément
	// effectivement appliqué et le stock résultant.
	ReduceFlatStock(ctx context.Context, id string, qty int) (applied int, newStock int, err error)

	// ReduceVariantStock fait de même sur le compteur du coloris donné.
	ReduceVariantStock(ctx context.Context, id, color string, qty int) (applied int, newStock int, err error)
}

type OrderStore interface {
	Insert(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	List(ctx context.Context) ([]models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)

	// MarkPaid applique la transition conditionnelle pending→paid en une seule
	// écriture (statut + métadonnées prestataire, tout ou rien). Retourne false
	// sans erreur si la commande n'était plus "pending" (livraison dupliquée).
	MarkPaid(ctx context.Context, id string, info models.PaymentInfo) (bool, error)

	// MarkFailed applique pending→failed avec la raison de l'échec.
	MarkFailed(ctx context.Context, id, reason string) (bool, error)

	// MarkRefunded applique paid→refunded (action admin uniquement).
	MarkRefunded(ctx context.Context, id string) (bool, error)

	// ClaimStockReduction bascule atomiquement stock_reduced de false à true
	// pour une commande payée. Un seul appelant obtient true : c'est la
	// frontière d'idempotence du décrément de stock.
	ClaimStockReduction(ctx context.Context, id string) (bool, error)

	SetDeliveryStatus(ctx context.Context, id string, status models.DeliveryStatus) error
}

type PromotionStore interface {
	Insert(ctx context.Context, p *models.Promotion) error
	Update(ctx context.Context, p *models.Promotion) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.Promotion, error)
	ListCurrent(ctx context.Context, now time.Time) ([]models.Promotion, error)
}

type UserStore interface {
	Insert(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type InventoryStore interface {
	RecordMovement(ctx context.Context, m *models.StockMovement) error
	ListMovements(ctx context.Context, productID string, limit int) ([]models.StockMovement, error)
	InsertAlert(ctx context.Context, a *models.StockAlert) error
	ListOpenAlerts(ctx context.Context) ([]models.StockAlert, error)
	ResolveAlert(ctx context.Context, id string) error
}
