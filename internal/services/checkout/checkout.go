package checkout

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"lunetier_back_end/internal/models"
	"lunetier_back_end/internal/payment"
	"lunetier_back_end/internal/services/pricing"
	"lunetier_back_end/internal/store"
)

// SessionIDPlaceholder est résolu par le prestataire lors de la redirection
// retour : le client revient avec l'identifiant de session réel dans l'URL.
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

const orderNumberPrefix = "LNT"

type Request struct {
	Items           []models.CartItem
	SuccessURL      string
	CancelURL       string
	CustomerEmail   string
	UserID          string
	ShippingAddress models.ShippingAddress
}

type Result struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
	OrderNumber string `json:"order_number"`
}

// Service valide le panier, crée la session de paiement hébergée et persiste
// la commande "pending" corrélée par l'identifiant de session. Aucune
// réservation dure : le stock n'est décrémenté qu'après paiement confirmé.
type Service struct {
	products   store.ProductStore
	orders     store.OrderStore
	promotions store.PromotionStore // optionnel : prix promotionnels au snapshot
	provider   payment.Provider
	now        func() time.Time
}

func NewService(products store.ProductStore, orders store.OrderStore, promotions store.PromotionStore, provider payment.Provider) *Service {
	return &Service{
		products:   products,
		orders:     orders,
		promotions: promotions,
		provider:   provider,
		now:        time.Now,
	}
}

// CreateSession exécute les étapes du checkout. La validation échoue avant
// tout appel externe et avant toute écriture ; les erreurs de validation
// remontent telles quelles, le reste est enveloppé en CheckoutFailedError.
func (s *Service) CreateSession(ctx context.Context, req Request) (*Result, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}

	promo := s.activePromotion(ctx)

	snapshots, err := s.validateAndSnapshot(ctx, req.Items, promo)
	if err != nil {
		return nil, err
	}

	orderNumber := GenerateOrderNumber()

	successURL := req.SuccessURL
	if !strings.Contains(successURL, SessionIDPlaceholder) {
		successURL += "?session_id=" + SessionIDPlaceholder
	}

	var lineItems []payment.LineItem
	var total float64
	for _, item := range snapshots {
		lineItems = append(lineItems, payment.LineItem{
			Name:       lineItemName(item),
			UnitAmount: toCents(item.Price),
			Quantity:   int64(item.Quantity),
		})
		total += item.Price * float64(item.Quantity)
	}

	session, err := s.provider.CreateCheckoutSession(ctx, payment.CreateSessionParams{
		LineItems:     lineItems,
		SuccessURL:    successURL,
		CancelURL:     req.CancelURL,
		CustomerEmail: req.CustomerEmail,
		OrderNumber:   orderNumber,
	})
	if err != nil {
		return nil, &CheckoutFailedError{Err: err}
	}

	order := &models.Order{
		OrderNumber:     orderNumber,
		UserID:          req.UserID,
		Items:           snapshots,
		TotalAmount:     total,
		PaymentStatus:   models.PaymentPending,
		DeliveryStatus:  models.DeliveryOrderPlaced,
		StripeSessionID: session.ID,
		CustomerEmail:   req.CustomerEmail,
		ShippingAddress: req.ShippingAddress,
	}
	if err := s.orders.Insert(ctx, order); err != nil {
		log.Printf("❌ Erreur insertion commande %s: %v", orderNumber, err)
		return nil, &CheckoutFailedError{Err: err}
	}

	log.Printf("🛒 Commande %s créée en attente (session %s, %.2f€)", orderNumber, session.ID, total)
	return &Result{SessionID: session.ID, RedirectURL: session.URL, OrderNumber: orderNumber}, nil
}

// validateAndSnapshot vérifie le stock ligne par ligne et fige nom, prix,
// coloris et visuel : les éditions catalogue ultérieures ne touchent jamais
// une commande déjà créée.
func (s *Service) validateAndSnapshot(ctx context.Context, items []models.CartItem, promo *models.Promotion) ([]models.OrderItem, error) {
	snapshots := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		p, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			if err == store.ErrNotFound {
				return nil, &ProductNotFoundError{ProductID: item.ProductID}
			}
			return nil, &CheckoutFailedError{Err: err}
		}

		color := models.NormalizeColor(item.Color)
		imageURL := firstImage(p, color)

		if p.Status != models.StatusActive {
			return nil, &InsufficientStockError{
				ProductName: p.Name,
				Color:       color,
				Available:   0,
				Requested:   item.Quantity,
			}
		}

		switch {
		case p.HasVariants() && color != "":
			v := p.FindVariant(color)
			if v == nil || v.Stock < item.Quantity {
				available := 0
				if v != nil {
					available = v.Stock
				}
				return nil, &InsufficientStockError{
					ProductName: p.Name,
					Color:       color,
					Available:   available,
					Requested:   item.Quantity,
				}
			}
		case p.HasVariants():
			// Pas de coloris choisi : la somme des coloris couvre la demande.
			// Le décrément consomme ensuite les coloris dans l'ordre du
			// catalogue (voir le moteur de stock).
			if p.AvailableStock() < item.Quantity {
				return nil, &InsufficientStockError{
					ProductName: p.Name,
					Available:   p.AvailableStock(),
					Requested:   item.Quantity,
				}
			}
		default:
			if p.Stock < item.Quantity {
				return nil, &InsufficientStockError{
					ProductName: p.Name,
					Available:   p.Stock,
					Requested:   item.Quantity,
				}
			}
		}

		snapshots = append(snapshots, models.OrderItem{
			ProductID: item.ProductID,
			Name:      p.Name,
			Price:     pricing.EffectivePrice(p, promo),
			Quantity:  item.Quantity,
			Color:     color,
			ImageURL:  imageURL,
		})
	}
	return snapshots, nil
}

func (s *Service) activePromotion(ctx context.Context) *models.Promotion {
	if s.promotions == nil {
		return nil
	}
	promos, err := s.promotions.ListCurrent(ctx, s.now())
	if err != nil {
		log.Printf("⚠️ Erreur lecture promotions, checkout sans promo: %v", err)
		return nil
	}
	return pricing.ResolveActive(promos, s.now())
}

func firstImage(p *models.Product, color string) string {
	if color != "" {
		if v := p.FindVariant(color); v != nil && len(v.Images) > 0 {
			return v.Images[0]
		}
	}
	if len(p.ImageURLs) > 0 {
		return p.ImageURLs[0]
	}
	return ""
}

func lineItemName(item models.OrderItem) string {
	if item.Color != "" {
		return fmt.Sprintf("%s (%s)", item.Name, item.Color)
	}
	return item.Name
}

func toCents(price float64) int64 {
	return int64(math.Round(price * 100))
}

// GenerateOrderNumber : PREFIX-<timestamp>-<aléa>. 48 bits d'aléa, les
// collisions sont du domaine de l'index unique en base.
func GenerateOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	return fmt.Sprintf("%s-%d-%s", orderNumberPrefix, time.Now().UnixMilli(), suffix)
}
