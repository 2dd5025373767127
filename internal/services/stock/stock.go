package stock

import (
	"context"
	"errors"
	"log"

	"lunetier_back_end/internal/models"
	"lunetier_back_end/internal/store"
)

var ErrOrderNotPaid = errors.New("la commande n'est pas payée")

// ItemResult : résultat du décrément pour une ligne de commande
type ItemResult struct {
	ProductID     string `json:"product_id"`
	Color         string `json:"color,omitempty"`
	Success       bool   `json:"success"`
	Reason        string `json:"reason,omitempty"`
	OriginalStock int    `json:"original_stock"`
	NewStock      int    `json:"new_stock"`
}

// Engine décrémente le stock catalogue d'une commande payée, exactement une
// fois. L'idempotence repose sur le claim atomique de stock_reduced (false→true
// dans la même écriture conditionnelle) : appels dupliqués, webhooks rejoués et
// réconciliation par polling passent tous par ici sans danger.
type Engine struct {
	products  store.ProductStore
	orders    store.OrderStore
	inventory store.InventoryStore // optionnel : trace des mouvements
}

func NewEngine(products store.ProductStore, orders store.OrderStore, inventory store.InventoryStore) *Engine {
	return &Engine{products: products, orders: orders, inventory: inventory}
}

// ReduceForOrder traite chaque ligne indépendamment : un produit disparu est
// consigné en échec mais ne bloque pas le décrément des autres lignes.
// Retourne (résultats, true) quand le décrément a eu lieu lors de cet appel,
// (nil, false) quand il avait déjà eu lieu (no-op, pas une erreur).
func (e *Engine) ReduceForOrder(ctx context.Context, order *models.Order) ([]ItemResult, bool, error) {
	if order.PaymentStatus != models.PaymentPaid {
		return nil, false, ErrOrderNotPaid
	}

	claimed, err := e.orders.ClaimStockReduction(ctx, order.ID.Hex())
	if err != nil {
		return nil, false, err
	}
	if !claimed {
		log.Printf("🔁 Stock déjà décrémenté pour %s, on ignore", order.OrderNumber)
		return nil, false, nil
	}

	results := make([]ItemResult, 0, len(order.Items))
	for _, item := range order.Items {
		results = append(results, e.reduceItem(ctx, order, item))
	}

	log.Printf("✅ Stock décrémenté pour %s (%d lignes)", order.OrderNumber, len(results))
	return results, true, nil
}

func (e *Engine) reduceItem(ctx context.Context, order *models.Order, item models.OrderItem) ItemResult {
	result := ItemResult{ProductID: item.ProductID, Color: item.Color}

	p, err := e.products.FindByID(ctx, item.ProductID)
	if err != nil {
		log.Printf("⚠️ Produit %s introuvable pour %s, ligne ignorée", item.ProductID, order.OrderNumber)
		result.Reason = "Produit introuvable"
		return result
	}

	if !p.HasVariants() {
		return e.reduceFlat(ctx, p, item, result)
	}
	if item.Color != "" {
		return e.reduceVariant(ctx, p, item, result)
	}
	return e.reduceAcrossVariants(ctx, p, item, result)
}

// reduceFlat : lentilles et accessoires, compteur plat. Le clamp à zéro est
// appliqué par le store dans la même écriture que le décrément : deux
// commandes payées en course ne font jamais passer le compteur en négatif.
func (e *Engine) reduceFlat(ctx context.Context, p *models.Product, item models.OrderItem, result ItemResult) ItemResult {
	applied, newStock, err := e.products.ReduceFlatStock(ctx, item.ProductID, item.Quantity)
	if err != nil {
		result.Reason = err.Error()
		return result
	}
	if applied < item.Quantity {
		log.Printf("🚨 Anomalie stock: %s, demandé %d mais %d décrémenté (pas de passage en négatif)",
			p.Name, item.Quantity, applied)
	}
	result.Success = true
	result.OriginalStock = newStock + applied
	result.NewStock = newStock
	e.recordMovement(ctx, item.ProductID, "", applied, result.OriginalStock, newStock)
	return result
}

// reduceVariant : coloris explicitement commandé
func (e *Engine) reduceVariant(ctx context.Context, p *models.Product, item models.OrderItem, result ItemResult) ItemResult {
	applied, newStock, err := e.products.ReduceVariantStock(ctx, item.ProductID, item.Color, item.Quantity)
	if err != nil {
		if err == store.ErrVariantMissing {
			log.Printf("⚠️ Coloris %q introuvable sur %s, ligne ignorée", item.Color, p.Name)
			result.Reason = "Coloris introuvable"
			return result
		}
		result.Reason = err.Error()
		return result
	}
	if applied < item.Quantity {
		log.Printf("🚨 Anomalie stock: %s %s, demandé %d mais %d décrémenté (pas de passage en négatif)",
			p.Name, item.Color, item.Quantity, applied)
	}
	result.Success = true
	result.OriginalStock = newStock + applied
	result.NewStock = newStock
	e.recordMovement(ctx, item.ProductID, item.Color, applied, result.OriginalStock, newStock)
	return result
}

// reduceAcrossVariants : aucune couleur enregistrée sur la ligne. Le check de
// stock au checkout a validé la somme des coloris, le décrément consomme donc
// les coloris dans l'ordre du catalogue jusqu'à couvrir la quantité.
func (e *Engine) reduceAcrossVariants(ctx context.Context, p *models.Product, item models.OrderItem, result ItemResult) ItemResult {
	result.OriginalStock = p.AvailableStock()
	remaining := item.Quantity
	for _, v := range p.Variants {
		if remaining == 0 {
			break
		}
		applied, _, err := e.products.ReduceVariantStock(ctx, item.ProductID, v.Color, remaining)
		if err != nil {
			result.Reason = err.Error()
			return result
		}
		remaining -= applied
	}
	if remaining > 0 {
		log.Printf("🚨 Anomalie stock: %s, %d unités non couvertes par les coloris (pas de passage en négatif)",
			p.Name, remaining)
	}
	result.Success = true
	result.NewStock = result.OriginalStock - (item.Quantity - remaining)
	e.recordMovement(ctx, item.ProductID, "", item.Quantity-remaining, result.OriginalStock, result.NewStock)
	return result
}

func (e *Engine) recordMovement(ctx context.Context, productID, color string, qty, prev, next int) {
	if e.inventory == nil || qty == 0 {
		return
	}
	m := &models.StockMovement{
		ProductID: productID,
		Color:     color,
		Type:      "order",
		Quantity:  -qty,
		PrevStock: prev,
		NewStock:  next,
		Reason:    "décrément commande",
	}
	if err := e.inventory.RecordMovement(ctx, m); err != nil {
		log.Printf("⚠️ Erreur enregistrement mouvement stock: %v", err)
	}
}
