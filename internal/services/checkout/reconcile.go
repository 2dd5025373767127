package checkout

import (
	"context"
	"log"
	"time"

	"lunetier_back_end/internal/models"
	"lunetier_back_end/internal/payment"
	"lunetier_back_end/internal/services/stock"
	"lunetier_back_end/internal/store"
)

// Notifier est invoqué à la première confirmation de paiement (e-mail de
// facture + notification chat). Best-effort : jamais d'erreur propagée.
type Notifier interface {
	PaymentConfirmed(ctx context.Context, order *models.Order)
}

// Reconciler fait converger paymentStatus vers la vérité du prestataire,
// qu'elle arrive par webhook ou par polling. Les livraisons dupliquées sont
// des no-ops 2xx : le claim atomique du moteur de stock absorbe la course de
// deux webhooks simultanés.
type Reconciler struct {
	orders   store.OrderStore
	engine   *stock.Engine
	notifier Notifier
	provider payment.Provider
}

func NewReconciler(orders store.OrderStore, engine *stock.Engine, notifier Notifier, provider payment.Provider) *Reconciler {
	return &Reconciler{orders: orders, engine: engine, notifier: notifier, provider: provider}
}

// HandleSessionCompleted traite un événement de session complétée (webhook).
// Session inconnue : log + no-op, on ne fabrique jamais de commande depuis un
// événement de paiement.
func (r *Reconciler) HandleSessionCompleted(ctx context.Context, sessionID string, info models.PaymentInfo) error {
	order, err := r.orders.FindBySessionID(ctx, sessionID)
	if err != nil {
		if err == store.ErrNotFound {
			log.Printf("⚠️ Session %s sans commande associée, événement ignoré", sessionID)
			return nil
		}
		return err
	}
	return r.confirmPayment(ctx, order, info, false)
}

// HandleIntentSucceeded traite un payment_intent.succeeded résolu par le
// numéro de commande embarqué dans les métadonnées. Seul ce chemin avance
// aussi le statut de livraison.
func (r *Reconciler) HandleIntentSucceeded(ctx context.Context, orderNumber string, info models.PaymentInfo) error {
	order, err := r.orders.FindByNumber(ctx, orderNumber)
	if err != nil {
		if err == store.ErrNotFound {
			log.Printf("⚠️ Commande %s inconnue dans les métadonnées, événement ignoré", orderNumber)
			return nil
		}
		return err
	}
	return r.confirmPayment(ctx, order, info, true)
}

// HandlePaymentFailed marque la commande en échec. Le stock n'est jamais touché.
func (r *Reconciler) HandlePaymentFailed(ctx context.Context, orderNumber, reason string) error {
	order, err := r.orders.FindByNumber(ctx, orderNumber)
	if err != nil {
		if err == store.ErrNotFound {
			log.Printf("⚠️ Échec de paiement pour commande inconnue %s, ignoré", orderNumber)
			return nil
		}
		return err
	}
	applied, err := r.orders.MarkFailed(ctx, order.ID.Hex(), reason)
	if err != nil {
		return err
	}
	if applied {
		log.Printf("❌ Paiement échoué pour %s: %s", order.OrderNumber, reason)
	}
	return nil
}

// PollSession : réconciliation explicite par l'identifiant de session (le
// client revient de la page de paiement avant que le webhook n'arrive).
func (r *Reconciler) PollSession(ctx context.Context, sessionID string) (*models.Order, error) {
	order, err := r.orders.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == models.PaymentPending {
		status, err := r.provider.RetrieveSession(ctx, sessionID)
		if err != nil {
			// état ambigu : on rend la commande telle quelle, le webhook ou un
			// prochain poll tranchera
			log.Printf("⚠️ Relecture session %s impossible, réconciliation différée: %v", sessionID, err)
			return order, nil
		}
		if status.Paid {
			info := models.PaymentInfo{
				PaymentIntentID: status.PaymentIntentID,
				CardLast4:       status.CardLast4,
				PaidAt:          time.Now(),
			}
			if err := r.confirmPayment(ctx, order, info, false); err != nil {
				return nil, err
			}
		}
	}
	return r.orders.FindByID(ctx, order.ID.Hex())
}

// confirmPayment : transition conditionnelle pending→paid puis rattrapage
// idempotent (décrément + notification). Un événement dupliqué passe ici sans
// muter le statut ni redéclencher le décrément.
func (r *Reconciler) confirmPayment(ctx context.Context, order *models.Order, info models.PaymentInfo, advanceDelivery bool) error {
	applied, err := r.orders.MarkPaid(ctx, order.ID.Hex(), info)
	if err != nil {
		return err
	}
	if !applied && order.PaymentStatus == models.PaymentPaid {
		log.Printf("🔁 Événement dupliqué pour %s, statut déjà payé", order.OrderNumber)
	}

	if applied && advanceDelivery && order.DeliveryStatus == models.DeliveryOrderPlaced {
		if err := r.orders.SetDeliveryStatus(ctx, order.ID.Hex(), models.DeliveryOrderConfirmed); err != nil {
			log.Printf("⚠️ Avancée livraison impossible pour %s: %v", order.OrderNumber, err)
		}
	}

	// Rattrapage : relit l'état courant puis garantit décrément et
	// notification, que cet appel soit la première confirmation ou un rejeu.
	fresh, err := r.orders.FindByID(ctx, order.ID.Hex())
	if err != nil {
		return err
	}
	if fresh.PaymentStatus != models.PaymentPaid {
		return nil
	}

	_, performed, err := r.engine.ReduceForOrder(ctx, fresh)
	if err != nil {
		return err
	}

	if (applied || performed) && r.notifier != nil {
		r.notifier.PaymentConfirmed(ctx, fresh)
	}
	return nil
}
