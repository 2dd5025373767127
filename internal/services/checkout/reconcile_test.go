package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lunetier_back_end/internal/models"
	"lunetier_back_end/internal/services/stock"
	"lunetier_back_end/internal/store"
)

type fakeNotifier struct {
	mu     sync.Mutex
	orders []string
}

func (f *fakeNotifier) PaymentConfirmed(ctx context.Context, order *models.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, order.OrderNumber)
}

func (f *fakeNotifier) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

func newTestReconciler(t *testing.T) (*Reconciler, *store.MemoryStores, *fakeProvider, *fakeNotifier) {
	t.Helper()
	stores := store.NewMemoryStores()
	provider := newFakeProvider()
	notifier := &fakeNotifier{}
	engine := stock.NewEngine(stores.Products, stores.Orders, stores.Inventory)
	rec := NewReconciler(stores.Orders, engine, notifier, provider)
	return rec, stores, provider, notifier
}

func seedPendingOrder(t *testing.T, stores *store.MemoryStores, productStock int) (*models.Order, string) {
	t.Helper()
	ctx := context.Background()

	p := models.Product{
		Name:   "Monture Atelier",
		Slug:   "monture-atelier",
		Type:   models.TypeGlasses,
		Status: models.StatusActive,
		Price:  159,
		Variants: []models.FrameColorVariant{
			{Color: "noir", Stock: productStock},
		},
	}
	require.NoError(t, stores.Products.Insert(ctx, &p))

	o := &models.Order{
		OrderNumber:     GenerateOrderNumber(),
		Items:           []models.OrderItem{{ProductID: p.ID.Hex(), Name: p.Name, Price: p.Price, Color: "noir", Quantity: 2}},
		TotalAmount:     318,
		PaymentStatus:   models.PaymentPending,
		DeliveryStatus:  models.DeliveryOrderPlaced,
		StripeSessionID: "cs_test_rec_1",
		CustomerEmail:   "client@test.fr",
	}
	require.NoError(t, stores.Orders.Insert(ctx, o))
	return o, p.ID.Hex()
}

func paymentInfo() models.PaymentInfo {
	return models.PaymentInfo{PaymentIntentID: "pi_test_1", CardLast4: "4242", PaidAt: time.Now()}
}

func TestHandleIntentSucceededHappyPath(t *testing.T) {
	rec, stores, _, notifier := newTestReconciler(t)
	ctx := context.Background()

	order, productID := seedPendingOrder(t, stores, 5)

	require.NoError(t, rec.HandleIntentSucceeded(ctx, order.OrderNumber, paymentInfo()))

	got, err := stores.Orders.FindByID(ctx, order.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, models.DeliveryOrderConfirmed, got.DeliveryStatus)
	assert.Equal(t, "pi_test_1", got.PaymentIntentID)
	assert.Equal(t, "4242", got.CardLast4)
	assert.True(t, got.StockReduced)
	require.NotNil(t, got.PaidAt)

	p, err := stores.Products.FindByID(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 3, p.FindVariant("noir").Stock)

	assert.Equal(t, 1, notifier.calls())
}

func TestDuplicateEventsAreNoOps(t *testing.T) {
	rec, stores, _, notifier := newTestReconciler(t)
	ctx := context.Background()

	order, productID := seedPendingOrder(t, stores, 5)

	// Le même paiement arrive par les deux canaux, plusieurs fois
	require.NoError(t, rec.HandleIntentSucceeded(ctx, order.OrderNumber, paymentInfo()))
	require.NoError(t, rec.HandleSessionCompleted(ctx, order.StripeSessionID, paymentInfo()))
	require.NoError(t, rec.HandleIntentSucceeded(ctx, order.OrderNumber, paymentInfo()))

	p, err := stores.Products.FindByID(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 3, p.FindVariant("noir").Stock, "un seul décrément")

	assert.Equal(t, 1, notifier.calls(), "une seule notification")
}

func TestHandleSessionCompletedUnknownSession(t *testing.T) {
	rec, _, _, notifier := newTestReconciler(t)

	// Session inconnue : 2xx côté webhook, aucune commande fabriquée
	require.NoError(t, rec.HandleSessionCompleted(context.Background(), "cs_inconnue", paymentInfo()))
	assert.Equal(t, 0, notifier.calls())
}

func TestHandlePaymentFailed(t *testing.T) {
	rec, stores, _, notifier := newTestReconciler(t)
	ctx := context.Background()

	order, productID := seedPendingOrder(t, stores, 5)

	require.NoError(t, rec.HandlePaymentFailed(ctx, order.OrderNumber, "carte refusée"))

	got, err := stores.Orders.FindByID(ctx, order.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, got.PaymentStatus)
	assert.Equal(t, "carte refusée", got.FailureReason)
	assert.False(t, got.StockReduced)

	p, err := stores.Products.FindByID(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 5, p.FindVariant("noir").Stock, "le stock n'est jamais touché sur échec")

	assert.Equal(t, 0, notifier.calls())
}

func TestPaidIsMonotonic(t *testing.T) {
	rec, stores, _, _ := newTestReconciler(t)
	ctx := context.Background()

	order, _ := seedPendingOrder(t, stores, 5)

	require.NoError(t, rec.HandleIntentSucceeded(ctx, order.OrderNumber, paymentInfo()))
	// Un échec tardif n'écrase jamais un paiement confirmé
	require.NoError(t, rec.HandlePaymentFailed(ctx, order.OrderNumber, "échec tardif"))

	got, err := stores.Orders.FindByID(ctx, order.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, got.PaymentStatus)
}

func TestPollSessionConfirmsPaidSession(t *testing.T) {
	rec, stores, provider, notifier := newTestReconciler(t)
	ctx := context.Background()

	order, productID := seedPendingOrder(t, stores, 5)
	provider.markPaid(order.StripeSessionID, "pi_poll_1")

	got, err := rec.PollSession(ctx, order.StripeSessionID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, "pi_poll_1", got.PaymentIntentID)
	assert.True(t, got.StockReduced)

	p, err := stores.Products.FindByID(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 3, p.FindVariant("noir").Stock)

	assert.Equal(t, 1, notifier.calls())

	// Webhook en retard après le poll : toujours un no-op
	require.NoError(t, rec.HandleSessionCompleted(ctx, order.StripeSessionID, paymentInfo()))
	assert.Equal(t, 1, notifier.calls())
}

func TestPollSessionProviderUnreachable(t *testing.T) {
	rec, stores, _, _ := newTestReconciler(t)
	ctx := context.Background()

	order, _ := seedPendingOrder(t, stores, 5)

	// Pas de statut connu chez le prestataire : état rendu tel quel
	got, err := rec.PollSession(ctx, order.StripeSessionID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, got.PaymentStatus)
	assert.False(t, got.StockReduced)
}

func TestConcurrentConfirmationsDecrementOnce(t *testing.T) {
	rec, stores, _, notifier := newTestReconciler(t)
	ctx := context.Background()

	order, productID := seedPendingOrder(t, stores, 5)

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = rec.HandleIntentSucceeded(ctx, order.OrderNumber, paymentInfo())
		}()
	}
	wg.Wait()

	p, err := stores.Products.FindByID(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 3, p.FindVariant("noir").Stock, "un seul décrément malgré la course")

	// La notification est best-effort : au moins une, jamais zéro
	assert.GreaterOrEqual(t, notifier.calls(), 1)
}
