package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lunetier_back_end/internal/models"
	"lunetier_back_end/internal/payment"
	"lunetier_back_end/internal/store"
)

// fakeProvider simule le prestataire de paiement en mémoire.
type fakeProvider struct {
	mu       sync.Mutex
	sessions map[string]payment.CreateSessionParams
	status   map[string]*payment.SessionStatus
	fail     bool
	refunds  []string
	counter  int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		sessions: map[string]payment.CreateSessionParams{},
		status:   map[string]*payment.SessionStatus{},
	}
}

func (f *fakeProvider) CreateCheckoutSession(ctx context.Context, params payment.CreateSessionParams) (*payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("prestataire indisponible")
	}
	f.counter++
	id := fmt.Sprintf("cs_test_%d", f.counter)
	f.sessions[id] = params
	return &payment.Session{ID: id, URL: "https://checkout.test/" + id}, nil
}

func (f *fakeProvider) RetrieveSession(ctx context.Context, sessionID string) (*payment.SessionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.status[sessionID]; ok {
		return s, nil
	}
	return nil, errors.New("session inconnue")
}

func (f *fakeProvider) Refund(ctx context.Context, paymentIntentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunds = append(f.refunds, paymentIntentID)
	return nil
}

func (f *fakeProvider) markPaid(sessionID, intentID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[sessionID] = &payment.SessionStatus{Paid: true, PaymentIntentID: intentID, CardLast4: "4242"}
}

func newTestService(t *testing.T) (*Service, *store.MemoryStores, *fakeProvider) {
	t.Helper()
	stores := store.NewMemoryStores()
	provider := newFakeProvider()
	svc := NewService(stores.Products, stores.Orders, stores.Promotions, provider)
	return svc, stores, provider
}

func seedProduct(t *testing.T, stores *store.MemoryStores, p models.Product) string {
	t.Helper()
	if p.Status == "" {
		p.Status = models.StatusActive
	}
	require.NoError(t, stores.Products.Insert(context.Background(), &p))
	return p.ID.Hex()
}

func TestCreateSessionEmptyCart(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateSession(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.True(t, IsValidationError(err))
}

func TestCreateSessionUnknownProduct(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateSession(context.Background(), Request{
		Items: []models.CartItem{{ProductID: "000000000000000000000000", Quantity: 1}},
	})

	var notFound *ProductNotFoundError
	assert.ErrorAs(t, err, &notFound)
	assert.True(t, IsValidationError(err))
}

func TestCreateSessionVariantStockCheck(t *testing.T) {
	svc, stores, _ := newTestService(t)

	id := seedProduct(t, stores, models.Product{
		Name:  "Monture Rivage",
		Slug:  "monture-rivage",
		Type:  models.TypeSunglasses,
		Price: 129,
		Variants: []models.FrameColorVariant{
			{Color: "noir", Stock: 3},
		},
	})

	// 4 demandés pour 3 en stock : refus
	_, err := svc.CreateSession(context.Background(), Request{
		Items: []models.CartItem{{ProductID: id, Color: "Noir", Quantity: 4}},
	})

	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 3, insufficient.Available)
	assert.Equal(t, 4, insufficient.Requested)

	// 3 demandés : accepté, aucune réservation (le stock reste intact)
	result, err := svc.CreateSession(context.Background(), Request{
		Items: []models.CartItem{{ProductID: id, Color: "Noir", Quantity: 3}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.SessionID)

	p, err := stores.Products.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 3, p.FindVariant("noir").Stock)
}

func TestCreateSessionInactiveProduct(t *testing.T) {
	svc, stores, _ := newTestService(t)

	id := seedProduct(t, stores, models.Product{
		Name:   "Ancienne collection",
		Slug:   "ancienne-collection",
		Type:   models.TypeContacts,
		Status: models.StatusInactive,
		Price:  19,
		Stock:  50,
	})

	_, err := svc.CreateSession(context.Background(), Request{
		Items: []models.CartItem{{ProductID: id, Quantity: 1}},
	})

	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 0, insufficient.Available)
}

func TestCreateSessionSnapshotsPriceAndName(t *testing.T) {
	svc, stores, _ := newTestService(t)
	ctx := context.Background()

	id := seedProduct(t, stores, models.Product{
		Name:  "Monture Altitude",
		Slug:  "monture-altitude",
		Type:  models.TypeGlasses,
		Price: 189,
		Variants: []models.FrameColorVariant{
			{Color: "noir", Stock: 5, Images: []string{"https://img.test/altitude-noir.jpg"}},
		},
	})

	result, err := svc.CreateSession(ctx, Request{
		Items:         []models.CartItem{{ProductID: id, Color: "noir", Quantity: 1}},
		CustomerEmail: "client@test.fr",
	})
	require.NoError(t, err)

	order, err := stores.Orders.FindByNumber(ctx, result.OrderNumber)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Monture Altitude", order.Items[0].Name)
	assert.Equal(t, 189.0, order.Items[0].Price)
	assert.Equal(t, "https://img.test/altitude-noir.jpg", order.Items[0].ImageURL)
	assert.Equal(t, models.PaymentPending, order.PaymentStatus)
	assert.Equal(t, models.DeliveryOrderPlaced, order.DeliveryStatus)
	assert.False(t, order.StockReduced)

	// L'édition catalogue ultérieure ne touche pas la commande
	p, err := stores.Products.FindByID(ctx, id)
	require.NoError(t, err)
	p.Name = "Monture Renommée"
	p.Price = 999
	require.NoError(t, stores.Products.Update(ctx, p))

	order, err = stores.Orders.FindByNumber(ctx, result.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, "Monture Altitude", order.Items[0].Name)
	assert.Equal(t, 189.0, order.Items[0].Price)
}

func TestCreateSessionAppliesPromotionPrice(t *testing.T) {
	svc, stores, _ := newTestService(t)
	ctx := context.Background()

	id := seedProduct(t, stores, models.Product{
		Name:     "Monture Héritage",
		Slug:     "monture-heritage",
		Type:     models.TypeGlasses,
		Category: models.CategorySignature,
		Price:    220,
		Variants: []models.FrameColorVariant{{Color: "noir", Stock: 3}},
	})

	promo := models.Promotion{
		OfferName: "Rentrée",
		ValidFrom: timeNowMinusHour(),
		ValidTo:   timeNowPlusHour(),
		IsActive:  true,
		Signature: models.CategoryPricing{DiscountedPrice: 179},
	}
	require.NoError(t, stores.Promotions.Insert(ctx, &promo))

	result, err := svc.CreateSession(ctx, Request{
		Items: []models.CartItem{{ProductID: id, Color: "noir", Quantity: 1}},
	})
	require.NoError(t, err)

	order, err := stores.Orders.FindByNumber(ctx, result.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, 179.0, order.Items[0].Price)
	assert.Equal(t, 179.0, order.TotalAmount)
}

func TestCreateSessionProviderFailure(t *testing.T) {
	svc, stores, provider := newTestService(t)
	provider.fail = true

	id := seedProduct(t, stores, models.Product{
		Name:  "Lentilles mensuelles",
		Slug:  "lentilles-mensuelles",
		Type:  models.TypeContacts,
		Price: 45,
		Stock: 10,
	})

	_, err := svc.CreateSession(context.Background(), Request{
		Items: []models.CartItem{{ProductID: id, Quantity: 1}},
	})

	var failed *CheckoutFailedError
	require.ErrorAs(t, err, &failed)
	assert.False(t, IsValidationError(err))

	// Aucune commande orpheline
	orders, listErr := stores.Orders.List(context.Background())
	require.NoError(t, listErr)
	assert.Empty(t, orders)
}

func TestCreateSessionSuccessURLPlaceholder(t *testing.T) {
	svc, stores, provider := newTestService(t)

	id := seedProduct(t, stores, models.Product{
		Name:  "Étui rigide",
		Slug:  "etui-rigide",
		Type:  models.TypeAccessory,
		Price: 15,
		Stock: 100,
	})

	_, err := svc.CreateSession(context.Background(), Request{
		Items:      []models.CartItem{{ProductID: id, Quantity: 1}},
		SuccessURL: "https://lunetier.fr/confirmation",
	})
	require.NoError(t, err)

	params := provider.sessions["cs_test_1"]
	assert.Equal(t, "https://lunetier.fr/confirmation?session_id="+SessionIDPlaceholder, params.SuccessURL)

	// Déjà présent : pas de double ajout
	_, err = svc.CreateSession(context.Background(), Request{
		Items:      []models.CartItem{{ProductID: id, Quantity: 1}},
		SuccessURL: "https://lunetier.fr/confirmation?session_id=" + SessionIDPlaceholder,
	})
	require.NoError(t, err)
	params = provider.sessions["cs_test_2"]
	assert.Equal(t, 1, strings.Count(params.SuccessURL, SessionIDPlaceholder))
}

func timeNowMinusHour() time.Time { return time.Now().Add(-time.Hour) }
func timeNowPlusHour() time.Time  { return time.Now().Add(time.Hour) }

func TestGenerateOrderNumberUniqueness(t *testing.T) {
	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		n := GenerateOrderNumber()
		assert.True(t, strings.HasPrefix(n, "LNT-"), "préfixe attendu: %s", n)
		require.False(t, seen[n], "numéro dupliqué: %s", n)
		seen[n] = true
	}
}
