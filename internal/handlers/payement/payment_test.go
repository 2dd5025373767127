package payement

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lunetier_back_end/internal/models"
	"lunetier_back_end/internal/services/checkout"
	"lunetier_back_end/internal/services/stock"
	"lunetier_back_end/internal/store"
)

// failingOrderStore simule une panne de la base pendant la réconciliation
type failingOrderStore struct{ store.OrderStore }

func (failingOrderStore) FindBySessionID(context.Context, string) (*models.Order, error) {
	return nil, errors.New("panne base de données")
}

func newPaymentRouter(t *testing.T, orders store.OrderStore, stores *store.MemoryStores) *gin.Engine {
	t.Helper()
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")

	gin.SetMode(gin.TestMode)
	engine := stock.NewEngine(stores.Products, orders, nil)
	rec := checkout.NewReconciler(orders, engine, nil, nil)
	h := &Handler{Reconciler: rec, Orders: orders}

	r := gin.New()
	r.POST("/api/webhook", h.StripeWebhook)
	r.GET("/api/order-status", h.GetOrderStatus)
	return r
}

func postWebhook(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhook", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const sessionCompletedEvent = `{"type":"checkout.session.completed","data":{"object":{"id":"cs_test_x"}}}`

func TestWebhookAnswers500OnReconciliationError(t *testing.T) {
	stores := store.NewMemoryStores()
	r := newPaymentRouter(t, failingOrderStore{stores.Orders}, stores)

	// Panne base : pas d'acquittement, Stripe doit rejouer la livraison
	w := postWebhook(r, sessionCompletedEvent)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWebhookAcksUnknownSession(t *testing.T) {
	stores := store.NewMemoryStores()
	r := newPaymentRouter(t, stores.Orders, stores)

	// Session sans commande associée : no-op acquitté, jamais de rejeu
	w := postWebhook(r, sessionCompletedEvent)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookAcksDuplicateDelivery(t *testing.T) {
	stores := store.NewMemoryStores()
	r := newPaymentRouter(t, stores.Orders, stores)

	o := &models.Order{
		OrderNumber:     "LNT-TEST-0100",
		StripeSessionID: "cs_test_x",
		PaymentStatus:   models.PaymentPaid,
		StockReduced:    true,
	}
	require.NoError(t, stores.Orders.Insert(context.Background(), o))

	w := postWebhook(r, sessionCompletedEvent)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookRejectsInvalidJSON(t *testing.T) {
	stores := store.NewMemoryStores()
	r := newPaymentRouter(t, stores.Orders, stores)

	w := postWebhook(r, "{pas du json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderStatusNotFound(t *testing.T) {
	stores := store.NewMemoryStores()
	r := newPaymentRouter(t, stores.Orders, stores)

	req := httptest.NewRequest(http.MethodGet, "/api/order-status?session_id=cs_inconnue", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Commande introuvable")
}

func TestOrderStatusStoreErrorIs500(t *testing.T) {
	stores := store.NewMemoryStores()
	r := newPaymentRouter(t, failingOrderStore{stores.Orders}, stores)

	req := httptest.NewRequest(http.MethodGet, "/api/order-status?session_id=cs_test_x", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
