package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"lunetier_back_end/internal/models"
)

type fakeMailer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *fakeMailer) SendInvoice(_ context.Context, _ *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.err
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type fakeChat struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *fakeChat) SendOrderAlert(_ context.Context, _ *models.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.err
}

func (c *fakeChat) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func testOrder() *models.Order {
	return &models.Order{
		OrderNumber:   "LNT-TEST-0042",
		CustomerEmail: "client@example.com",
		PaymentStatus: models.PaymentPaid,
	}
}

func TestPaymentConfirmedNotifiesBothChannels(t *testing.T) {
	mailer := &fakeMailer{}
	chat := &fakeChat{}

	d := NewDispatcher(mailer, chat)
	d.PaymentConfirmed(context.Background(), testOrder())

	assert.Equal(t, 1, mailer.count())
	assert.Equal(t, 1, chat.count())
}

func TestPaymentConfirmedSwallowsMailerError(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("SMTP injoignable")}
	chat := &fakeChat{}

	d := NewDispatcher(mailer, chat)
	// Ne doit ni paniquer ni remonter l'erreur : l'appel retourne normalement
	d.PaymentConfirmed(context.Background(), testOrder())

	// Le chat part quand même malgré l'échec e-mail
	assert.Equal(t, 1, mailer.count())
	assert.Equal(t, 1, chat.count())
}

func TestPaymentConfirmedSwallowsChatError(t *testing.T) {
	mailer := &fakeMailer{}
	chat := &fakeChat{err: errors.New("webhook 500")}

	d := NewDispatcher(mailer, chat)
	d.PaymentConfirmed(context.Background(), testOrder())

	assert.Equal(t, 1, mailer.count())
	assert.Equal(t, 1, chat.count())
}

func TestPaymentConfirmedBothChannelsFailing(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("SMTP injoignable")}
	chat := &fakeChat{err: errors.New("webhook 500")}

	d := NewDispatcher(mailer, chat)
	d.PaymentConfirmed(context.Background(), testOrder())

	assert.Equal(t, 1, mailer.count())
	assert.Equal(t, 1, chat.count())
}

func TestPaymentConfirmedToleratesNilClients(t *testing.T) {
	d := NewDispatcher(nil, nil)
	d.PaymentConfirmed(context.Background(), testOrder())
}

func TestPaymentConfirmedSurvivesCancelledContext(t *testing.T) {
	mailer := &fakeMailer{}
	chat := &fakeChat{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Le contexte de la requête est déjà annulé quand le webhook répond :
	// les envois partent quand même sur un contexte détaché.
	d := NewDispatcher(mailer, chat)
	d.PaymentConfirmed(ctx, testOrder())

	assert.Equal(t, 1, mailer.count())
	assert.Equal(t, 1, chat.count())
}
