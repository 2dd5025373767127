package store

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"lunetier_back_end/internal/models"
)

// MemoryStores : implémentation en mémoire des mêmes interfaces que Mongo,
// utilisée par les tests. Les écritures conditionnelles sont sérialisées par
// un mutex, ce qui reproduit la sémantique compare-and-set des
// FindOneAndUpdate conditionnels.
type MemoryStores struct {
	Products   *MemoryProductStore
	Orders     *MemoryOrderStore
	Promotions *MemoryPromotionStore
	Users      *MemoryUserStore
	Inventory  *MemoryInventoryStore
}

func NewMemoryStores() *MemoryStores {
	return &MemoryStores{
		Products:   &MemoryProductStore{products: map[string]*models.Product{}},
		Orders:     &MemoryOrderStore{orders: map[string]*models.Order{}},
		Promotions: &MemoryPromotionStore{promos: map[string]*models.Promotion{}},
		Users:      &MemoryUserStore{users: map[string]*models.User{}},
		Inventory:  &MemoryInventoryStore{},
	}
}

// --- Produits ---

type MemoryProductStore struct {
	mu       sync.Mutex
	products map[string]*models.Product
}

func copyProduct(p *models.Product) *models.Product {
	cp := *p
	cp.Variants = append([]models.FrameColorVariant(nil), p.Variants...)
	cp.ImageURLs = append([]string(nil), p.ImageURLs...)
	cp.Tags = append([]string(nil), p.Tags...)
	return &cp
}

func (s *MemoryProductStore) Insert(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.products[p.ID.Hex()] = copyProduct(p)
	return nil
}

func (s *MemoryProductStore) Update(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID.Hex()]; !ok {
		return ErrNotFound
	}
	p.UpdatedAt = time.Now()
	s.products[p.ID.Hex()] = copyProduct(p)
	return nil
}

func (s *MemoryProductStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *MemoryProductStore) FindByID(_ context.Context, id string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyProduct(p), nil
}

func (s *MemoryProductStore) FindBySlug(_ context.Context, slug string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.Slug == slug {
			return copyProduct(p), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryProductStore) List(_ context.Context, filter ProductFilter) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Product
	for _, p := range s.products {
		if filter.Type != "" && p.Type != filter.Type {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, *copyProduct(p))
	}
	return out, nil
}

func (s *MemoryProductStore) AdjustFlatStock(_ context.Context, id string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return 0, ErrNotFound
	}
	p.Stock += delta
	p.UpdatedAt = time.Now()
	return p.Stock, nil
}

func (s *MemoryProductStore) AdjustVariantStock(_ context.Context, id, color string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return 0, ErrNotFound
	}
	key := models.NormalizeColor(color)
	for i := range p.Variants {
		if models.NormalizeColor(p.Variants[i].Color) == key {
			p.Variants[i].Stock += delta
			p.UpdatedAt = time.Now()
			return p.Variants[i].Stock, nil
		}
	}
	return 0, ErrVariantMissing
}

func (s *MemoryProductStore) ReduceFlatStock(_ context.Context, id string, qty int) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return 0, 0, ErrNotFound
	}
	take := qty
	if p.Stock < take {
		take = p.Stock
	}
	if take < 0 {
		take = 0
	}
	p.Stock -= take
	p.UpdatedAt = time.Now()
	return take, p.Stock, nil
}

func (s *MemoryProductStore) ReduceVariantStock(_ context.Context, id, color string, qty int) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return 0, 0, ErrNotFound
	}
	key := models.NormalizeColor(color)
	for i := range p.Variants {
		if models.NormalizeColor(p.Variants[i].Color) != key {
			continue
		}
		take := qty
		if p.Variants[i].Stock < take {
			take = p.Variants[i].Stock
		}
		if take < 0 {
			take = 0
		}
		p.Variants[i].Stock -= take
		p.UpdatedAt = time.Now()
		return take, p.Variants[i].Stock, nil
	}
	return 0, 0, ErrVariantMissing
}

// --- Commandes ---

type MemoryOrderStore struct {
	mu     sync.Mutex
	orders map[string]*models.Order
}

func copyOrder(o *models.Order) *models.Order {
	cp := *o
	cp.Items = append([]models.OrderItem(nil), o.Items...)
	return &cp
}

func (s *MemoryOrderStore) Insert(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	now := time.Now()
	o.CreatedAt, o.UpdatedAt = now, now
	s.orders[o.ID.Hex()] = copyOrder(o)
	return nil
}

func (s *MemoryOrderStore) FindByID(_ context.Context, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyOrder(o), nil
}

func (s *MemoryOrderStore) FindByNumber(_ context.Context, orderNumber string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.OrderNumber == orderNumber {
			return copyOrder(o), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryOrderStore) FindBySessionID(_ context.Context, sessionID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.StripeSessionID == sessionID {
			return copyOrder(o), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryOrderStore) List(_ context.Context) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		out = append(out, *copyOrder(o))
	}
	return out, nil
}

func (s *MemoryOrderStore) ListByUser(_ context.Context, userID string) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, *copyOrder(o))
		}
	}
	return out, nil
}

func (s *MemoryOrderStore) MarkPaid(_ context.Context, id string, info models.PaymentInfo) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return false, ErrNotFound
	}
	if o.PaymentStatus != models.PaymentPending {
		return false, nil
	}
	o.PaymentStatus = models.PaymentPaid
	o.PaymentIntentID = info.PaymentIntentID
	o.CardLast4 = info.CardLast4
	paidAt := info.PaidAt
	o.PaidAt = &paidAt
	o.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemoryOrderStore) MarkFailed(_ context.Context, id, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return false, ErrNotFound
	}
	if o.PaymentStatus != models.PaymentPending {
		return false, nil
	}
	o.PaymentStatus = models.PaymentFailed
	o.FailureReason = reason
	o.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemoryOrderStore) MarkRefunded(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return false, ErrNotFound
	}
	if o.PaymentStatus != models.PaymentPaid {
		return false, nil
	}
	o.PaymentStatus = models.PaymentRefunded
	o.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemoryOrderStore) ClaimStockReduction(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return false, ErrNotFound
	}
	if o.PaymentStatus != models.PaymentPaid || o.StockReduced {
		return false, nil
	}
	o.StockReduced = true
	o.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemoryOrderStore) SetDeliveryStatus(_ context.Context, id string, status models.DeliveryStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.DeliveryStatus = status
	o.UpdatedAt = time.Now()
	return nil
}

// --- Promotions ---

type MemoryPromotionStore struct {
	mu     sync.Mutex
	promos map[string]*models.Promotion
}

func (s *MemoryPromotionStore) Insert(_ context.Context, p *models.Promotion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	s.promos[p.ID.Hex()] = &cp
	return nil
}

func (s *MemoryPromotionStore) Update(_ context.Context, p *models.Promotion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.promos[p.ID.Hex()]; !ok {
		return ErrNotFound
	}
	p.UpdatedAt = time.Now()
	cp := *p
	s.promos[p.ID.Hex()] = &cp
	return nil
}

func (s *MemoryPromotionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.promos[id]; !ok {
		return ErrNotFound
	}
	delete(s.promos, id)
	return nil
}

func (s *MemoryPromotionStore) List(_ context.Context) ([]models.Promotion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Promotion
	for _, p := range s.promos {
		out = append(out, *p)
	}
	return out, nil
}

func (s *MemoryPromotionStore) ListCurrent(_ context.Context, now time.Time) ([]models.Promotion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Promotion
	for _, p := range s.promos {
		if p.IsCurrent(now) {
			out = append(out, *p)
		}
	}
	return out, nil
}

// --- Utilisateurs ---

type MemoryUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func (s *MemoryUserStore) Insert(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.CreatedAt = time.Now()
	cp := *u
	s.users[u.Email] = &cp
	return nil
}

func (s *MemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// --- Inventaire ---

type MemoryInventoryStore struct {
	mu        sync.Mutex
	movements []models.StockMovement
	alerts    []models.StockAlert
}

func (s *MemoryInventoryStore) RecordMovement(_ context.Context, m *models.StockMovement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	m.CreatedAt = time.Now()
	s.movements = append(s.movements, *m)
	return nil
}

func (s *MemoryInventoryStore) ListMovements(_ context.Context, productID string, limit int) ([]models.StockMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.StockMovement
	for i := len(s.movements) - 1; i >= 0 && len(out) < limit; i-- {
		if productID == "" || s.movements[i].ProductID == productID {
			out = append(out, s.movements[i])
		}
	}
	return out, nil
}

func (s *MemoryInventoryStore) InsertAlert(_ context.Context, a *models.StockAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	a.CreatedAt = time.Now()
	s.alerts = append(s.alerts, *a)
	return nil
}

func (s *MemoryInventoryStore) ListOpenAlerts(_ context.Context) ([]models.StockAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.StockAlert
	for _, a := range s.alerts {
		if !a.IsResolved {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MemoryInventoryStore) ResolveAlert(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alerts {
		if s.alerts[i].ID.Hex() == id {
			s.alerts[i].IsResolved = true
			return nil
		}
	}
	return ErrNotFound
}
