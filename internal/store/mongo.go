package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lunetier_back_end/internal/models"
)

// MongoStores regroupe les collections du magasin documentaire.
// Toutes les transitions sensibles (paiement, stock_reduced) passent par des
// écritures conditionnelles : le filtre porte l'invariant, jamais un
// read-modify-write.
type MongoStores struct {
	Products   *MongoProductStore
	Orders     *MongoOrderStore
	Promotions *MongoPromotionStore
	Users      *MongoUserStore
	Inventory  *MongoInventoryStore
}

func NewMongoStores(db *mongo.Database) *MongoStores {
	return &MongoStores{
		Products:   &MongoProductStore{col: db.Collection("products")},
		Orders:     &MongoOrderStore{col: db.Collection("orders")},
		Promotions: &MongoPromotionStore{col: db.Collection("promotions")},
		Users:      &MongoUserStore{col: db.Collection("users")},
		Inventory: &MongoInventoryStore{
			movements: db.Collection("stock_movements"),
			alerts:    db.Collection("stock_alerts"),
		},
	}
}

// EnsureIndexes crée les index d'unicité (slug, order_number, session, email)
func (s *MongoStores) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	_, err := s.Products.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique,
	})
	if err != nil {
		return err
	}
	_, err = s.Orders.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "order_number", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "stripe_session_id", Value: 1}}},
	})
	if err != nil {
		return err
	}
	_, err = s.Users.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true),
	})
	return err
}

// =============================================
// PRODUITS
// =============================================

type MongoProductStore struct {
	col *mongo.Collection
}

func (s *MongoProductStore) Insert(ctx context.Context, p *models.Product) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := s.col.InsertOne(ctx, p)
	return err
}

func (s *MongoProductStore) Update(ctx context.Context, p *models.Product) error {
	p.UpdatedAt = time.Now()
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoProductStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoProductStore) FindByID(ctx context.Context, id string) (*models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var p models.Product
	if err := s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *MongoProductStore) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var p models.Product
	if err := s.col.FindOne(ctx, bson.M{"slug": slug}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *MongoProductStore) List(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	q := bson.M{}
	if filter.Type != "" {
		q["type"] = filter.Type
	}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	cursor, err := s.col.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *MongoProductStore) AdjustFlatStock(ctx context.Context, id string, delta int) (int, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, ErrNotFound
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Product
	err = s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{
			"$inc": bson.M{"stock": delta},
			"$set": bson.M{"updated_at": time.Now()},
		}, opts).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return p.Stock, nil
}

func (s *MongoProductStore) AdjustVariantStock(ctx context.Context, id, color string, delta int) (int, error) {
	// Le nom de coloris est comparé sous forme normalisée : on résout
	// d'abord l'index du variant, puis on incrémente son compteur par chemin
	// positionnel. Le claim stock_reduced en amont garantit qu'une commande
	// ne passe jamais deux fois par ici.
	p, err := s.FindByID(ctx, id)
	if err != nil {
		return 0, err
	}
	idx := -1
	key := models.NormalizeColor(color)
	for i := range p.Variants {
		if models.NormalizeColor(p.Variants[i].Color) == key {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, ErrVariantMissing
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Product
	err = s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": p.ID},
		bson.M{
			"$inc": bson.M{fmt.Sprintf("frame_color_variants.%d.stock", idx): delta},
			"$set": bson.M{"updated_at": time.Now()},
		}, opts).Decode(&updated)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, ErrNotFound
		}
		return 0, err
	}
	if idx >= len(updated.Variants) {
		return 0, ErrVariantMissing
	}
	return updated.Variants[idx].Stock, nil
}

// ReduceFlatStock : décrément gardé par le filtre (stock >= qty dans la même
// écriture). Si le stock ne couvre plus la quantité, le reliquat est pris par
// un CAS sur la valeur relue ; en cas de course perdue on retente.
func (s *MongoProductStore) ReduceFlatStock(ctx context.Context, id string, qty int) (int, int, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, 0, ErrNotFound
	}
	for {
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		var p models.Product
		err := s.col.FindOneAndUpdate(ctx,
			bson.M{"_id": oid, "stock": bson.M{"$gte": qty}},
			bson.M{
				"$inc": bson.M{"stock": -qty},
				"$set": bson.M{"updated_at": time.Now()},
			}, opts).Decode(&p)
		if err == nil {
			return qty, p.Stock, nil
		}
		if err != mongo.ErrNoDocuments {
			return 0, 0, err
		}

		cur, err := s.FindByID(ctx, id)
		if err != nil {
			return 0, 0, err
		}
		if cur.Stock >= qty {
			// le stock a été réapprovisionné entre les deux lectures
			continue
		}
		take := cur.Stock
		if take <= 0 {
			return 0, cur.Stock, nil
		}
		res, err := s.col.UpdateOne(ctx,
			bson.M{"_id": oid, "stock": cur.Stock},
			bson.M{"$set": bson.M{"stock": 0, "updated_at": time.Now()}})
		if err != nil {
			return 0, 0, err
		}
		if res.MatchedCount == 1 {
			return take, 0, nil
		}
		// valeur bougée entre-temps, on retente
	}
}

// ReduceVariantStock : même garde que ReduceFlatStock, sur le compteur du
// coloris par chemin positionnel.
func (s *MongoProductStore) ReduceVariantStock(ctx context.Context, id, color string, qty int) (int, int, error) {
	key := models.NormalizeColor(color)
	for {
		p, err := s.FindByID(ctx, id)
		if err != nil {
			return 0, 0, err
		}
		idx := -1
		for i := range p.Variants {
			if models.NormalizeColor(p.Variants[i].Color) == key {
				idx = i
				break
			}
		}
		if idx < 0 {
			return 0, 0, ErrVariantMissing
		}
		path := fmt.Sprintf("frame_color_variants.%d.stock", idx)

		take := qty
		if p.Variants[idx].Stock < qty {
			take = p.Variants[idx].Stock
		}
		if take <= 0 {
			return 0, p.Variants[idx].Stock, nil
		}

		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		var updated models.Product
		err = s.col.FindOneAndUpdate(ctx,
			bson.M{"_id": p.ID, path: bson.M{"$gte": take}},
			bson.M{
				"$inc": bson.M{path: -take},
				"$set": bson.M{"updated_at": time.Now()},
			}, opts).Decode(&updated)
		if err == nil {
			if idx >= len(updated.Variants) {
				return 0, 0, ErrVariantMissing
			}
			return take, updated.Variants[idx].Stock, nil
		}
		if err != mongo.ErrNoDocuments {
			return 0, 0, err
		}
		// compteur décrémenté par un concurrent, on relit et on retente
	}
}

// =============================================
// COMMANDES
// =============================================

type MongoOrderStore struct {
	col *mongo.Collection
}

func (s *MongoOrderStore) Insert(ctx context.Context, o *models.Order) error {
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	now := time.Now()
	o.CreatedAt, o.UpdatedAt = now, now
	_, err := s.col.InsertOne(ctx, o)
	return err
}

func (s *MongoOrderStore) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	var o models.Order
	if err := s.col.FindOne(ctx, filter).Decode(&o); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (s *MongoOrderStore) FindByID(ctx context.Context, id string) (*models.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *MongoOrderStore) FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return s.findOne(ctx, bson.M{"order_number": orderNumber})
}

func (s *MongoOrderStore) FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	return s.findOne(ctx, bson.M{"stripe_session_id": sessionID})
}

func (s *MongoOrderStore) list(ctx context.Context, filter bson.M) ([]models.Order, error) {
	cursor, err := s.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *MongoOrderStore) List(ctx context.Context) ([]models.Order, error) {
	return s.list(ctx, bson.M{})
}

func (s *MongoOrderStore) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return s.list(ctx, bson.M{"user_id": userID})
}

// conditionalUpdate applique un $set si le filtre matche. Retourne false sans
// erreur quand le document existe mais que la précondition n'est plus vraie
// (événement dupliqué), ErrNotFound quand il n'existe pas.
func (s *MongoOrderStore) conditionalUpdate(ctx context.Context, id string, precondition, set bson.M) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, ErrNotFound
	}
	filter := bson.M{"_id": oid}
	for k, v := range precondition {
		filter[k] = v
	}
	set["updated_at"] = time.Now()

	res, err := s.col.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 1 {
		return true, nil
	}
	count, err := s.col.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, err
	}
	if count == 0 {
		return false, ErrNotFound
	}
	return false, nil
}

func (s *MongoOrderStore) MarkPaid(ctx context.Context, id string, info models.PaymentInfo) (bool, error) {
	return s.conditionalUpdate(ctx, id,
		bson.M{"payment_status": models.PaymentPending},
		bson.M{
			"payment_status":    models.PaymentPaid,
			"payment_intent_id": info.PaymentIntentID,
			"card_last4":        info.CardLast4,
			"paid_at":           info.PaidAt,
		})
}

func (s *MongoOrderStore) MarkFailed(ctx context.Context, id, reason string) (bool, error) {
	return s.conditionalUpdate(ctx, id,
		bson.M{"payment_status": models.PaymentPending},
		bson.M{
			"payment_status": models.PaymentFailed,
			"failure_reason": reason,
		})
}

func (s *MongoOrderStore) MarkRefunded(ctx context.Context, id string) (bool, error) {
	return s.conditionalUpdate(ctx, id,
		bson.M{"payment_status": models.PaymentPaid},
		bson.M{"payment_status": models.PaymentRefunded})
}

func (s *MongoOrderStore) ClaimStockReduction(ctx context.Context, id string) (bool, error) {
	return s.conditionalUpdate(ctx, id,
		bson.M{"payment_status": models.PaymentPaid, "stock_reduced": false},
		bson.M{"stock_reduced": true})
}

func (s *MongoOrderStore) SetDeliveryStatus(ctx context.Context, id string, status models.DeliveryStatus) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"delivery_status": status,
		"updated_at":      time.Now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// =============================================
// PROMOTIONS
// =============================================

type MongoPromotionStore struct {
	col *mongo.Collection
}

func (s *MongoPromotionStore) Insert(ctx context.Context, p *models.Promotion) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := s.col.InsertOne(ctx, p)
	return err
}

func (s *MongoPromotionStore) Update(ctx context.Context, p *models.Promotion) error {
	p.UpdatedAt = time.Now()
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoPromotionStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoPromotionStore) List(ctx context.Context) ([]models.Promotion, error) {
	cursor, err := s.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "valid_from", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var promos []models.Promotion
	if err := cursor.All(ctx, &promos); err != nil {
		return nil, err
	}
	return promos, nil
}

func (s *MongoPromotionStore) ListCurrent(ctx context.Context, now time.Time) ([]models.Promotion, error) {
	cursor, err := s.col.Find(ctx, bson.M{
		"is_active":  true,
		"valid_from": bson.M{"$lte": now},
		"valid_to":   bson.M{"$gte": now},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var promos []models.Promotion
	if err := cursor.All(ctx, &promos); err != nil {
		return nil, err
	}
	return promos, nil
}

// =============================================
// UTILISATEURS
// =============================================

type MongoUserStore struct {
	col *mongo.Collection
}

func (s *MongoUserStore) Insert(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.CreatedAt = time.Now()
	_, err := s.col.InsertOne(ctx, u)
	return err
}

func (s *MongoUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.col.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// =============================================
// INVENTAIRE (mouvements + alertes)
// =============================================

type MongoInventoryStore struct {
	movements *mongo.Collection
	alerts    *mongo.Collection
}

func (s *MongoInventoryStore) RecordMovement(ctx context.Context, m *models.StockMovement) error {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	m.CreatedAt = time.Now()
	_, err := s.movements.InsertOne(ctx, m)
	return err
}

func (s *MongoInventoryStore) ListMovements(ctx context.Context, productID string, limit int) ([]models.StockMovement, error) {
	filter := bson.M{}
	if productID != "" {
		filter["product_id"] = productID
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := s.movements.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var movements []models.StockMovement
	if err := cursor.All(ctx, &movements); err != nil {
		return nil, err
	}
	return movements, nil
}

func (s *MongoInventoryStore) InsertAlert(ctx context.Context, a *models.StockAlert) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	a.CreatedAt = time.Now()
	_, err := s.alerts.InsertOne(ctx, a)
	return err
}

func (s *MongoInventoryStore) ListOpenAlerts(ctx context.Context) ([]models.StockAlert, error) {
	cursor, err := s.alerts.Find(ctx, bson.M{"is_resolved": false})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var alerts []models.StockAlert
	if err := cursor.All(ctx, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

func (s *MongoInventoryStore) ResolveAlert(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.alerts.UpdateOne(ctx, bson.M{"_id": oid},
		bson.M{"$set": bson.M{"is_resolved": true, "resolved_at": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
