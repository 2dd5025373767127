package stock

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lunetier_back_end/internal/models"
	"lunetier_back_end/internal/store"
)

func newEngine(t *testing.T) (*Engine, *store.MemoryStores) {
	t.Helper()
	stores := store.NewMemoryStores()
	return NewEngine(stores.Products, stores.Orders, stores.Inventory), stores
}

func seedFlatProduct(t *testing.T, stores *store.MemoryStores, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:   "Lentilles journalières",
		Slug:   "lentilles-journalieres",
		Type:   models.TypeContacts,
		Status: models.StatusActive,
		Price:  29.90,
		Stock:  stock,
	}
	require.NoError(t, stores.Products.Insert(context.Background(), p))
	return p
}

func seedFrames(t *testing.T, stores *store.MemoryStores, variants []models.FrameColorVariant) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:     "Monture Horizon",
		Slug:     "monture-horizon",
		Type:     models.TypeGlasses,
		Status:   models.StatusActive,
		Price:    149,
		Variants: variants,
	}
	require.NoError(t, stores.Products.Insert(context.Background(), p))
	return p
}

func seedPaidOrder(t *testing.T, stores *store.MemoryStores, items []models.OrderItem) *models.Order {
	t.Helper()
	o := &models.Order{
		OrderNumber:   "LNT-TEST-0001",
		Items:         items,
		PaymentStatus: models.PaymentPaid,
	}
	require.NoError(t, stores.Orders.Insert(context.Background(), o))
	return o
}

func TestReduceForOrderDecrementsOnce(t *testing.T) {
	engine, stores := newEngine(t)
	ctx := context.Background()

	p := seedFlatProduct(t, stores, 10)
	order := seedPaidOrder(t, stores, []models.OrderItem{
		{ProductID: p.ID.Hex(), Name: p.Name, Quantity: 3},
	})

	results, performed, err := engine.ReduceForOrder(ctx, order)
	require.NoError(t, err)
	assert.True(t, performed)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, 10, results[0].OriginalStock)
	assert.Equal(t, 7, results[0].NewStock)

	// Rejeux : webhook dupliqué, polling, appel concurrent tardif
	for i := 0; i < 5; i++ {
		fresh, err := stores.Orders.FindByID(ctx, order.ID.Hex())
		require.NoError(t, err)

		results, performed, err = engine.ReduceForOrder(ctx, fresh)
		require.NoError(t, err)
		assert.False(t, performed)
		assert.Nil(t, results)
	}

	got, err := stores.Products.FindByID(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 7, got.Stock)
}

func TestReduceForOrderRequiresPaid(t *testing.T) {
	engine, stores := newEngine(t)

	p := seedFlatProduct(t, stores, 10)
	o := &models.Order{
		OrderNumber:   "LNT-TEST-0002",
		Items:         []models.OrderItem{{ProductID: p.ID.Hex(), Quantity: 1}},
		PaymentStatus: models.PaymentPending,
	}
	require.NoError(t, stores.Orders.Insert(context.Background(), o))

	_, performed, err := engine.ReduceForOrder(context.Background(), o)
	assert.ErrorIs(t, err, ErrOrderNotPaid)
	assert.False(t, performed)
}

func TestReduceVariantByColor(t *testing.T) {
	engine, stores := newEngine(t)
	ctx := context.Background()

	p := seedFrames(t, stores, []models.FrameColorVariant{
		{Color: "noir", Stock: 5},
		{Color: "doré", Stock: 2},
	})
	order := seedPaidOrder(t, stores, []models.OrderItem{
		{ProductID: p.ID.Hex(), Color: "noir", Quantity: 2},
	})

	results, performed, err := engine.ReduceForOrder(ctx, order)
	require.NoError(t, err)
	assert.True(t, performed)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, 3, results[0].NewStock)

	got, err := stores.Products.FindByID(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 3, got.FindVariant("noir").Stock)
	assert.Equal(t, 2, got.FindVariant("doré").Stock)
}

func TestReduceMissingVariantFailsLine(t *testing.T) {
	engine, stores := newEngine(t)

	p := seedFrames(t, stores, []models.FrameColorVariant{{Color: "noir", Stock: 5}})
	order := seedPaidOrder(t, stores, []models.OrderItem{
		{ProductID: p.ID.Hex(), Color: "rouge", Quantity: 1},
	})

	results, performed, err := engine.ReduceForOrder(context.Background(), order)
	require.NoError(t, err)
	assert.True(t, performed)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Equal(t, "Coloris introuvable", results[0].Reason)
}

func TestReduceMissingProductDoesNotBlockOtherLines(t *testing.T) {
	engine, stores := newEngine(t)
	ctx := context.Background()

	p := seedFlatProduct(t, stores, 10)
	order := seedPaidOrder(t, stores, []models.OrderItem{
		{ProductID: "000000000000000000000000", Name: "Produit supprimé", Quantity: 1},
		{ProductID: p.ID.Hex(), Name: p.Name, Quantity: 2},
	})

	results, performed, err := engine.ReduceForOrder(ctx, order)
	require.NoError(t, err)
	assert.True(t, performed)
	require.Len(t, results, 2)

	assert.False(t, results[0].Success)
	assert.Equal(t, "Produit introuvable", results[0].Reason)

	assert.True(t, results[1].Success)
	got, err := stores.Products.FindByID(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 8, got.Stock)
}

func TestReduceClampsAtZero(t *testing.T) {
	engine, stores := newEngine(t)
	ctx := context.Background()

	// Survente : seulement 2 en stock pour 5 commandés
	p := seedFlatProduct(t, stores, 2)
	order := seedPaidOrder(t, stores, []models.OrderItem{
		{ProductID: p.ID.Hex(), Quantity: 5},
	})

	results, performed, err := engine.ReduceForOrder(ctx, order)
	require.NoError(t, err)
	assert.True(t, performed)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, 0, results[0].NewStock)

	got, err := stores.Products.FindByID(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
}

func TestReduceAcrossVariantsInCatalogOrder(t *testing.T) {
	engine, stores := newEngine(t)
	ctx := context.Background()

	p := seedFrames(t, stores, []models.FrameColorVariant{
		{Color: "noir", Stock: 2},
		{Color: "écaille", Stock: 3},
	})
	// Ligne sans coloris : consommation gloutonne dans l'ordre du catalogue
	order := seedPaidOrder(t, stores, []models.OrderItem{
		{ProductID: p.ID.Hex(), Quantity: 4},
	})

	results, performed, err := engine.ReduceForOrder(ctx, order)
	require.NoError(t, err)
	assert.True(t, performed)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, 5, results[0].OriginalStock)
	assert.Equal(t, 1, results[0].NewStock)

	got, err := stores.Products.FindByID(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 0, got.FindVariant("noir").Stock)
	assert.Equal(t, 1, got.FindVariant("écaille").Stock)
}

func TestReduceRecordsMovements(t *testing.T) {
	engine, stores := newEngine(t)
	ctx := context.Background()

	p := seedFlatProduct(t, stores, 10)
	order := seedPaidOrder(t, stores, []models.OrderItem{
		{ProductID: p.ID.Hex(), Quantity: 4},
	})

	_, performed, err := engine.ReduceForOrder(ctx, order)
	require.NoError(t, err)
	require.True(t, performed)

	movements, err := stores.Inventory.ListMovements(ctx, p.ID.Hex(), 10)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, "order", movements[0].Type)
	assert.Equal(t, -4, movements[0].Quantity)
	assert.Equal(t, 10, movements[0].PrevStock)
	assert.Equal(t, 6, movements[0].NewStock)
}

func TestConcurrentOrdersNeverDriveStockNegative(t *testing.T) {
	engine, stores := newEngine(t)
	ctx := context.Background()

	// Deux commandes payées distinctes en course sur le même produit :
	// le clamp est appliqué dans l'écriture du store, jamais de négatif.
	p := seedFlatProduct(t, stores, 3)
	orders := []*models.Order{
		seedPaidOrder(t, stores, []models.OrderItem{{ProductID: p.ID.Hex(), Quantity: 2}}),
		seedPaidOrder(t, stores, []models.OrderItem{{ProductID: p.ID.Hex(), Quantity: 2}}),
	}

	var wg sync.WaitGroup
	for _, o := range orders {
		wg.Add(1)
		go func(o *models.Order) {
			defer wg.Done()
			_, _, err := engine.ReduceForOrder(ctx, o)
			assert.NoError(t, err)
		}(o)
	}
	wg.Wait()

	got, err := stores.Products.FindByID(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)

	// Les mouvements tracent exactement les 3 unités réellement sorties
	movements, err := stores.Inventory.ListMovements(ctx, p.ID.Hex(), 10)
	require.NoError(t, err)
	total := 0
	for _, m := range movements {
		total += m.Quantity
	}
	assert.Equal(t, -3, total)
}

func TestConcurrentReduceDecrementsExactlyOnce(t *testing.T) {
	engine, stores := newEngine(t)
	ctx := context.Background()

	p := seedFlatProduct(t, stores, 10)
	order := seedPaidOrder(t, stores, []models.OrderItem{
		{ProductID: p.ID.Hex(), Quantity: 3},
	})

	const workers = 16
	var wg sync.WaitGroup
	performedCount := make(chan bool, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fresh, err := stores.Orders.FindByID(ctx, order.ID.Hex())
			if err != nil {
				return
			}
			_, performed, err := engine.ReduceForOrder(ctx, fresh)
			if err == nil && performed {
				performedCount <- true
			}
		}()
	}
	wg.Wait()
	close(performedCount)

	assert.Equal(t, 1, len(performedCount), "le décrément doit avoir lieu exactement une fois")

	got, err := stores.Products.FindByID(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 7, got.Stock)
}
