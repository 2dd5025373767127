package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v83"

	"lunetier_back_end/internal/config"
	"lunetier_back_end/internal/database"
	"lunetier_back_end/internal/events"
	"lunetier_back_end/internal/payment"
	"lunetier_back_end/internal/routes"
	"lunetier_back_end/internal/services/checkout"
	"lunetier_back_end/internal/services/notify"
	"lunetier_back_end/internal/services/stock"
	"lunetier_back_end/internal/store"
	"lunetier_back_end/internal/utils"
)

func main() {
	config.Load()

	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
	if stripe.Key == "" {
		log.Fatal("❌ Impossible d'initialiser Stripe : clé manquante")
	}
	log.Println("✅ Stripe initialisé")

	database.ConnectDatabases()

	stores := store.NewMongoStores(database.MongoDB)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := stores.EnsureIndexes(ctx); err != nil {
		log.Fatalf("❌ Création des index Mongo impossible: %v", err)
	}
	cancel()

	provider := payment.NewStripeProvider()
	engine := stock.NewEngine(stores.Products, stores.Orders, stores.Inventory)
	notifier := notify.NewDispatcher(&utils.InvoiceMailer{}, utils.NewChatNotifier())
	reconciler := checkout.NewReconciler(stores.Orders, engine, notifier, provider)
	checkoutSvc := checkout.NewService(stores.Products, stores.Orders, stores.Promotions, provider)

	bus := events.NewBus()
	busCtx, stopBus := context.WithCancel(context.Background())
	if database.Redis != nil {
		go bus.BridgeRedis(busCtx, database.Redis, events.TopicOrders, events.TopicPromotions)
	}

	r := gin.Default()
	routes.RegisterRoutes(r, routes.Deps{
		Stores:     stores,
		Checkout:   checkoutSvc,
		Reconciler: reconciler,
		Provider:   provider,
		Bus:        bus,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	go func() {
		log.Println("🚀 Serveur Lunetier lancé sur le port", port)
		if err := r.Run(":" + port); err != nil {
			log.Fatalf("❌ Serveur arrêté: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Arrêt en cours...")
	stopBus()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	database.Disconnect(shutdownCtx)
}
