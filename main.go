package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/cart"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/handlers"
	"storefront/internal/invoice"
	"storefront/internal/payment"
	"storefront/internal/repository"
	"storefront/internal/services"
	"storefront/internal/storage"
)

func main() {
	config.Load()
	if err := config.AppEnv.Validate(); err != nil {
		log.Fatal(err)
	}
	cfg := config.AppEnv

	store, client := openStore(cfg)

	var gateway payment.Gateway
	if cfg.StripeSecretKey != "" && cfg.StripeWebhookSecret != "" {
		gateway = payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	}

	var images storage.ImageStore
	if cfg.CloudinaryCloudName != "" {
		cld, err := storage.NewCloudinary(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			log.Println("⚠️ cloudinary disabled:", err)
		} else {
			images = cld
		}
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.RabbitMQURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.RabbitMQURL)
		if err != nil {
			log.Println("⚠️ order events disabled:", err)
		} else {
			publisher = amqpPublisher
		}
	}

	catalog := services.NewCatalogService(store.Products, images)
	router := handlers.NewRouter(handlers.Deps{
		Store:    store,
		Catalog:  catalog,
		Cart:     cart.NewManager(catalog),
		Checkout: services.NewCheckoutService(store, gateway, publisher, services.CheckoutConfig{
			Currency:    cfg.PaymentCurrency,
			SuccessURL:  cfg.SuccessURL(),
			CancelURL:   cfg.CancelURL(),
			DesignHosts: cfg.DesignImageHosts,
		}),
		Orders:  services.NewOrderService(store, invoice.NewRenderer(invoice.NewHTTPImageFetcher(cfg.DesignImageHosts)), publisher, cfg.StoreName),
		Users:   services.NewUserService(store.Users, store.Products),
		Auth:    services.NewAuthService(store.Users, cfg.JWTSecret, cfg.AccessTokenTTL),
		Admin:   services.NewAdminService(store),
		Uploads: services.NewUploadService(images),

		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins,
		StoreName:      cfg.StoreName,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Println("Listening on", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Println("http shutdown:", err)
	}
	if err := publisher.Close(); err != nil {
		log.Println("events shutdown:", err)
	}
	if client != nil {
		if err := client.Disconnect(ctx); err != nil {
			log.Println("mongo disconnect:", err)
		}
	}
}

// openStore connects to MongoDB when MONGO_URI is set and falls back to the
// in-memory store otherwise.
func openStore(cfg config.Config) (*repository.Store, *mongo.Client) {
	if cfg.MongoURI == "" {
		return repository.NewMemoryStore(), nil
	}

	client, err := database.Connect(cfg.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(cfg.DBName)
	log.Println("MongoDB connected to:", db.Name())

	for _, err := range database.EnsureIndexes(db) {
		log.Println("⚠️ index warning:", err)
	}
	return repository.NewMongoStore(db, cfg.MongoTransactions), client
}
