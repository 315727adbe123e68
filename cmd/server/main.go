package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/arn384/Buy-Sell-Website/internal/api"
	"github.com/arn384/Buy-Sell-Website/internal/auth"
	"github.com/arn384/Buy-Sell-Website/internal/config"
	"github.com/arn384/Buy-Sell-Website/internal/db"
	"github.com/arn384/Buy-Sell-Website/internal/orders"
)

// Main entry point: sets up database, services, and HTTP server
func main() {
	ctx := context.Background()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := config.Load()

	// Initialize database connection
	database, err := db.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(ctx)

	// Initialize services
	authService := auth.NewAuthService(database, cfg.JWTSecret, cfg.EmailDomain)
	orderService := orders.NewService(database)

	// Initialize API handlers
	handler := api.NewHandler(database, orderService, authService, logger)

	// Set up HTTP router
	r := chi.NewRouter()
	r.Use(api.RequestID(logger))

	// Enable CORS for the browser client
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public endpoints
	r.With(api.LoginRateLimit(cfg.LoginRateLimit)).Post("/auth/login", handler.Login)
	r.Post("/auth/register", handler.Register)

	// Protected endpoints (require a bearer token)
	r.Group(func(r chi.Router) {
		r.Use(handler.JWTAuthMiddleware)
		r.Get("/profile", handler.GetProfile)
		r.Put("/profile", handler.UpdateProfile)
		r.Get("/items", handler.ListItems)
		r.Get("/items/{id}", handler.GetItem)
		r.Post("/cart/add", handler.AddToCart)
		r.Get("/cart", handler.GetCart)
		r.Delete("/cart/{itemId}", handler.RemoveFromCart)
		r.Post("/orders/place", handler.PlaceOrders)
		r.Get("/orders", handler.GetOrders)
		r.Post("/orders/complete/{orderId}", handler.CompleteOrder)
	})

	// Start server
	logger.Info("starting server", zap.String("addr", cfg.HTTPAddr))
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
