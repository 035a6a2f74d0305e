package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/migchat/migchat-backend/internal/config"
	"github.com/migchat/migchat-backend/internal/database"
	"github.com/migchat/migchat-backend/internal/handlers"
	"github.com/migchat/migchat-backend/internal/middleware"
	"github.com/migchat/migchat-backend/internal/routes"
	"github.com/migchat/migchat-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	log.Printf("Connecting to PostgreSQL...")
	db, err := database.ConnectPostgres(cfg.PostgresURI)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL:", err)
	}
	defer db.Close()

	// Redis is optional: without it sessions skip the cache and message
	// push stays instance-local.
	log.Printf("Connecting to Redis...")
	redisClient, err := database.ConnectRedis(cfg.RedisURI)
	if err != nil {
		log.Printf("Warning: Redis unavailable (%v); session cache and cross-instance push disabled", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	tokens := services.NewTokenGenerator()
	credentials := services.NewCredentialStore(db)
	sessions := services.NewSessionStore(db, tokens, redisClient)
	messages := services.NewMessageStore(db)
	bundles := services.NewKeyBundleStore(db)
	exchange := services.NewKeyExchangeService(bundles)

	hub := services.NewHub(redisClient)
	hub.StartSubscriber(context.Background())

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity() {
			r.Use(mw)
		}
		log.Println("Production security enabled (security headers, per-IP + auth rate limiting)")
	}

	routes.Setup(r, routes.Deps{
		Account:  &handlers.AccountHandler{Credentials: credentials, Sessions: sessions},
		Messages: &handlers.MessageHandler{Messages: messages, Credentials: credentials, Hub: hub},
		Keys:     &handlers.KeysHandler{Publisher: bundles, Exchange: exchange},
		WS:       &handlers.WSHandler{Sessions: sessions, Hub: hub},
		Sessions: sessions,
	})

	log.Printf("migchat backend running on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
