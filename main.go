package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"lg/health-planner-api/internal/backend"
	"lg/health-planner-api/internal/config"
	"lg/health-planner-api/internal/notify"
	"lg/health-planner-api/internal/session"
)

// getDBPool creates a connection pool. We use a pool (not a single conn) because
// hosted Postgres closes idle connections after a few minutes.
func getDBPool(dbURL string) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to parse DB URL: %v\n", err)
		os.Exit(1)
	}
	// Simple protocol avoids "cached plan must not change result type" errors
	// from server-side prepared statement caches after migrations.
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("DB pool ready!")
	return pool
}

func main() {
	log.SetPrefix("health-planner-api: ")

	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var store notify.Store
	if cfg.DBURL != "" {
		pool := getDBPool(cfg.DBURL)
		defer pool.Close()
		store = notify.NewPGScheduler(pool)
	} else {
		log.Printf("DB_URL not set; reminders are kept in memory")
		store = notify.NewMemoryScheduler()
	}

	var sender notify.Sender = notify.LogSender{}
	if cfg.TelegramEnabled() {
		tg, err := notify.NewTelegramSender(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			log.Fatalf("telegram: %v", err)
		}
		sender = tg
	}

	dispatcher, err := notify.NewDispatcher(store, sender, cfg.ReminderSchedule)
	if err != nil {
		log.Fatalf("reminders: %v", err)
	}
	dispatcher.Start()
	defer dispatcher.Stop()

	api := backend.NewClient(cfg.HealthAPIURL)
	if cfg.JWTSecret == "" {
		log.Printf("HEALTH_JWT_SECRET not set; bearer tokens are verified with the health service")
	}
	h := newHandler(api, session.NewParser(cfg.JWTSecret, api), store)

	router := gin.Default()
	router.SetTrustedProxies(nil)
	h.registerRoutes(router)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE"},
		AllowedHeaders: []string{"*"},
	})

	log.Printf("Server starting on port %s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, c.Handler(router)); err != nil {
		log.Printf("server stopped: %v", err)
	}
}
