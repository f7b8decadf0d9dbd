package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ariadne/config"
	"ariadne/controllers"
	dbpkg "ariadne/db"
	"ariadne/middleware"
	"ariadne/reset"
	"ariadne/router"
	"ariadne/workers"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// Two run modes sharing one binary and one database:
//
//	ariadne api     -> HTTP service (reset endpoints + account surface)
//	ariadne worker  -> delivery dispatcher poll loop + telegram bot
//
// The processes never talk to each other; the reset_tokens table is the only
// shared state.
//
// ENV: CONFIG (path to config.json, default "config.json"), plus the secret
// overrides read by config.Get (JWT_SECRET, BOT_TOKEN, SMTP_PASS).
// AUTOMIGRATE=1 enables the gorm automigrate in dev.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env file:", err)
	}

	mode := "api"
	if len(os.Args) >= 2 {
		mode = os.Args[1]
	}

	cfg := config.Get(getenv("CONFIG", "config.json"))
	dbpkg.SetConfigurations(cfg)

	database, err := dbpkg.Connect()
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	store := reset.NewStore(database)
	issuer := reset.NewIssuer(store,
		time.Duration(cfg.Reset.ExpiryMinutes)*time.Minute,
		cfg.FrontendBase, cfg.ResetPath)
	validator := reset.NewValidator(store)

	switch mode {
	case "api":
		runApi(cfg, database, issuer, validator)
	case "worker":
		runWorker(cfg, database, store, issuer)
	default:
		log.Printf("Usage: ariadne [api|worker]")
		os.Exit(2)
	}
}

func runApi(cfg config.Configuration, database *gorm.DB, issuer *reset.Issuer, validator *reset.Validator) {
	controllers.Setup(cfg, issuer, validator)

	var limiter *middleware.RateLimiter
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		limiter = middleware.NewRateLimiter(client, "ariadne-rate:",
			cfg.Security.ForgotRateLimit,
			time.Duration(cfg.Security.ForgotRateWinSec)*time.Second)
		log.Printf("Forgot-password rate limiting enabled (redis %s)", cfg.RedisAddr)
	}

	r := gin.New()
	r.Use(dbpkg.SetDBtoContext(database))
	router.Initialize(r, cfg, limiter)

	log.Printf("Ariadne api listening on :%s", cfg.ApiPort)
	log.Fatal(r.Run(":" + cfg.ApiPort))
}

func runWorker(cfg config.Configuration, database *gorm.DB, store *reset.Store, issuer *reset.Issuer) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dispatcher := reset.NewDispatcher(store, workers.NewChannels(cfg),
		cfg.Reset.BatchLimit, cfg.Reset.MaxSendAttempts)

	if cfg.Telegram.BotToken != "" {
		bot := workers.NewTelegramBot(cfg, database, issuer)
		go bot.Run(ctx)
	} else {
		log.Printf("Telegram bot disabled (no bot token)")
	}

	workers.RunDeliveryWorker(ctx, store, dispatcher, cfg)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
