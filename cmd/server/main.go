package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/zentro/zentro-api/internal/audit"
	"github.com/zentro/zentro-api/internal/auth"
	"github.com/zentro/zentro-api/internal/config"
	"github.com/zentro/zentro-api/internal/database"
	"github.com/zentro/zentro-api/internal/handler"
	"github.com/zentro/zentro-api/internal/middleware"
	"github.com/zentro/zentro-api/internal/repository"
	"github.com/zentro/zentro-api/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	// config.Load() fatals on any missing required variable.
	_ = godotenv.Load()
	cfg := config.Load()
	log.Printf("starting with config: %v", cfg.Redacted())

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	tokenSvc := &auth.TokenService{
		Secret:         cfg.JWTSecret,
		AccessTTLMin:   cfg.AccessTTLMin,
		RefreshTTLDays: cfg.RefreshTTLDays,
	}

	// Redis backs the token blacklist and the rate limiter. When it is
	// unreachable the blacklist degrades to the in-process store and the
	// limiter is disabled; authentication itself keeps working.
	rdb := config.NewRedisClient()
	var blacklist auth.Blacklist
	var rateLimit echo.MiddlewareFunc
	if rdb != nil {
		blacklist = auth.NewRedisBlacklist(rdb)
		rateLimit = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	} else {
		log.Print("redis unavailable; using in-memory blacklist, rate limiting disabled")
		blacklist = auth.NewMemoryBlacklist()
	}

	recorder := audit.NewAMQPRecorder(cfg.AMQPURL, cfg.AuditQueue)
	defer recorder.Close()
	go audit.StartConsumer(cfg.AMQPURL, cfg.AuditQueue, cfg.AuditLogFile)

	e := echo.New()
	router.Register(e, router.Deps{
		Auth:      handler.NewAuthHandler(cfg, users, tokens, tokenSvc, blacklist),
		Users:     handler.NewUserHandler(cfg, users, tokens),
		TokenSvc:  tokenSvc,
		Blacklist: blacklist,
		Loader:    users,
		Audit:     recorder,
		RateLimit: rateLimit,
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
