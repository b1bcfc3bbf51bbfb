package app

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"fido2backend/config"
	"fido2backend/db"
	"fido2backend/session"
	"fido2backend/token"
	"fido2backend/webauthn"
)

type Ctx = gin.Context
type H = gin.H

// App aggregates the process-wide dependencies.
type App struct {
	Router *gin.Engine
	DB     *gorm.DB
	RDB    *redis.Client
	Repo   *db.Repo
	Engine *webauthn.Engine
	Tokens *token.Issuer
	Config config.Config
}

func MustNew() *App {
	cfg := config.Load()

	conn := db.ConnectDB(cfg)
	repo := db.NewRepo(conn)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis: %v", err)
	}

	tokens, err := token.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}

	engine, err := webauthn.NewEngine(webauthn.Config{
		RPID:         cfg.RPID,
		RPName:       cfg.RPName,
		RPOrigins:    cfg.RPOrigins,
		ChallengeTTL: cfg.ChallengeTTL,
	}, session.NewChallengeStore(rdb), repo, tokens)
	if err != nil {
		log.Fatalf("webauthn: %v", err)
	}

	r := gin.Default()
	useCORS(r, cfg.RPOrigins)

	return &App{
		Router: r, DB: conn, RDB: rdb, Repo: repo,
		Engine: engine, Tokens: tokens, Config: cfg,
	}
}

func (a *App) Close() { _ = a.RDB.Close() }
