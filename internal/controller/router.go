package controller

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/cassiomorais/purchases/internal/digest"
	"github.com/cassiomorais/purchases/internal/infrastructure/config"
	"github.com/cassiomorais/purchases/internal/infrastructure/observability"
	customMW "github.com/cassiomorais/purchases/internal/middleware"
)

type RouterDeps struct {
	Pool        *pgxpool.Pool
	RedisClient *redis.Client
	InitUC      UseCase
	NewUC       UseCase
	ExistingUC  UseCase
	ThreeDUC    UseCase
	PostbackUC  UseCase
	RebillUC    UseCase
	Signer      *digest.Signer
	Metrics     *observability.Metrics
	CORSConfig  config.CORSConfig
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	purchaseH := NewPurchaseController(
		deps.InitUC, deps.NewUC, deps.ExistingUC,
		deps.ThreeDUC, deps.PostbackUC, deps.RebillUC,
		deps.Signer,
	)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/purchase", func(r chi.Router) {
		r.Post("/init", purchaseH.Init)
		r.Post("/{sessionId}/process", purchaseH.Process)
		r.Post("/{sessionId}/threed-complete", purchaseH.CompleteThreeD)
		r.Post("/{sessionId}/postback", purchaseH.Postback)
		r.Post("/{sessionId}/rebill", purchaseH.Rebill)
	})

	return r
}
