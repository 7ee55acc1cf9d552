package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	app "github.com/cassiomorais/purchases/internal/application/purchase"
	"github.com/cassiomorais/purchases/internal/billers"
	"github.com/cassiomorais/purchases/internal/bootstrap"
	"github.com/cassiomorais/purchases/internal/controller"
	"github.com/cassiomorais/purchases/internal/digest"
	"github.com/cassiomorais/purchases/internal/fraud"
	infraRedis "github.com/cassiomorais/purchases/internal/infrastructure/redis"
	"github.com/cassiomorais/purchases/internal/repository/postgres"
)

func main() {
	ctx := context.Background()

	boot, err := bootstrap.New(ctx, "purchases-api", "purchases")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer boot.Close()

	cfg := boot.Config

	// --- Infrastructure ---
	sessionStore := infraRedis.NewSessionRepository(boot.Redis, cfg.Purchase.SessionTTL)
	outcomeProducer := infraRedis.NewOutcomeProducer(boot.Redis)
	archiveRepo := postgres.NewArchiveRepository(boot.Pool)
	signer := digest.NewSigner(cfg.Digest.SiteKeys)

	// --- Billers and cascade ---
	billerFactory := billers.NewFactory()
	cascadeResolver := billers.NewStaticCascadeResolver(
		billerFactory,
		cfg.Purchase.CascadeOrder,
		cfg.Purchase.CurrencyOverrides,
	)

	// --- Fraud ---
	fraudAdvisor := fraud.NewRuleAdvisor(fraud.RuleAdvisorConfig{
		BlacklistedEmails:  cfg.Fraud.BlacklistedEmails,
		BlacklistedIPs:     cfg.Fraud.BlacklistedIPs,
		ForceThreeDSites:   cfg.Fraud.ForceThreeDSites,
		CaptchaOnInitSites: cfg.Fraud.CaptchaOnInitSites,
	})

	// --- Use cases ---
	appCfg := app.Config{
		FraudChecksEnabled: cfg.Fraud.Enabled,
		ThreeDMandated:     cfg.Purchase.ThreeDMandated,
		MaxBillerSubmits:   cfg.Purchase.MaxBillerSubmits,
	}
	initUC := app.NewInitPurchaseUseCase(sessionStore, cascadeResolver, billerFactory, fraudAdvisor, appCfg, boot.Logger)
	newUC := app.NewProcessNewPaymentUseCase(sessionStore, billerFactory, fraudAdvisor, outcomeProducer, archiveRepo, appCfg, boot.Logger)
	existingUC := app.NewProcessExistingPaymentUseCase(sessionStore, billerFactory, fraudAdvisor, outcomeProducer, archiveRepo, appCfg, boot.Logger)
	threeDUC := app.NewCompleteThreeDUseCase(sessionStore, billerFactory, outcomeProducer, archiveRepo, boot.Logger)
	postbackUC := app.NewThirdPartyPostbackUseCase(sessionStore, outcomeProducer, archiveRepo, boot.Logger)
	rebillUC := app.NewThirdPartyRebillUseCase(sessionStore, outcomeProducer, archiveRepo, boot.Logger)

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:        boot.Pool,
		RedisClient: boot.Redis,
		InitUC:      initUC,
		NewUC:       newUC,
		ExistingUC:  existingUC,
		ThreeDUC:    threeDUC,
		PostbackUC:  postbackUC,
		RebillUC:    rebillUC,
		Signer:      signer,
		Metrics:     boot.Metrics,
		CORSConfig:  cfg.Server.CORS,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		boot.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			boot.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	boot.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		boot.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	boot.Logger.Info().Msg("Server exited")
}
