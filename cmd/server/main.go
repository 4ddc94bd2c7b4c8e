package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/config"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/infra"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/router"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: pretty in dev, JSON in prod
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	cbCfg := infra.DefaultCBConfig()
	cbCfg.FailureThreshold = cfg.CBFailureThreshold
	cbCfg.OpenTimeout = cfg.CBOpenTimeout()
	retailCB := infra.NewCircuitBreaker(cbCfg)
	retail := infra.NewRetailClient(infra.RetailConfig{
		BaseURL:       cfg.RetailAPIURL,
		Token:         cfg.RetailAPIToken,
		Timeout:       cfg.RetailTimeout(),
		LookupRetries: cfg.RetailLookupRetries,
	}, retailCB)

	svcs := router.NewServices(cfg, db, rdb, retail)

	// Background goroutines: ticket/email worker pool and the credit-note
	// follow-up cron. Handlers are wired here (composition root).
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mailer := infra.NewMailer(cfg)
	ticketW := worker.NewTicketWorker(svcs.CambioRepo, svcs.Dispatcher, cfg.PDFStoragePath, cfg.NombreTienda)
	emailW := worker.NewEmailWorker(mailer)
	worker.NewPool(rdb, map[string]worker.Handler{
		worker.JobTicket: ticketW.Process,
		worker.JobEmail:  emailW.Process,
	}).Start(ctx, cfg.WorkerPoolSize)

	worker.StartRetryCron(ctx, worker.RetryCronConfig{
		Cambios:   svcs.CambioRepo,
		Seguidor:  svcs.Cambios,
		Circuito:  retail.Circuit,
		RDB:       rdb,
		Intervalo: cfg.SeguimientoIntervalo(),
	})

	r := router.New(cfg, db, rdb, retailCB, svcs)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RetailTimeout()*3 + 10*time.Second, // confirm may chain three retail calls
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("cambios backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("redis close")
	}
	log.Info().Msg("server exited")
}
