// Package main runs the bike price form as a local HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"bike-predict/internal/config"
	"bike-predict/internal/form"
	"bike-predict/internal/handlers"
	"bike-predict/internal/services/database"
	"bike-predict/internal/services/predictor"
	s3service "bike-predict/internal/services/s3"
	"bike-predict/internal/services/ses"
	"bike-predict/internal/utils"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := utils.InitLogger(cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer utils.Sync()
	logger := utils.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := predictor.NewClientFromConfig(cfg)

	var (
		opts     []form.Option
		srvOpts  []handlers.ServerOption
		dbHealth handlers.Pinger
	)

	if cfg.DatabaseEnabled() {
		db, err := database.New(ctx, cfg)
		if err != nil {
			logger.Warn("Could not connect to database, running without valuation history", utils.Error(err))
		} else {
			defer db.Close()
			if err := db.Migrate(ctx); err != nil {
				return err
			}
			repo := database.NewValuationRepository(db)
			opts = append(opts, form.WithRecorder(repo))
			srvOpts = append(srvOpts, handlers.WithHistory(repo))
			dbHealth = db
		}
	}

	if cfg.S3Bucket != "" {
		exporter, err := s3service.NewService(ctx, cfg)
		if err != nil {
			logger.Warn("S3 export disabled", utils.Error(err))
		} else {
			srvOpts = append(srvOpts, handlers.WithExporter(exporter))
		}
	}

	if cfg.SESSenderEmail != "" {
		mailer, err := ses.NewService(ctx, cfg)
		if err != nil {
			logger.Warn("Email quotes disabled", utils.Error(err))
		} else {
			srvOpts = append(srvOpts, handlers.WithMailer(mailer))
		}
	}

	opts = append(opts, form.WithResultDelay(cfg.ResultDelay))
	store := form.NewStore(cfg.SessionTTL, func(id string) *form.Controller {
		return form.New(client, append([]form.Option{form.WithID(id)}, opts...)...)
	})

	srvOpts = append(srvOpts, handlers.WithSecureCookies(cfg.Stage == "prod"))
	server := handlers.NewServer(store, handlers.NewHealthHandler(client, dbHealth), srvOpts...)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		Handler:           c.Handler(server.Handler(logger)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Bike Predict server starting",
		utils.String("addr", httpServer.Addr),
		utils.String("predictor", client.BaseURL()),
		utils.Bool("history", dbHealth != nil),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		store.Run(gctx, time.Minute)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
