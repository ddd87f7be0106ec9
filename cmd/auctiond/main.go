package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pitchside/auctiond/internal/announce"
	"github.com/pitchside/auctiond/internal/api"
	"github.com/pitchside/auctiond/internal/clock"
	"github.com/pitchside/auctiond/internal/config"
	"github.com/pitchside/auctiond/internal/health"
	"github.com/pitchside/auctiond/internal/hub"
	"github.com/pitchside/auctiond/internal/leader"
	"github.com/pitchside/auctiond/internal/roster"
	"github.com/pitchside/auctiond/internal/session"
	"github.com/pitchside/auctiond/internal/store"
	"github.com/pitchside/auctiond/internal/telemetry"

	// Register store drivers so they are available via store.Open.
	_ "github.com/pitchside/auctiond/internal/store/memory"
	_ "github.com/pitchside/auctiond/internal/store/postgres"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		slog.Error("fatal error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	tp, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry setup failed, continuing without OTEL export", slog.Any("error", err))
		tp = telemetry.NewNopProvider()
	}
	defer func() {
		if shutdownErr := tp.Shutdown(context.Background()); shutdownErr != nil {
			slog.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	logger := tp.Logger
	clk := clock.Real{}

	repos, err := store.Open(ctx, cfg.Database, clk)
	if err != nil {
		return fmt.Errorf("opening store (driver=%s): %w", cfg.Database.Driver, err)
	}
	if repos.Closer != nil {
		defer repos.Closer.Close()
	}
	logger.InfoContext(ctx, "store opened", slog.String("driver", cfg.Database.Driver))

	engine := session.NewEngine(repos, session.Config{
		SoldDelay:   cfg.Auction.SoldDelay,
		UnsoldDelay: cfg.Auction.UnsoldDelay,
	}, logger, tp.TracerProvider, clk)

	manager := roster.NewManager(repos, roster.Config{
		DefaultBasePrice: cfg.Auction.DefaultBasePrice,
		DefaultWallet:    cfg.Auction.DefaultWallet,
	}, logger, tp.TracerProvider)

	spectators := hub.New(engine, repos.Teams, logger)
	apiServer := api.NewServer(engine, manager, spectators, logger, cfg.Auction.BidIncrements...)

	checks := []health.Check{}
	if repos.Ping != nil {
		checks = append(checks, health.Check{Name: "store", Probe: repos.Ping})
	}
	healthHandler := health.NewHandler(clk, checks...)

	// Probes run on every replica, leader or not.
	healthServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HealthPort),
		Handler:           healthHandler.Mux(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.InfoContext(ctx, "starting health server", slog.Int("port", cfg.Server.HealthPort))
		if listenErr := healthServer.ListenAndServe(); listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
			logger.ErrorContext(ctx, "health server error", slog.Any("error", listenErr))
		}
	}()

	// serve is the work only the auction leader runs: recover any live lot,
	// open the API and spectator server, and announce sales.
	serve := func(ctx context.Context) {
		healthHandler.SetLeader(true)
		defer healthHandler.SetLeader(false)

		if recovered, recoverErr := engine.RecoverLiveLot(ctx); recoverErr != nil {
			logger.ErrorContext(ctx, "lot recovery failed", slog.Any("error", recoverErr))
		} else if recovered {
			logger.InfoContext(ctx, "resumed a live lot from a previous leader")
		}

		var announcer *announce.Announcer
		if cfg.Discord.Enabled {
			var annErr error
			announcer, annErr = announce.New(cfg.Discord.Token, cfg.Discord.ChannelID, engine, logger)
			if annErr == nil {
				annErr = announcer.Start(ctx)
			}
			if annErr != nil {
				logger.ErrorContext(ctx, "discord announcer failed, continuing without it", slog.Any("error", annErr))
				announcer = nil
			}
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           apiServer.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.InfoContext(ctx, "starting api server", slog.Int("port", cfg.Server.Port))
			if listenErr := srv.ListenAndServe(); listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
				logger.ErrorContext(ctx, "api server error", slog.Any("error", listenErr))
			}
		}()

		healthHandler.SetReady(true)
		logger.InfoContext(ctx, "auctiond is running", slog.String("version", version))

		// Block until leadership is lost or the process is shutting down.
		<-ctx.Done()
		healthHandler.SetReady(false)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Error("api server shutdown error", slog.Any("error", shutdownErr))
		}
		if announcer != nil {
			if stopErr := announcer.Stop(); stopErr != nil {
				logger.Error("announcer shutdown error", slog.Any("error", stopErr))
			}
		}
	}

	if cfg.LeaderElection.Enabled {
		logger.InfoContext(ctx, "leader election enabled, waiting for the lease")
		if leaderErr := leader.Run(ctx, cfg.LeaderElection, logger, serve, func() {
			logger.Info("lost leadership, shutting down")
			cancel()
		}); leaderErr != nil {
			return fmt.Errorf("leader election: %w", leaderErr)
		}
	} else {
		serve(ctx)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("health server shutdown error", slog.Any("error", err))
	}

	logger.Info("shutdown complete")
	return nil
}
