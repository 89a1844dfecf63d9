package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairwaygames/stakebook/internal/api"
	"github.com/fairwaygames/stakebook/internal/config"
	"github.com/fairwaygames/stakebook/internal/events"
	"github.com/fairwaygames/stakebook/internal/infra/logging"
	"github.com/fairwaygames/stakebook/internal/infra/pgutils"
	"github.com/fairwaygames/stakebook/internal/services/commit"
	"github.com/fairwaygames/stakebook/internal/services/verification"
	"github.com/fairwaygames/stakebook/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	cfg := new(config.API)

	err := config.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	err = logging.Setup(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	db, err := pgutils.OpenDB(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	shutdownqueue.Add(func(context.Context) error {
		slog.Info("closing db pool")
		return db.Close()
	})

	// Event publishing is optional: without a broker URL, commits simply
	// don't emit lifecycle events.
	var pub commit.Publisher

	if cfg.AMQPURL != "" {
		p, err := events.NewPublisher(cfg.AMQPURL)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}

		shutdownqueue.Add(func(context.Context) error {
			slog.Info("closing event publisher")
			return p.Close()
		})

		pub = p
	}

	commitSvc := commit.New(db, pub)

	// Verification endpoints are mounted only when Redis is reachable.
	var verifySvc api.VerificationService

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()

		if err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}

		shutdownqueue.Add(func(context.Context) error {
			slog.Info("closing redis client")
			return rdb.Close()
		})

		sender := &verification.SMTPSender{Addr: cfg.SMTP.Addr, From: cfg.SMTP.From}
		verifySvc = verification.New(verification.NewRedisStore(rdb), sender, cfg.VerificationTTL)
	}

	// --- HTTP server ---
	srv := api.NewServer(cfg.Port, commitSvc, verifySvc)

	shutdownqueue.Add(func(c context.Context) error {
		slog.Info("shutting down server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("API started", "port", cfg.Port)

	// --- Wait until either context cancels or server errors out ---
	select {
	case <-ctx.Done():
		// graceful path; deferred shutdownqueue.Shutdown will run
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}
