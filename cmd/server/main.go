package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/ai"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/config"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/database"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/repository"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/server"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/session"
)

const sweepInterval = time.Minute

func main() {
	ensureEnvFile()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := ai.NewClient(ctx, cfg.AI)
	if err != nil {
		logger.Error("failed to create ai client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var aiLog repository.AIRequestLog = repository.NewMemoryAIRepository()
	if cfg.Audit.Store == config.AuditStorePostgres {
		db, err := database.Open(ctx, cfg.Audit.Database)
		if err != nil {
			logger.Error("failed to connect to database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer db.Close()

		if err := database.EnsureSchema(ctx, db); err != nil {
			logger.Error("failed to prepare database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		aiLog = repository.NewAIRepository(db)
	}

	users := repository.NewUserRepository()
	portfolio := repository.NewBeneficiaryRepository()
	if err := repository.Seed(ctx, users, portfolio); err != nil {
		logger.Error("failed to seed demo data", slog.String("error", err.Error()))
		os.Exit(1)
	}

	sessions := session.NewStore(session.StoreOptions{
		TTL:           cfg.Auth.SessionTTL,
		MaxImageBytes: cfg.Uploads.MaxImageBytes,
	})

	e := server.New(cfg, logger, server.Deps{
		Client:    client,
		AILog:     aiLog,
		Users:     users,
		Portfolio: portfolio,
		Sessions:  sessions,
	})
	httpServer := server.NewHTTPServer(cfg.Server, e)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		sweepSessions(groupCtx, sessions, logger)
		return nil
	})

	group.Go(func() error {
		logger.Info("http server started",
			slog.String("addr", httpServer.Addr),
			slog.String("ai_provider", cfg.AI.Provider),
			slog.String("audit_store", cfg.Audit.Store),
		)
		if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return e.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func sweepSessions(ctx context.Context, sessions *session.Store, logger *slog.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := sessions.Sweep(); removed > 0 {
				logger.Info("expired sessions removed", slog.Int("count", removed), slog.Int("active", sessions.Len()))
			}
		}
	}
}

func ensureEnvFile() {
	if os.Getenv("ENV_FILE") != "" {
		return
	}

	if _, err := os.Stat(".env"); err == nil {
		_ = os.Setenv("ENV_FILE", ".env")
		return
	}

	if _, err := os.Stat("../.env"); err == nil {
		_ = os.Setenv("ENV_FILE", "../.env")
	}
}
