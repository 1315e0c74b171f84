// Package server wires the echo application: middleware, handlers and routes.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/ai"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/auth"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/config"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/flows"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/handlers"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/notifications"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/registration"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/repository"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/session"
)

// Deps are the long-lived services the HTTP layer runs on.
type Deps struct {
	Client    ai.Client
	AILog     repository.AIRequestLog
	Users     *repository.UserRepository
	Portfolio *repository.BeneficiaryRepository
	Sessions  *session.Store
	Hub       *notifications.Hub
}

// New собирает HTTP-сервер Echo с роутами и зависимостями.
func New(cfg config.Config, logger *slog.Logger, deps Deps) *echo.Echo {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Hub == nil {
		deps.Hub = notifications.NewHub()
	}
	if deps.AILog == nil {
		deps.AILog = repository.NewMemoryAIRepository()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	if cfg.Server.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	}

	flowSet := flows.NewSet(deps.Client, flows.Options{
		Provider: cfg.AI.Provider,
		Recorder: repository.NewFlowRecorder(deps.AILog, cfg.AI.Model),
		Logger:   logger,
	})

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.SessionTTL)
	workflow := registration.NewWorkflow(deps.Users, deps.Portfolio, flowSet.CreditScoring, registration.Options{
		ScoreOnSubmit: cfg.Registration.ScoreOnSubmit,
		Logger:        logger,
	})
	capture := &handlers.BillCapture{
		Parser:        flowSet.BillParsing,
		MaxImageBytes: cfg.Uploads.MaxImageBytes,
		Notifier:      deps.Hub,
	}

	registerRoutes(
		e,
		routeHandlers{
			health:        handlers.NewHealthHandler(deps.Sessions, cfg.AI.Provider),
			auth:          handlers.NewAuthHandler(deps.Users, deps.Sessions, tokenManager),
			registrations: handlers.NewRegistrationHandler(deps.Sessions, workflow, capture, deps.Hub),
			bills:         handlers.NewBillHandler(capture),
			chat:          handlers.NewChatHandler(flowSet.FinancialLiteracy),
			dashboard:     handlers.NewDashboardHandler(deps.Portfolio, deps.AILog),
			beneficiaries: handlers.NewBeneficiaryHandler(deps.Portfolio, deps.Hub),
			admin:         handlers.NewAdminHandler(deps.Portfolio, deps.AILog),
			flows:         handlers.NewFlowHandler(flowSet),
			notifications: handlers.NewNotificationHandler(deps.Hub),
		},
		auth.SessionMiddleware(tokenManager, deps.Sessions),
		authRateLimiter(cfg.Auth),
		aiRateLimiter(cfg.AI),
	)

	return e
}

// NewHTTPServer создает net/http сервер с заданными таймаутами.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.String("remote_ip", v.RemoteIP),
				slog.String("request_id", v.RequestID),
				slog.Duration("latency", v.Latency),
			}

			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}

			msg := "request completed"
			if v.Status >= http.StatusInternalServerError {
				logger.LogAttrs(c.Request().Context(), slog.LevelError, msg, attrs...)
				return nil
			}

			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, msg, attrs...)
			return nil
		},
	})
}

func authRateLimiter(cfg config.AuthConfig) echo.MiddlewareFunc {
	return rateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
}

func aiRateLimiter(cfg config.AIConfig) echo.MiddlewareFunc {
	return rateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
}

func rateLimiter(perMinute, burst int) echo.MiddlewareFunc {
	limit := rate.Limit(float64(perMinute) / 60.0)
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      limit,
		Burst:     burst,
		ExpiresIn: time.Minute,
	})

	return middleware.RateLimiter(store)
}
