package auth

import (
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/flows"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/models"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/session"
)

const (
	ContextSessionKey = "session"
	ContextUserKey    = "user"
)

// SessionMiddleware проверяет токен, находит сессию и кладет ее и пользователя в контекст.
func SessionMiddleware(manager *TokenManager, store *session.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString := bearerToken(c)
			if tokenString == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			claims, err := manager.ParseSessionToken(tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			sessionID, err := uuid.Parse(claims.SessionID)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token session")
			}

			sess, err := store.Get(sessionID)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "session expired")
			}

			user, ok := sess.User()
			if !ok || user.ID.String() != claims.Subject {
				return echo.NewHTTPError(http.StatusUnauthorized, "session expired")
			}

			c.Set(ContextSessionKey, sess)
			c.Set(ContextUserKey, user)

			req := c.Request()
			c.SetRequest(req.WithContext(flows.WithActor(req.Context(), user.ID.String())))
			return next(c)
		}
	}
}

// RequireRole пропускает только пользователей с одной из ролей.
func RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := UserFromContext(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
			}
			if !slices.Contains(roles, user.Role) {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}

// SessionFromContext извлекает сессию пользователя из контекста.
func SessionFromContext(c echo.Context) (*session.Session, bool) {
	sess, ok := c.Get(ContextSessionKey).(*session.Session)
	return sess, ok
}

// UserFromContext извлекает пользователя из контекста.
func UserFromContext(c echo.Context) (models.User, bool) {
	user, ok := c.Get(ContextUserKey).(models.User)
	return user, ok
}

func bearerToken(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return ""
		}
		return strings.TrimSpace(parts[1])
	}

	// EventSource не умеет слать заголовки.
	return strings.TrimSpace(c.QueryParam("access_token"))
}
