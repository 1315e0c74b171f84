package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/auth"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/models"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/repository"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/session"
)

type AuthHandler struct {
	Users        *repository.UserRepository
	Sessions     *session.Store
	TokenManager *auth.TokenManager
}

// NewAuthHandler создает обработчик авторизации.
func NewAuthHandler(users *repository.UserRepository, sessions *session.Store, manager *auth.TokenManager) *AuthHandler {
	return &AuthHandler{
		Users:        users,
		Sessions:     sessions,
		TokenManager: manager,
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password"`
}

type AuthUser struct {
	ID     uuid.UUID   `json:"id"`
	Name   string      `json:"name"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	Avatar string      `json:"avatar,omitempty"`
	Region string      `json:"region,omitempty"`
	Demo   bool        `json:"demo"`
}

type AuthResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        AuthUser  `json:"user"`
}

type UserResponse struct {
	User AuthUser `json:"user"`
}

type DemoAccountsResponse struct {
	Accounts []AuthUser `json:"accounts"`
}

// Login открывает сессию. Демо-аккаунты входят по email, остальные по email и паролю.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	user, err := h.Users.GetByEmail(c.Request().Context(), req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return unauthorized(c)
		}
		return serverError(c)
	}

	if !user.Demo {
		if err := auth.ComparePassword(user.PasswordHash, strings.TrimSpace(req.Password)); err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				return unauthorized(c)
			}
			return serverError(c)
		}
	}

	sess := h.Sessions.Create(session.KindUser, &user)
	token, expiresAt, err := h.TokenManager.NewSessionToken(sess.ID, user)
	if err != nil {
		h.Sessions.Delete(sess.ID)
		return serverError(c)
	}

	return c.JSON(http.StatusOK, AuthResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User:        toAuthUser(user),
	})
}

// Logout закрывает сессию и удаляет ее состояние.
func (h *AuthHandler) Logout(c echo.Context) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	h.Sessions.Delete(sess.ID)
	return c.NoContent(http.StatusNoContent)
}

// Me возвращает данные текущего пользователя.
func (h *AuthHandler) Me(c echo.Context) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	return c.JSON(http.StatusOK, UserResponse{User: toAuthUser(user)})
}

// DemoAccounts возвращает демо-аккаунты для экрана входа.
func (h *AuthHandler) DemoAccounts(c echo.Context) error {
	users, err := h.Users.ListDemo(c.Request().Context())
	if err != nil {
		return serverError(c)
	}

	accounts := make([]AuthUser, 0, len(users))
	for _, user := range users {
		accounts = append(accounts, toAuthUser(user))
	}
	return c.JSON(http.StatusOK, DemoAccountsResponse{Accounts: accounts})
}

func toAuthUser(user models.User) AuthUser {
	return AuthUser{
		ID:     user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
		Avatar: user.Avatar,
		Region: user.Region,
		Demo:   user.Demo,
	}
}
