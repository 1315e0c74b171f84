package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/flows"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/models"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/session"
)

func testUser(role models.Role) models.User {
	return models.User{ID: uuid.New(), Name: "Test", Email: "test@example.com", Role: role}
}

func serve(t *testing.T, mw []echo.MiddlewareFunc, req *http.Request) (echo.Context, bool, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	h := func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	}
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	err := h(c)
	return c, called, err
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	return httpErr.Code
}

// TestSessionTokenRoundTrip проверяет выпуск и разбор токена.
func TestSessionTokenRoundTrip(t *testing.T) {
	manager := NewTokenManager("secret", "credit-assist", time.Hour)
	user := testUser(models.RoleOfficer)
	sid := uuid.New()

	token, expiresAt, err := manager.NewSessionToken(sid, user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := manager.ParseSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, sid.String(), claims.SessionID)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.Equal(t, models.RoleOfficer, claims.Role)
}

// TestParseSessionTokenRejects проверяет отказ для чужого секрета, издателя и истекшего токена.
func TestParseSessionTokenRejects(t *testing.T) {
	user := testUser(models.RoleAdmin)

	token, _, err := NewTokenManager("other", "credit-assist", time.Hour).NewSessionToken(uuid.New(), user)
	require.NoError(t, err)
	_, err = NewTokenManager("secret", "credit-assist", time.Hour).ParseSessionToken(token)
	assert.Error(t, err)

	token, _, err = NewTokenManager("secret", "someone-else", time.Hour).NewSessionToken(uuid.New(), user)
	require.NoError(t, err)
	_, err = NewTokenManager("secret", "credit-assist", time.Hour).ParseSessionToken(token)
	assert.Error(t, err)

	token, _, err = NewTokenManager("secret", "credit-assist", -time.Minute).NewSessionToken(uuid.New(), user)
	require.NoError(t, err)
	_, err = NewTokenManager("secret", "credit-assist", time.Hour).ParseSessionToken(token)
	assert.Error(t, err)
}

// TestSessionMiddleware проверяет привязку токена к серверной сессии.
func TestSessionMiddleware(t *testing.T) {
	manager := NewTokenManager("secret", "credit-assist", time.Hour)
	store := session.NewStore(session.StoreOptions{})
	user := testUser(models.RoleBeneficiary)
	sess := store.Create(session.KindUser, &user)

	token, _, err := manager.NewSessionToken(sess.ID, user)
	require.NoError(t, err)

	mw := []echo.MiddlewareFunc{SessionMiddleware(manager, store)}

	t.Run("missing header", func(t *testing.T) {
		_, _, err := serve(t, mw, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	})

	t.Run("valid bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		c, called, err := serve(t, mw, req)
		require.NoError(t, err)
		assert.True(t, called)

		got, ok := UserFromContext(c)
		require.True(t, ok)
		assert.Equal(t, user.ID, got.ID)

		gotSess, ok := SessionFromContext(c)
		require.True(t, ok)
		assert.Same(t, sess, gotSess)
		assert.Equal(t, user.ID.String(), flows.ActorFromContext(c.Request().Context()))
	})

	t.Run("query token", func(t *testing.T) {
		_, called, err := serve(t, mw, httptest.NewRequest(http.MethodGet, "/?access_token="+token, nil))
		require.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("session of another user", func(t *testing.T) {
		other := testUser(models.RoleBeneficiary)
		forged, _, err := manager.NewSessionToken(sess.ID, other)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+forged)
		_, called, err := serve(t, mw, req)
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
		assert.False(t, called)
	})

	t.Run("logged out", func(t *testing.T) {
		store.Delete(sess.ID)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		_, _, err := serve(t, mw, req)
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	})
}

// TestRequireRole проверяет ограничение маршрута по роли.
func TestRequireRole(t *testing.T) {
	manager := NewTokenManager("secret", "credit-assist", time.Hour)
	store := session.NewStore(session.StoreOptions{})

	login := func(role models.Role) *http.Request {
		user := testUser(role)
		sess := store.Create(session.KindUser, &user)
		token, _, err := manager.NewSessionToken(sess.ID, user)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		return req
	}

	mw := []echo.MiddlewareFunc{SessionMiddleware(manager, store), RequireRole(models.RoleOfficer, models.RoleAdmin)}

	_, called, err := serve(t, mw, login(models.RoleOfficer))
	require.NoError(t, err)
	assert.True(t, called)

	_, called, err = serve(t, mw, login(models.RoleBeneficiary))
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
	assert.False(t, called)
}

// TestPasswordHash проверяет хеширование пароля.
func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("secret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "secret-pass", hash)
	assert.NoError(t, ComparePassword(hash, "secret-pass"))
	assert.ErrorIs(t, ComparePassword(hash, "wrong-pass"), ErrInvalidCredentials)
	assert.ErrorIs(t, ComparePassword("", "secret-pass"), ErrInvalidCredentials)
}
