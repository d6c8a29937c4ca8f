package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivetrackhq/drivetrack/internal/models"
	"github.com/drivetrackhq/drivetrack/internal/tokens"
)

func newTestIssuer() *tokens.Issuer {
	return &tokens.Issuer{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	}
}

func newContext(t *testing.T, authorization string) echo.Context {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	return e.NewContext(req, httptest.NewRecorder())
}

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func signAccess(t *testing.T, issuer *tokens.Issuer, role string) string {
	t.Helper()

	token, _, err := issuer.SignAccess(&models.User{
		ID:    7,
		Email: "a@x.com",
		Role:  role,
	})
	require.NoError(t, err)
	return token
}

func TestRequireAuth_ValidToken(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer()
	guard := NewGuard(issuer)
	c := newContext(t, "Bearer "+signAccess(t, issuer, models.RoleUser))

	require.NoError(t, guard.RequireAuth(okHandler)(c))

	id, ok := UserID(c)
	require.True(t, ok)
	assert.Equal(t, uint(7), id)
	assert.Equal(t, "a@x.com", c.Get(KeyEmail))
	assert.Equal(t, models.RoleUser, c.Get(KeyRole))
}

func TestRequireAuth_Rejections(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer()
	guard := NewGuard(issuer)

	expired := newTestIssuer()
	expired.AccessTTL = -time.Minute

	foreign := newTestIssuer()
	foreign.AccessSecret = []byte("some-other-secret")

	tests := []struct {
		name          string
		authorization string
	}{
		{name: "missing header", authorization: ""},
		{name: "not a bearer", authorization: "Basic abc"},
		{name: "garbage token", authorization: "Bearer not-a-valid-jwt"},
		{name: "expired token", authorization: "Bearer " + signAccess(t, expired, models.RoleUser)},
		{name: "wrong secret", authorization: "Bearer " + signAccess(t, foreign, models.RoleUser)},
		{name: "refresh token as bearer", authorization: "Bearer " + signRefresh(t, issuer)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := guard.RequireAuth(okHandler)(newContext(t, tt.authorization))
			he, ok := err.(*echo.HTTPError)
			require.True(t, ok, "expected HTTPError")
			assert.Equal(t, http.StatusUnauthorized, he.Code)
		})
	}
}

func signRefresh(t *testing.T, issuer *tokens.Issuer) string {
	t.Helper()

	token, _, err := issuer.SignRefresh(7)
	require.NoError(t, err)
	return token
}

func TestRequireRole_Gate(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer()
	guard := NewGuard(issuer)

	adminOnly := guard.RequireAuth(guard.RequireRole(models.RoleAdmin)(okHandler))

	err := adminOnly(newContext(t, "Bearer "+signAccess(t, issuer, models.RoleUser)))
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	assert.Equal(t, http.StatusForbidden, he.Code)

	require.NoError(t, adminOnly(newContext(t, "Bearer "+signAccess(t, issuer, models.RoleAdmin))))
}

func TestRequireRole_NoRolesDeclared(t *testing.T) {
	t.Parallel()

	guard := NewGuard(newTestIssuer())

	c := newContext(t, "")
	require.NoError(t, guard.RequireRole()(okHandler)(c))
}
