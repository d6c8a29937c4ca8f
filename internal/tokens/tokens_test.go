package tokens

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivetrackhq/drivetrack/internal/models"
)

func newTestIssuer() *Issuer {
	return &Issuer{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	}
}

func testUser() *models.User {
	return &models.User{
		ID:        42,
		Email:     "a@x.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Avatar:    "https://api.dicebear.com/9.x/notionists/svg?seed=Ada",
		Role:      models.RoleAdmin,
	}
}

func TestIssuer_SignAccess_SetsExpectedClaims(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer()
	u := testUser()

	token, exp, err := issuer.SignAccess(u)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(issuer.AccessTTL), exp, time.Second)

	claims, err := issuer.ParseAccess(token)
	require.NoError(t, err)

	assert.Equal(t, u.Email, claims.Email)
	assert.Equal(t, u.Role, claims.Role)
	assert.Equal(t, u.FirstName, claims.FirstName)
	assert.Equal(t, u.LastName, claims.LastName)
	assert.Equal(t, u.Avatar, claims.Avatar)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
}

func TestIssuer_SignRefresh_MinimalClaims(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer()

	token, exp, err := issuer.SignRefresh(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(issuer.RefreshTTL), exp, time.Second)

	claims, err := issuer.ParseRefresh(token)
	require.NoError(t, err)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
}

func TestIssuer_CrossSecretRejection(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer()

	access, _, err := issuer.SignAccess(testUser())
	require.NoError(t, err)
	refresh, _, err := issuer.SignRefresh(42)
	require.NoError(t, err)

	_, err = issuer.ParseRefresh(access)
	assert.Error(t, err, "access token must not validate against the refresh secret")

	_, err = issuer.ParseAccess(refresh)
	assert.Error(t, err, "refresh token must not validate against the access secret")
}

func TestIssuer_ExpiredTokenRejected(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer()
	issuer.AccessTTL = -time.Minute

	token, _, err := issuer.SignAccess(testUser())
	require.NoError(t, err)

	_, err = issuer.ParseAccess(token)
	assert.Error(t, err)
}

func TestIssuer_MissingSecret(t *testing.T) {
	t.Parallel()

	issuer := &Issuer{AccessTTL: time.Minute, RefreshTTL: time.Hour}

	_, _, err := issuer.SignAccess(testUser())
	assert.ErrorIs(t, err, ErrNoSecret)

	_, _, err = issuer.SignRefresh(42)
	assert.ErrorIs(t, err, ErrNoSecret)
}
