package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/drivetrackhq/drivetrack/internal/hash"
	"github.com/drivetrackhq/drivetrack/internal/models"
	"github.com/drivetrackhq/drivetrack/internal/repo"
	"github.com/drivetrackhq/drivetrack/internal/tokens"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	// One connection keeps every session on the same in-memory database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.User{}, &models.Trip{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()

	issuer := &tokens.Issuer{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	}
	return &AuthService{Repo: repo.New(newTestDB(t)), Issuer: issuer}
}

func storedRefreshHash(t *testing.T, svc *AuthService, userID uint) *string {
	t.Helper()

	user, err := svc.Repo.FindUserByID(context.Background(), userID)
	require.NoError(t, err)
	return user.RefreshTokenHash
}

func TestAuthService_Signup(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	res, err := svc.Signup(ctx, SignupInput{
		Email:     "a@x.com",
		Password:  "pw",
		FirstName: "Ada",
	})
	require.NoError(t, err)

	assert.Equal(t, models.RoleUser, res.User.Role)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.NotEqual(t, "pw", res.User.PasswordHash)
	assert.True(t, hash.Verify(res.User.PasswordHash, "pw"))

	stored := storedRefreshHash(t, svc, res.User.ID)
	require.NotNil(t, stored)
	assert.True(t, hash.Verify(*stored, res.RefreshToken))
}

func TestAuthService_Signup_Validation(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   SignupInput
	}{
		{name: "empty email", in: SignupInput{Password: "pw"}},
		{name: "empty password", in: SignupInput{Email: "a@x.com"}},
		{name: "unknown role", in: SignupInput{Email: "a@x.com", Password: "pw", Role: "ROOT"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res, err := svc.Signup(ctx, tt.in)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestAuthService_Signup_DuplicateEmail(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupInput{Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	res, err := svc.Signup(ctx, SignupInput{Email: "a@x.com", Password: "other"})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrEmailTaken)

	var count int64
	require.NoError(t, svc.Repo.DB.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "no second account record may be created")
}

func TestAuthService_Signup_ExplicitAdminRole(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)

	res, err := svc.Signup(context.Background(), SignupInput{
		Email:    "admin@x.com",
		Password: "pw",
		Role:     models.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, res.User.Role)
}

func TestAuthService_Login(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	signup, err := svc.Signup(ctx, SignupInput{Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "a@x.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	res, err := svc.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	assert.NotEqual(t, signup.RefreshToken, res.RefreshToken, "login must rotate the session")

	stored := storedRefreshHash(t, svc, res.User.ID)
	require.NotNil(t, stored)
	assert.True(t, hash.Verify(*stored, res.RefreshToken))
	assert.False(t, hash.Verify(*stored, signup.RefreshToken))
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)

	// Same error as a wrong password: no email enumeration.
	_, err := svc.Login(context.Background(), "nobody@x.com", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Refresh_RotatesAndInvalidatesOldToken(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	login, err := svc.Signup(ctx, SignupInput{Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)
	r1 := login.RefreshToken

	first, err := svc.Refresh(ctx, r1)
	require.NoError(t, err)
	assert.NotEqual(t, r1, first.RefreshToken)

	// The rotated-away token must be dead immediately.
	_, err = svc.Refresh(ctx, r1)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	// The new token keeps working.
	_, err = svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
}

func TestAuthService_Refresh_ConcurrentUseOfSameToken(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	res, err := svc.Signup(ctx, SignupInput{Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	// Two clients present the same refresh token at once. The
	// compare-and-swap on the stored hash lets exactly one rotation
	// through; the other lands on a hash that no longer matches.
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Refresh(ctx, res.RefreshToken)
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
		lost++
	}
	assert.Equal(t, 1, won, "exactly one rotation may succeed")
	assert.Equal(t, 1, lost)
}

func TestAuthService_Refresh_RejectsAccessToken(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	res, err := svc.Signup(ctx, SignupInput{Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, res.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestAuthService_Refresh_GarbageToken(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)

	_, err := svc.Refresh(context.Background(), "not-a-valid-jwt")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestAuthService_Refresh_UnknownAccount(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)

	token, _, err := svc.Issuer.SignRefresh(999)
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), token)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthService_Refresh_NoActiveSession(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	res, err := svc.Signup(ctx, SignupInput{Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, res.RefreshToken))

	_, err = svc.Refresh(ctx, res.RefreshToken)
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestAuthService_Logout_Idempotent(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	res, err := svc.Signup(ctx, SignupInput{Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, res.RefreshToken))
	require.NoError(t, svc.Logout(ctx, res.RefreshToken), "second logout must succeed")

	assert.Nil(t, storedRefreshHash(t, svc, res.User.ID))
}

func TestAuthService_Logout_InvalidToken(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)

	err := svc.Logout(context.Background(), "not-a-valid-jwt")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}
