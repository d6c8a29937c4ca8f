package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/drivetrackhq/drivetrack/internal/events"
	"github.com/drivetrackhq/drivetrack/internal/hash"
	"github.com/drivetrackhq/drivetrack/internal/logging"
	"github.com/drivetrackhq/drivetrack/internal/models"
	"github.com/drivetrackhq/drivetrack/internal/repo"
	"github.com/drivetrackhq/drivetrack/internal/tokens"
)

type AuthService struct {
	Repo     *repo.GormRepo
	Issuer   *tokens.Issuer
	Producer *events.Producer
}

type SignupInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

type AuthResult struct {
	User *models.User
	TokenPair
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.signup")

	if in.Email == "" || in.Password == "" {
		return nil, ErrValidation
	}
	role := in.Role
	switch role {
	case "":
		role = models.RoleUser
	case models.RoleUser, models.RoleAdmin:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, in.Role)
	}

	pwHash, err := hash.Hash(in.Password)
	if err != nil {
		l.Error("signup_error", "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := models.User{
		Email:        in.Email,
		PasswordHash: pwHash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Avatar:       AvatarURL(in.FirstName),
		Role:         role,
	}
	if err := s.Repo.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			l.Warn("signup_rejected", "reason", "duplicate email", "email", in.Email)
			return nil, ErrEmailTaken
		}
		l.Error("signup_error", "error", err)
		return nil, err
	}

	pair, err := s.issueAndRotate(ctx, &user)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.TopicUserEvents, user.ID, map[string]any{
		"type":    "user_registered",
		"user_id": user.ID,
		"email":   user.Email,
	})

	l.Info("signup_successful", "user_id", user.ID)
	return &AuthResult{User: &user, TokenPair: *pair}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if email == "" || password == "" {
		return nil, ErrValidation
	}

	user, err := s.Repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// Same error as a password mismatch so responses don't
			// reveal which emails are registered.
			return nil, ErrInvalidCredentials
		}
		l.Error("login_error", "error", err)
		return nil, err
	}

	if !hash.Verify(user.PasswordHash, password) {
		l.Warn("login_failed", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issueAndRotate(ctx, user)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.TopicUserEvents, user.ID, map[string]any{
		"type":    "user_logged_in",
		"user_id": user.ID,
		"email":   user.Email,
	})

	l.Info("login_successful", "user_id", user.ID)
	return &AuthResult{User: user, TokenPair: *pair}, nil
}

// Refresh is a full rotation: the presented token is dead the moment a new
// pair is issued. The swap is a compare-and-swap on the stored hash, so of
// two concurrent refreshes with the same token only one can succeed.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := s.Issuer.ParseRefresh(rawRefresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRefreshToken, err)
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidRefreshToken)
	}

	user, err := s.Repo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		l.Error("refresh_error", "error", err)
		return nil, err
	}

	if user.RefreshTokenHash == nil {
		return nil, ErrNoActiveSession
	}
	if !hash.Verify(*user.RefreshTokenHash, rawRefresh) {
		l.Warn("refresh_rejected", "user_id", user.ID, "reason", "hash mismatch")
		return nil, ErrInvalidRefreshToken
	}

	pair, newHash, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	swapped, err := s.Repo.SwapRefreshHash(ctx, user.ID, *user.RefreshTokenHash, newHash)
	if err != nil {
		l.Error("refresh_error", "error", err)
		return nil, err
	}
	if !swapped {
		// Lost the race against a concurrent refresh or logout.
		l.Warn("refresh_rejected", "user_id", user.ID, "reason", "rotated concurrently")
		return nil, ErrInvalidRefreshToken
	}

	l.Info("refresh_successful", "user_id", user.ID)
	return &AuthResult{User: user, TokenPair: *pair}, nil
}

// Logout clears the stored session hash. Clearing an already-cleared
// session is fine, so repeated logouts with the same token succeed.
func (s *AuthService) Logout(ctx context.Context, rawRefresh string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	claims, err := s.Issuer.ParseRefresh(rawRefresh)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRefreshToken, err)
	}
	userID, err := claims.UserID()
	if err != nil {
		return fmt.Errorf("%w: bad subject", ErrInvalidRefreshToken)
	}

	if err := s.Repo.ClearRefreshHash(ctx, userID); err != nil {
		l.Error("logout_error", "error", err)
		return err
	}

	l.Info("logout_successful", "user_id", userID)
	return nil
}

// issuePair signs a new token pair and returns it with the hash of the
// refresh token. Storing the hash is the caller's job: login/signup
// overwrite, refresh compare-and-swaps.
func (s *AuthService) issuePair(u *models.User) (*TokenPair, string, error) {
	access, accessExp, err := s.Issuer.SignAccess(u)
	if err != nil {
		return nil, "", err
	}
	refresh, refreshExp, err := s.Issuer.SignRefresh(u.ID)
	if err != nil {
		return nil, "", err
	}
	refreshHash, err := hash.Hash(refresh)
	if err != nil {
		return nil, "", err
	}
	pair := &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}
	return pair, refreshHash, nil
}

func (s *AuthService) issueAndRotate(ctx context.Context, u *models.User) (*TokenPair, error) {
	pair, refreshHash, err := s.issuePair(u)
	if err != nil {
		logging.FromContext(ctx).Error("token_issue_error", "user_id", u.ID, "error", err)
		return nil, err
	}
	if err := s.Repo.RotateRefreshHash(ctx, u.ID, refreshHash); err != nil {
		logging.FromContext(ctx).Error("rotate_error", "user_id", u.ID, "error", err)
		return nil, err
	}
	return pair, nil
}

func (s *AuthService) publish(ctx context.Context, topic string, userID uint, event map[string]any) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(ctx, topic, fmt.Sprint(userID), event); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_error", "topic", topic, "error", err)
	}
}

func AvatarURL(firstName string) string {
	seed := fmt.Sprintf("%s-%s", firstName, uuid.NewString())
	return "https://api.dicebear.com/9.x/notionists/svg?seed=" + url.QueryEscape(seed)
}
