package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/drivetrackhq/drivetrack/internal/hash"
	"github.com/drivetrackhq/drivetrack/internal/logging"
	"github.com/drivetrackhq/drivetrack/internal/models"
	"github.com/drivetrackhq/drivetrack/internal/repo"
)

// UserService backs the admin dashboard: account CRUD without any session
// handling. Deleting or editing a user never touches token issuance; an
// already-issued access token stays valid until it expires.
type UserService struct {
	Repo *repo.GormRepo
}

type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

type UpdateUserInput struct {
	Email     string
	FirstName string
	LastName  string
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "user.create")

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
		l.Error("user_create_error", "reason", "cannot hash the password", "error", err)
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
			return nil, ErrEmailTaken
		}
		l.Error("user_create_error", "error", err)
		return nil, err
	}

	l.Info("user_created", "user_id", user.ID, "role", user.Role)
	return &user, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.Repo.ListUsers(ctx)
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.Repo.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id uint, in UpdateUserInput) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Email != "" {
		user.Email = in.Email
	}
	if in.FirstName != "" {
		user.FirstName = in.FirstName
	}
	if in.LastName != "" {
		user.LastName = in.LastName
	}

	if err := s.Repo.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id uint) error {
	if err := s.Repo.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	logging.FromContext(ctx).Info("user_deleted", "svc", "user.delete", "user_id", id)
	return nil
}
