package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/templui/pawcare/internal/model"
	"github.com/templui/pawcare/internal/repository"
	"github.com/templui/pawcare/internal/validation"
)

type UserService struct {
	userRepository repository.UserRepository
	emailService   *EmailService
	now            func() time.Time
}

func NewUserService(userRepository repository.UserRepository, emailService *EmailService) *UserService {
	return &UserService{
		userRepository: userRepository,
		emailService:   emailService,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *UserService) Create(ctx context.Context, email string) (*model.User, error) {
	email = normalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, invalid(validation.FieldError{Field: "email", Reason: validation.ReasonInvalidFormat})
	}

	now := s.now()
	user := &model.User{
		ID:        uuid.New().String(),
		Email:     email,
		Role:      model.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.userRepository.Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return nil, fmt.Errorf("email %s: %w", email, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user created", "user_id", user.ID, "email", email)
	return user, nil
}

func (s *UserService) ByID(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepository.ByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return user, err
}

func (s *UserService) ByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.userRepository.ByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	return user, err
}

func (s *UserService) List(ctx context.Context, role string) ([]*model.User, error) {
	switch role {
	case "", model.RoleUser, model.RoleAdmin:
	default:
		return nil, invalid(validation.FieldError{Field: "role", Reason: validation.ReasonUnknownValue})
	}
	return s.userRepository.List(ctx, role)
}

// MakeAdmin grants the admin role. Zero flags grant every area.
func (s *UserService) MakeAdmin(ctx context.Context, id string, flags model.AdminFlags) (*model.User, error) {
	if flags == 0 {
		flags = model.AdminFlagsAll
	}
	if err := validateFlags(flags); err != nil {
		return nil, err
	}

	user, err := s.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin() && user.AdminFlags == flags {
		return user, nil
	}

	updated, err := s.update(ctx, id, model.RoleAdmin, flags)
	if err != nil {
		return nil, err
	}

	if !user.IsAdmin() && s.emailService != nil {
		if err := s.emailService.SendAdminGrantedEmail(ctx, updated.Email); err != nil {
			slog.Warn("failed to send admin granted email", "user_id", id, "error", err)
		}
	}

	slog.Info("admin role granted", "user_id", id, "flags", int(flags))
	return updated, nil
}

// RevokeAdmin drops the admin role. Admins cannot revoke themselves, which
// keeps at least the acting admin in place.
func (s *UserService) RevokeAdmin(ctx context.Context, actor *model.Session, id string) (*model.User, error) {
	if actor != nil && actor.UserID == id {
		return nil, fmt.Errorf("cannot revoke your own admin role: %w", ErrConflict)
	}

	user, err := s.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return user, nil
	}

	updated, err := s.update(ctx, id, model.RoleUser, 0)
	if err != nil {
		return nil, err
	}

	if s.emailService != nil {
		if err := s.emailService.SendAdminRevokedEmail(ctx, updated.Email); err != nil {
			slog.Warn("failed to send admin revoked email", "user_id", id, "error", err)
		}
	}

	slog.Info("admin role revoked", "user_id", id)
	return updated, nil
}

// SetFlags changes which back-office areas an admin may use.
func (s *UserService) SetFlags(ctx context.Context, actor *model.Session, id string, flags model.AdminFlags) (*model.User, error) {
	if err := validateFlags(flags); err != nil {
		return nil, err
	}
	if actor != nil && actor.UserID == id && !flags.Has(model.AdminFlagUsers) {
		return nil, fmt.Errorf("cannot remove your own user management flag: %w", ErrConflict)
	}

	user, err := s.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, fmt.Errorf("user %s is not an admin: %w", id, ErrConflict)
	}

	updated, err := s.update(ctx, id, model.RoleAdmin, flags)
	if err != nil {
		return nil, err
	}

	slog.Info("admin flags updated", "user_id", id, "flags", int(flags))
	return updated, nil
}

func (s *UserService) update(ctx context.Context, id, role string, flags model.AdminFlags) (*model.User, error) {
	user, err := s.userRepository.UpdateRole(ctx, id, role, flags, s.now())
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	return user, nil
}

func validateFlags(flags model.AdminFlags) error {
	if flags < 0 || flags&^model.AdminFlagsAll != 0 {
		return invalid(validation.FieldError{Field: "flags", Reason: validation.ReasonOutOfRange})
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
