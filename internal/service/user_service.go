package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// UserListFilter narrows the admin user listing.
type UserListFilter struct {
	Role   *domain.Role
	Search *string
	Limit  int
	Offset int
}

// UserPatch lists the fields an admin may change on any account.
type UserPatch struct {
	FullName       *string
	Email          *string
	Role           *domain.Role
	ExternalChatID *string
}

// UserService manages accounts on behalf of admins.
type UserService struct {
	users      repository.UserRepository
	logger     *zap.Logger
	bcryptCost int
	now        func() time.Time
}

// NewUserService creates the service.
func NewUserService(users repository.UserRepository, bcryptCost int, logger *zap.Logger, clock func() time.Time) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}
	return &UserService{users: users, logger: logger, bcryptCost: bcryptCost, now: clock}
}

// ListUsers is admin only.
func (s *UserService) ListUsers(ctx context.Context, actor *domain.User, filter UserListFilter) ([]domain.User, error) {
	if err := policy.CheckRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	repoFilter := repository.UserFilter{Search: nonEmpty(filter.Search), Limit: filter.Limit, Offset: filter.Offset}
	if filter.Role != nil {
		if !filter.Role.Valid() {
			return nil, invalidField("role", string(*filter.Role))
		}
		repoFilter.Roles = []domain.Role{*filter.Role}
	}
	users, err := s.users.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return users, nil
}

// ListAssignees returns every agent and admin so staff can pick an assignee.
func (s *UserService) ListAssignees(ctx context.Context, actor *domain.User) ([]domain.User, error) {
	if err := policy.CheckRole(actor, domain.RoleAgent, domain.RoleAdmin); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx, repository.UserFilter{Roles: []domain.Role{domain.RoleAgent, domain.RoleAdmin}})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return users, nil
}

// UpdateUser changes another account, including its role. Admins cannot
// change their own role.
func (s *UserService) UpdateUser(ctx context.Context, actor *domain.User, id string, patch UserPatch) (*domain.User, error) {
	if err := policy.CheckRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return nil, apperrors.NewInternalError(err)
	}

	if patch.Role != nil {
		if !patch.Role.Valid() {
			return nil, invalidField("role", string(*patch.Role))
		}
		if user.ID == actor.ID && *patch.Role != user.Role {
			return nil, apperrors.NewValidationError("admins cannot change their own role", map[string]any{"field": "role"})
		}
	}
	if err := applyProfile(user, patch.FullName, patch.Email, patch.ExternalChatID); err != nil {
		return nil, err
	}
	if patch.Role != nil && *patch.Role != user.Role {
		s.logger.Info("user role changed",
			zap.String("user_id", user.ID),
			zap.String("actor_id", actor.ID),
			zap.String("from", string(user.Role)),
			zap.String("to", string(*patch.Role)),
		)
		user.Role = *patch.Role
	}
	user.UpdatedAt = s.now()

	if err := saveUser(ctx, s.users, user); err != nil {
		return nil, err
	}
	return user, nil
}

// EnsureAdmin seeds the bootstrap admin when configured and no admin exists yet.
func (s *UserService) EnsureAdmin(ctx context.Context, cfg config.BootstrapConfig) (*domain.User, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	admins, err := s.users.List(ctx, repository.UserFilter{Roles: []domain.Role{domain.RoleAdmin}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(admins) > 0 {
		return nil, nil
	}

	hash, err := auth.HashPassword(cfg.AdminPassword, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" {
		email = cfg.AdminUsername + "@localhost"
	}
	now := s.now()
	admin := &domain.User{
		Username:     cfg.AdminUsername,
		PasswordHash: hash,
		FullName:     "Administrator",
		Email:        email,
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return nil, err
	}
	s.logger.Info("bootstrap admin created", zap.String("user_id", admin.ID), zap.String("username", admin.Username))
	return admin, nil
}
