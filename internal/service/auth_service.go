package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/ratelimit"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const (
	minPasswordLength = 6
	minUsernameLength = 3
	maxUsernameLength = 50
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	limiter    ratelimit.Limiter
	tokenMgr   *auth.TokenManager
	logger     *zap.Logger
	bcryptCost int
	now        func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Limiter  ratelimit.Limiter
	Logger   *zap.Logger
	Clock    func() time.Time
}

// RegisterInput is the self-service signup payload.
type RegisterInput struct {
	Username  string
	Password  string
	Email     string
	FullName  string
	ClientKey string
}

// ProfilePatch lists self-editable profile fields. Role is never among them.
type ProfilePatch struct {
	FullName       *string
	Email          *string
	ExternalChatID *string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	s := &AuthService{
		users:      deps.UserRepo,
		limiter:    deps.Limiter,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		logger:     deps.Logger,
		bcryptCost: cfg.Auth.BcryptCost,
		now:        deps.Clock,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Register creates a user-role account and signs it in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, domain.Token, error) {
	if err := s.throttle(ctx, "register", input.ClientKey); err != nil {
		return nil, domain.Token{}, err
	}

	username := strings.TrimSpace(input.Username)
	if n := utf8.RuneCountInString(username); n < minUsernameLength || n > maxUsernameLength {
		return nil, domain.Token{}, apperrors.NewValidationError(
			fmt.Sprintf("username must be %d to %d characters", minUsernameLength, maxUsernameLength),
			map[string]any{"field": "username"})
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, domain.Token{}, err
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, domain.Token{}, err
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, domain.Token{}, apperrors.NewConflict("username already in use", map[string]any{"field": "username"})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, domain.Token{}, apperrors.NewInternalError(err)
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.Token{}, apperrors.NewConflict("email already registered", map[string]any{"field": "email"})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, domain.Token{}, apperrors.NewInternalError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, domain.Token{}, apperrors.NewInternalError(err)
	}

	now := s.now()
	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(input.FullName),
		Email:        email,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.Token{}, apperrors.NewConflict("username or email already in use", nil)
		}
		return nil, domain.Token{}, apperrors.NewInternalError(err)
	}

	token, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, domain.Token{}, apperrors.NewInternalError(err)
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, token, nil
}

// Login authenticates by username. Unknown users and wrong passwords get the
// same error.
func (s *AuthService) Login(ctx context.Context, username, password, clientKey string) (*domain.User, domain.Token, error) {
	if err := s.throttle(ctx, "login", clientKey); err != nil {
		return nil, domain.Token{}, err
	}

	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Token{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, domain.Token{}, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, domain.Token{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, domain.Token{}, apperrors.NewInternalError(err)
	}
	return user, token, nil
}

// throttle fails open when the limiter itself errors.
func (s *AuthService) throttle(ctx context.Context, action, clientKey string) error {
	if s.limiter == nil {
		return nil
	}
	allowed, err := s.limiter.Allow(ctx, action+":"+clientKey)
	if err != nil {
		s.logger.Warn("rate limiter unavailable", zap.String("action", action), zap.Error(err))
		return nil
	}
	if !allowed {
		return apperrors.NewRateLimited("too many attempts, please try again later")
	}
	return nil
}

// Me reloads the actor's account.
func (s *AuthService) Me(ctx context.Context, actor *domain.User) (*domain.User, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("user not found")
		}
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}

// UpdateProfile edits the actor's own name, email and chat id.
func (s *AuthService) UpdateProfile(ctx context.Context, actor *domain.User, patch ProfilePatch) (*domain.User, error) {
	user, err := s.Me(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := applyProfile(user, patch.FullName, patch.Email, patch.ExternalChatID); err != nil {
		return nil, err
	}
	user.UpdatedAt = s.now()
	if err := saveUser(ctx, s.users, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword verifies current password before updating to new hash.
func (s *AuthService) ChangePassword(ctx context.Context, actor *domain.User, currentPassword, newPassword string) error {
	user, err := s.Me(ctx, actor)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.now()
	return saveUser(ctx, s.users, user)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func applyProfile(user *domain.User, fullName, email, externalChatID *string) error {
	if fullName != nil {
		user.FullName = strings.TrimSpace(*fullName)
	}
	if email != nil {
		normalized, err := normalizeEmail(*email)
		if err != nil {
			return err
		}
		user.Email = normalized
	}
	if externalChatID != nil {
		user.ExternalChatID = nonEmpty(externalChatID)
	}
	return nil
}

func saveUser(ctx context.Context, users repository.UserRepository, user *domain.User) error {
	if err := users.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return apperrors.NewConflict("email already registered", map[string]any{"field": "email"})
		case errors.Is(err, repository.ErrNotFound):
			return apperrors.NewNotFound("user", map[string]any{"id": user.ID})
		}
		return apperrors.NewInternalError(err)
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return apperrors.NewValidationError(
			fmt.Sprintf("password must be at least %d characters", minPasswordLength),
			map[string]any{"field": "password"})
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Address != strings.TrimSpace(raw) {
		return "", apperrors.NewValidationError("invalid email address", map[string]any{"field": "email"})
	}
	return strings.ToLower(addr.Address), nil
}
