package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deskforge/helpdesk/internal/auth"
	"github.com/deskforge/helpdesk/internal/domain"
	"github.com/deskforge/helpdesk/internal/repository"
	apperrors "github.com/deskforge/helpdesk/pkg/util/errorutil"
)

// Session is an issued access token.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates signup and login flows.
type AuthService struct {
	store         repository.Store
	organizations *OrganizationService
	tokenMgr      *auth.TokenManager
	bcryptCost    int
	logger        *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

// AuthDependencies bundles collaborators for the auth service.
type AuthDependencies struct {
	Store         repository.Store
	Organizations *OrganizationService
	Tokens        *auth.TokenManager
	BcryptCost    int
	Logger        *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		store:         deps.Store,
		organizations: deps.Organizations,
		tokenMgr:      deps.Tokens,
		bcryptCost:    deps.BcryptCost,
		logger:        nopIfNil(deps.Logger),
	}
}

// Signup registers an organization with its root admin and signs the admin in.
func (s *AuthService) Signup(ctx context.Context, input RegisterInput) (*domain.Organization, *Session, error) {
	org, admin, err := s.organizations.Register(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	session, err := s.issue(admin)
	if err != nil {
		return nil, nil, err
	}
	return org, session, nil
}

// Login authenticates an account of any role. Unknown emails, wrong
// passwords and inactive accounts are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := lookupByEmail(ctx, s.store.Repositories().Users, email)
	if err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	if user == nil {
		s.burnHash(password)
		return nil, apperrors.NewUnauthenticated("invalid credentials")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthenticated("invalid credentials")
	}
	if !user.IsActive() {
		s.logger.Debug("login rejected for inactive account", zap.String("user_id", user.ID))
		return nil, apperrors.NewUnauthenticated("invalid credentials")
	}
	return s.issue(user)
}

// ChangePassword verifies the current password before storing a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, actor domain.Actor, currentPassword, newPassword string) error {
	if err := auth.ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		user, err := repos.Users.GetByID(ctx, actor.UserID)
		if err != nil {
			return err
		}
		if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
			return apperrors.NewUnauthenticated("invalid credentials")
		}
		user.PasswordHash = hash
		return repos.Users.Update(ctx, user)
	})
	return storeError(err, "user")
}

// EnsureSuperAdmin creates the platform operator account if no account uses
// the email yet. An existing account is left untouched.
func (s *AuthService) EnsureSuperAdmin(ctx context.Context, name, email, password string) (*domain.User, error) {
	name, email, err := normalizeIdentity(name, email)
	if err != nil {
		return nil, err
	}
	if err := auth.ValidatePassword(password); err != nil {
		return nil, err
	}
	var user *domain.User
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		existing, err := lookupByEmail(ctx, repos.Users, email)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Role != domain.RoleSuperAdmin {
				return apperrors.NewConflict("email belongs to a tenant account", nil)
			}
			user = existing
			return nil
		}
		hash, err := auth.HashPassword(password, s.bcryptCost)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		user = &domain.User{
			Name:         name,
			Email:        email,
			PasswordHash: hash,
			Role:         domain.RoleSuperAdmin,
			Status:       domain.UserStatusActive,
		}
		return repos.Users.Create(ctx, user)
	})
	if err != nil {
		return nil, storeError(err, "user")
	}
	return user, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(user *domain.User) (*Session, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &Session{User: user, Token: token, ExpiresAt: exp}, nil
}

// burnHash spends one bcrypt comparison so unknown emails take as long as
// wrong passwords.
func (s *AuthService) burnHash(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = auth.HashPassword(uuid.NewString(), s.bcryptCost)
	})
	_ = auth.ComparePassword(s.dummyHash, password)
}
