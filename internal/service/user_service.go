package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/deskforge/helpdesk/internal/auth"
	"github.com/deskforge/helpdesk/internal/authz"
	"github.com/deskforge/helpdesk/internal/domain"
	"github.com/deskforge/helpdesk/internal/entitlement"
	"github.com/deskforge/helpdesk/internal/repository"
	apperrors "github.com/deskforge/helpdesk/pkg/util/errorutil"
)

// UserService manages accounts inside an organization.
type UserService struct {
	store      repository.Store
	gate       *entitlement.Gate
	bcryptCost int
	logger     *zap.Logger
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	Store      repository.Store
	Gate       *entitlement.Gate
	BcryptCost int
	Logger     *zap.Logger
}

// UserCreateInput describes a new subuser.
type UserCreateInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// UserUpdateInput describes account changes; nil fields are left untouched.
type UserUpdateInput struct {
	Name   *string
	Role   *domain.Role
	Status *domain.UserStatus
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{
		store:      deps.Store,
		gate:       deps.Gate,
		bcryptCost: deps.BcryptCost,
		logger:     nopIfNil(deps.Logger),
	}
}

// CreateUser provisions an admin, agent or customer in the actor's
// organization. The entitlement check and the insert share a transaction,
// so a denied create leaves no record behind.
func (s *UserService) CreateUser(ctx context.Context, actor domain.Actor, input UserCreateInput) (*domain.User, error) {
	if _, err := authz.Authorize(actor, authz.OpCreate, authz.TenantTarget(authz.KindUser, actor)); err != nil {
		return nil, err
	}
	if !slicesContainsRole(domain.TenantRoles, input.Role) {
		return nil, apperrors.NewInvalidEnumValue("role", string(input.Role), roleNames(domain.TenantRoles))
	}
	name, email, err := normalizeIdentity(input.Name, input.Email)
	if err != nil {
		return nil, err
	}
	if err := auth.ValidatePassword(input.Password); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	parent := actor.UserID
	user := &domain.User{
		Name:           name,
		Email:          email,
		PasswordHash:   hash,
		Role:           input.Role,
		OrganizationID: actor.OrganizationID,
		ParentUserID:   &parent,
		Status:         domain.UserStatusActive,
	}
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := s.gate.CanAddUser(ctx, repos, actor.OrganizationID); err != nil {
			return err
		}
		return repos.Users.Create(ctx, user)
	})
	if err != nil {
		return nil, storeError(err, "user")
	}
	s.logger.Info("user created",
		zap.String("user_id", user.ID),
		zap.String("org_id", user.OrganizationID),
		zap.String("role", string(user.Role)))
	return user, nil
}

// ListUsers returns the organization's accounts.
func (s *UserService) ListUsers(ctx context.Context, actor domain.Actor, limit, offset int) ([]domain.User, error) {
	if _, err := authz.Authorize(actor, authz.OpList, authz.TenantTarget(authz.KindUser, actor)); err != nil {
		return nil, err
	}
	users, err := s.store.Repositories().Users.ListByOrganization(ctx, actor.OrganizationID, limit, offset)
	if err != nil {
		return nil, storeError(err, "user")
	}
	return users, nil
}

// GetUser returns one account of the actor's organization.
func (s *UserService) GetUser(ctx context.Context, actor domain.Actor, userID string) (*domain.User, error) {
	user, err := s.store.Repositories().Users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "user")
	}
	if _, err := authz.Authorize(actor, authz.OpRead, authz.UserTarget(user)); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser changes name, role or status. Reactivation goes through the
// entitlement gate; the root admin cannot be demoted or deactivated.
func (s *UserService) UpdateUser(ctx context.Context, actor domain.Actor, userID string, input UserUpdateInput) (*domain.User, error) {
	var updated *domain.User
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		user, err := repos.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if _, err := authz.Authorize(actor, authz.OpUpdate, authz.UserTarget(user)); err != nil {
			return err
		}
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return apperrors.NewValidationError("name cannot be empty", nil)
			}
			user.Name = name
		}
		if input.Role != nil && *input.Role != user.Role {
			if !slicesContainsRole(domain.TenantRoles, *input.Role) {
				return apperrors.NewInvalidEnumValue("role", string(*input.Role), roleNames(domain.TenantRoles))
			}
			if user.IsRootAdmin() {
				return apperrors.NewProtectedAccount("the organization's root admin must keep the admin role")
			}
			user.Role = *input.Role
		}
		if input.Status != nil && *input.Status != user.Status {
			switch *input.Status {
			case domain.UserStatusInactive:
				if _, err := authz.Authorize(actor, authz.OpDeactivate, authz.UserTarget(user)); err != nil {
					return err
				}
			case domain.UserStatusActive:
				if err := s.gate.CanAddUser(ctx, repos, user.OrganizationID); err != nil {
					return err
				}
			default:
				return apperrors.NewInvalidEnumValue("status", string(*input.Status), []string{string(domain.UserStatusActive), string(domain.UserStatusInactive)})
			}
			user.Status = *input.Status
		}
		if err := repos.Users.Update(ctx, user); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, storeError(err, "user")
	}
	return updated, nil
}

// DeactivateUser marks an account inactive.
func (s *UserService) DeactivateUser(ctx context.Context, actor domain.Actor, userID string) (*domain.User, error) {
	status := domain.UserStatusInactive
	return s.UpdateUser(ctx, actor, userID, UserUpdateInput{Status: &status})
}

// DeleteUser removes an account. Accounts that authored tickets, responses
// or provisioned other users cannot be deleted and should be deactivated.
func (s *UserService) DeleteUser(ctx context.Context, actor domain.Actor, userID string) error {
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		user, err := repos.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if _, err := authz.Authorize(actor, authz.OpDelete, authz.UserTarget(user)); err != nil {
			return err
		}
		return repos.Users.Delete(ctx, user.ID)
	})
	if errors.Is(err, repository.ErrReferenced) {
		return apperrors.NewConflict("user has activity on record; deactivate the account instead", nil)
	}
	return storeError(err, "user")
}

func normalizeIdentity(name, email string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", apperrors.NewValidationError("name required", nil)
	}
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", "", apperrors.NewValidationError("invalid email", map[string]any{"email": email})
	}
	return name, email, nil
}

func lookupByEmail(ctx context.Context, users repository.UserRepository, email string) (*domain.User, error) {
	user, err := users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

func slicesContainsRole(roles []domain.Role, role domain.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func roleNames(roles []domain.Role) []string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return names
}
