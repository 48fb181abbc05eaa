package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/deskforge/helpdesk/internal/auth"
	"github.com/deskforge/helpdesk/internal/domain"
	"github.com/deskforge/helpdesk/internal/repository"
	apperrors "github.com/deskforge/helpdesk/pkg/util/errorutil"
)

// OrganizationService handles tenant signup and organization metadata.
type OrganizationService struct {
	store           repository.Store
	defaultMaxUsers int
	bcryptCost      int
	logger          *zap.Logger
}

// OrganizationDependencies bundles collaborators for the organization service.
type OrganizationDependencies struct {
	Store           repository.Store
	DefaultMaxUsers int
	BcryptCost      int
	Logger          *zap.Logger
}

// RegisterInput carries a tenant signup.
type RegisterInput struct {
	OrganizationName string
	Name             string
	Email            string
	Password         string
}

// NewOrganizationService constructs the service.
func NewOrganizationService(deps OrganizationDependencies) *OrganizationService {
	maxUsers := deps.DefaultMaxUsers
	if maxUsers <= 0 {
		maxUsers = domain.DefaultMaxUsers
	}
	return &OrganizationService{
		store:           deps.Store,
		defaultMaxUsers: maxUsers,
		bcryptCost:      deps.BcryptCost,
		logger:          nopIfNil(deps.Logger),
	}
}

// Register creates an organization on trial together with its root admin.
// Both records are written in one transaction.
func (s *OrganizationService) Register(ctx context.Context, input RegisterInput) (*domain.Organization, *domain.User, error) {
	orgName := strings.TrimSpace(input.OrganizationName)
	if orgName == "" {
		return nil, nil, apperrors.NewValidationError("organization name required", nil)
	}
	name, email, err := normalizeIdentity(input.Name, input.Email)
	if err != nil {
		return nil, nil, err
	}
	if err := auth.ValidatePassword(input.Password); err != nil {
		return nil, nil, err
	}
	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}

	org := &domain.Organization{
		Name:               orgName,
		MaxUsers:           s.defaultMaxUsers,
		SubscriptionStatus: domain.SubscriptionTrial,
	}
	admin := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		Status:       domain.UserStatusActive,
	}
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		existing, err := lookupByEmail(ctx, repos.Users, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperrors.NewConflict("email already registered", nil)
		}
		if err := repos.Organizations.Create(ctx, org); err != nil {
			return err
		}
		admin.OrganizationID = org.ID
		return repos.Users.Create(ctx, admin)
	})
	if err != nil {
		return nil, nil, storeError(err, "user")
	}
	s.logger.Info("organization registered", zap.String("org_id", org.ID), zap.String("admin_id", admin.ID))
	return org, admin, nil
}

// GetOwn returns the actor's organization.
func (s *OrganizationService) GetOwn(ctx context.Context, actor domain.Actor) (*domain.Organization, error) {
	if !actor.InTenant() {
		return nil, apperrors.NewInsufficientRole("actor has no organization")
	}
	org, err := s.store.Repositories().Organizations.GetByID(ctx, actor.OrganizationID)
	if err != nil {
		return nil, storeError(err, "organization")
	}
	return org, nil
}

// List returns organization metadata for superadmin tooling.
func (s *OrganizationService) List(ctx context.Context, actor domain.Actor, limit, offset int) ([]domain.Organization, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	orgs, err := s.store.Repositories().Organizations.List(ctx, limit, offset)
	if err != nil {
		return nil, storeError(err, "organization")
	}
	return orgs, nil
}

// Get returns one organization's metadata for superadmin tooling.
func (s *OrganizationService) Get(ctx context.Context, actor domain.Actor, orgID string) (*domain.Organization, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	org, err := s.store.Repositories().Organizations.GetByID(ctx, orgID)
	if err != nil {
		return nil, storeError(err, "organization")
	}
	return org, nil
}

func requireSuperAdmin(actor domain.Actor) error {
	if actor.Role != domain.RoleSuperAdmin {
		return apperrors.NewInsufficientRole("superadmin role required")
	}
	return nil
}
