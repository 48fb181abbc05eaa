package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskforge/helpdesk/internal/domain"
	"github.com/deskforge/helpdesk/internal/repository/memory"
	apperrors "github.com/deskforge/helpdesk/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 15, "helpdesk")
	user := &domain.User{ID: "u-1", Role: domain.RoleAgent, OrganizationID: "org-a"}

	token, exp, err := tm.GenerateToken(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, domain.RoleAgent, claims.Role)
	assert.Equal(t, "org-a", claims.OrganizationID)
}

func TestTokenRejections(t *testing.T) {
	tm := NewTokenManager("secret", 15, "helpdesk")
	user := &domain.User{ID: "u-1", Role: domain.RoleAgent, OrganizationID: "org-a"}
	token, _, err := tm.GenerateToken(user)
	require.NoError(t, err)

	_, err = NewTokenManager("other", 15, "helpdesk").ParseToken(token)
	assert.Error(t, err, "wrong secret")

	_, err = NewTokenManager("secret", 15, "someone-else").ParseToken(token)
	assert.Error(t, err, "wrong issuer")

	expired := NewTokenManager("secret", 1, "helpdesk")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.GenerateToken(user)
	require.NoError(t, err)
	_, err = tm.ParseToken(old)
	assert.Error(t, err, "expired")

	_, err = tm.ParseToken("not-a-jwt")
	assert.Error(t, err)
}

func TestPasswordHelpers(t *testing.T) {
	hash, err := HashPassword("correct horse", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "correct horse"))
	assert.Error(t, ComparePassword(hash, "wrong horse"))

	assert.True(t, apperrors.IsKind(ValidatePassword("short"), apperrors.CodeValidationFailed))
	assert.NoError(t, ValidatePassword("long enough"))
}

type fixture struct {
	app    *fiber.App
	tokens *TokenManager
	store  *memory.Store
	user   domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	org := domain.Organization{Name: "Acme", MaxUsers: 5, SubscriptionStatus: domain.SubscriptionTrial}
	require.NoError(t, store.Repositories().Organizations.Create(ctx, &org))
	user := domain.User{Name: "Agent", Email: "agent@acme.test", Role: domain.RoleAgent, OrganizationID: org.ID, Status: domain.UserStatusActive}
	require.NoError(t, store.Repositories().Users.Create(ctx, &user))

	tokens := NewTokenManager("secret", 15, "helpdesk")
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		de := apperrors.ToDomainError(err)
		return c.Status(de.HTTPStatus).SendString(de.Code)
	}})
	mw := NewAuthMiddleware(tokens, store.Repositories().Users)
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		actor, err := ActorFromContext(c)
		if err != nil {
			return err
		}
		return c.SendString(string(actor.Role) + ":" + actor.OrganizationID)
	})
	app.Get("/ops", mw.Handle, RequireRole(domain.RoleSuperAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return &fixture{app: app, tokens: tokens, store: store, user: user}
}

func (f *fixture) call(t *testing.T, path, header string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestMiddlewareResolvesActor(t *testing.T) {
	f := newFixture(t)
	token, _, err := f.tokens.GenerateToken(&f.user)
	require.NoError(t, err)

	status, body := f.call(t, "/me", "Bearer "+token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "agent:"+f.user.OrganizationID, body)
}

func TestMiddlewareFailsClosed(t *testing.T) {
	f := newFixture(t)

	status, body := f.call(t, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeUnauthenticated, body)

	status, _ = f.call(t, "/me", "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = f.call(t, "/me", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, status)

	ghost := domain.User{ID: "missing", Role: domain.RoleAdmin, OrganizationID: "org-x"}
	token, _, err := f.tokens.GenerateToken(&ghost)
	require.NoError(t, err)
	status, _ = f.call(t, "/me", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestMiddlewareRereadsAccount(t *testing.T) {
	f := newFixture(t)
	token, _, err := f.tokens.GenerateToken(&f.user)
	require.NoError(t, err)
	ctx := context.Background()

	f.user.Role = domain.RoleCustomer
	require.NoError(t, f.store.Repositories().Users.Update(ctx, &f.user))
	_, body := f.call(t, "/me", "Bearer "+token)
	assert.Equal(t, "customer:"+f.user.OrganizationID, body, "role change applies to existing tokens")

	f.user.Status = domain.UserStatusInactive
	require.NoError(t, f.store.Repositories().Users.Update(ctx, &f.user))
	status, _ := f.call(t, "/me", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRequireRole(t *testing.T) {
	f := newFixture(t)
	token, _, err := f.tokens.GenerateToken(&f.user)
	require.NoError(t, err)

	status, body := f.call(t, "/ops", "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, apperrors.CodeInsufficientRole, body)

	root := domain.User{Name: "Ops", Email: "ops@platform.test", Role: domain.RoleSuperAdmin, Status: domain.UserStatusActive}
	require.NoError(t, f.store.Repositories().Users.Create(context.Background(), &root))
	token, _, err = f.tokens.GenerateToken(&root)
	require.NoError(t, err)
	status, _ = f.call(t, "/ops", "Bearer "+token)
	assert.Equal(t, http.StatusNoContent, status)
}
