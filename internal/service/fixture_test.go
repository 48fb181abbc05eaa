package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/deskforge/helpdesk/internal/auth"
	"github.com/deskforge/helpdesk/internal/domain"
	"github.com/deskforge/helpdesk/internal/entitlement"
	"github.com/deskforge/helpdesk/internal/events"
	"github.com/deskforge/helpdesk/internal/repository/memory"
	apperrors "github.com/deskforge/helpdesk/pkg/util/errorutil"
)

const testPassword = "correct-horse-battery"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) handle(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) ofType(eventType events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	ctx      context.Context
	clock    *fakeClock
	store    *memory.Store
	recorder *eventRecorder
	tokens   *auth.TokenManager

	orgs    *OrganizationService
	users   *UserService
	tickets *TicketService
	billing *BillingService
	auth    *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := memory.New(memory.WithClock(clock.Now))
	dispatcher := events.NewInMemoryDispatcher()
	recorder := &eventRecorder{}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketUpdated,
		events.EventTicketStatusChanged,
		events.EventTicketReopened,
		events.EventTicketAssigned,
		events.EventResponseAdded,
		events.EventSubscriptionChanged,
	} {
		dispatcher.Subscribe(eventType, recorder.handle)
	}
	logger := zap.NewNop()
	gate := entitlement.NewGate(entitlement.NopCache{}, domain.DefaultMaxUsers, logger, entitlement.WithClock(clock.Now))
	tokens := auth.NewTokenManager("test-secret", 30, "helpdesk-test")

	orgs := NewOrganizationService(OrganizationDependencies{
		Store:           store,
		DefaultMaxUsers: domain.DefaultMaxUsers,
		BcryptCost:      bcrypt.MinCost,
		Logger:          logger,
	})
	return &fixture{
		ctx:      context.Background(),
		clock:    clock,
		store:    store,
		recorder: recorder,
		tokens:   tokens,
		orgs:     orgs,
		users: NewUserService(UserDependencies{
			Store:      store,
			Gate:       gate,
			BcryptCost: bcrypt.MinCost,
			Logger:     logger,
		}),
		tickets: NewTicketService(TicketDependencies{
			Store:      store,
			Dispatcher: dispatcher,
			Logger:     logger,
			Clock:      clock.Now,
		}),
		billing: NewBillingService(BillingDependencies{
			Store:      store,
			Gate:       gate,
			Dispatcher: dispatcher,
			Logger:     logger,
			Clock:      clock.Now,
		}),
		auth: NewAuthService(AuthDependencies{
			Store:         store,
			Organizations: orgs,
			Tokens:        tokens,
			BcryptCost:    bcrypt.MinCost,
			Logger:        logger,
		}),
	}
}

// signup registers an organization and returns its root admin.
func (f *fixture) signup(t *testing.T, orgName, email string) (*domain.Organization, domain.Actor) {
	t.Helper()
	org, admin, err := f.orgs.Register(f.ctx, RegisterInput{
		OrganizationName: orgName,
		Name:             "Root " + orgName,
		Email:            email,
		Password:         testPassword,
	})
	require.NoError(t, err)
	return org, auth.ActorFor(admin)
}

func (f *fixture) addUser(t *testing.T, admin domain.Actor, role domain.Role, email string) (*domain.User, domain.Actor) {
	t.Helper()
	user, err := f.users.CreateUser(f.ctx, admin, UserCreateInput{
		Name:     string(role) + " " + email,
		Email:    email,
		Password: testPassword,
		Role:     role,
	})
	require.NoError(t, err)
	return user, auth.ActorFor(user)
}

func (f *fixture) openTicket(t *testing.T, actor domain.Actor, title string) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.CreateTicket(f.ctx, actor, TicketCreateInput{Title: title, Description: "details"})
	require.NoError(t, err)
	return ticket
}

func (f *fixture) setStatus(t *testing.T, actor domain.Actor, ticketID string, status domain.TicketStatus) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.UpdateTicket(f.ctx, actor, ticketID, TicketPatch{Status: &status})
	require.NoError(t, err)
	return ticket
}

func requireKind(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, apperrors.IsKind(err, code), "expected %s, got %v", code, err)
}
