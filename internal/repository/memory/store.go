// Package memory is an in-process tenant store. Transactions are serialized
// by a single lock and applied to a private copy of the state, which replaces
// the shared state only when the callback succeeds.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deskforge/helpdesk/internal/domain"
	"github.com/deskforge/helpdesk/internal/repository"
)

// Store implements repository.Store in memory.
type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		state: newState(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Repositories returns repositories that lock the store per call. They must
// not be used from inside a WithinTx callback.
func (s *Store) Repositories() repository.Repositories {
	return s.bind(&view{store: s})
}

// WithinTx runs fn against a snapshot and publishes it if fn succeeds and the
// context is still live.
func (s *Store) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(s.bind(&view{store: s, tx: snapshot})); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = snapshot
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) bind(v *view) repository.Repositories {
	return repository.Repositories{
		Organizations: &organizationRepo{v},
		Users:         &userRepo{v},
		Tickets:       &ticketRepo{v},
		Responses:     &responseRepo{v},
		History:       &historyRepo{v},
		Plans:         &planRepo{v},
		Subscriptions: &subscriptionRepo{v},
	}
}

// view routes a repository call either to a transaction snapshot or, under
// the store lock, to the shared state.
type view struct {
	store *Store
	tx    *state
}

func (v *view) do(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.state)
}

func (v *view) now() time.Time {
	return v.store.now()
}

type row[T any] struct {
	seq int64
	val T
}

type table[T any] map[string]row[T]

func (t table[T]) clone() table[T] {
	out := make(table[T], len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// ordered returns values in insertion order.
func (t table[T]) ordered() []T {
	rows := make([]row[T], 0, len(t))
	for _, r := range t {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	out := make([]T, len(rows))
	for i, r := range rows {
		out[i] = r.val
	}
	return out
}

type state struct {
	seq           int64
	organizations table[domain.Organization]
	users         table[domain.User]
	tickets       table[domain.Ticket]
	responses     table[domain.Response]
	history       table[domain.TicketHistory]
	plans         table[domain.PricingPlan]
	subscriptions table[domain.Subscription]
}

func newState() *state {
	return &state{
		organizations: table[domain.Organization]{},
		users:         table[domain.User]{},
		tickets:       table[domain.Ticket]{},
		responses:     table[domain.Response]{},
		history:       table[domain.TicketHistory]{},
		plans:         table[domain.PricingPlan]{},
		subscriptions: table[domain.Subscription]{},
	}
}

func (st *state) clone() *state {
	return &state{
		seq:           st.seq,
		organizations: st.organizations.clone(),
		users:         st.users.clone(),
		tickets:       st.tickets.clone(),
		responses:     st.responses.clone(),
		history:       st.history.clone(),
		plans:         st.plans.clone(),
		subscriptions: st.subscriptions.clone(),
	}
}

func (st *state) next() int64 {
	st.seq++
	return st.seq
}

func newID() string {
	return uuid.NewString()
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
