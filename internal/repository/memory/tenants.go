package memory

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/deskforge/helpdesk/internal/domain"
	"github.com/deskforge/helpdesk/internal/repository"
)

type organizationRepo struct{ v *view }

func (r *organizationRepo) Create(ctx context.Context, org *domain.Organization) error {
	return r.v.do(ctx, func(st *state) error {
		now := r.v.now()
		org.ID = newID()
		org.CreatedAt, org.UpdatedAt = now, now
		st.organizations[org.ID] = row[domain.Organization]{seq: st.next(), val: *org}
		return nil
	})
}

func (r *organizationRepo) Update(ctx context.Context, org *domain.Organization) error {
	return r.v.do(ctx, func(st *state) error {
		existing, ok := st.organizations[org.ID]
		if !ok {
			return pgx.ErrNoRows
		}
		org.CreatedAt = existing.val.CreatedAt
		org.UpdatedAt = r.v.now()
		existing.val = *org
		st.organizations[org.ID] = existing
		return nil
	})
}

func (r *organizationRepo) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	var out *domain.Organization
	err := r.v.do(ctx, func(st *state) error {
		existing, ok := st.organizations[id]
		if !ok {
			return pgx.ErrNoRows
		}
		org := existing.val
		out = &org
		return nil
	})
	return out, err
}

func (r *organizationRepo) List(ctx context.Context, limit, offset int) ([]domain.Organization, error) {
	var out []domain.Organization
	err := r.v.do(ctx, func(st *state) error {
		out = append([]domain.Organization(nil), page(st.organizations.ordered(), limit, offset)...)
		return nil
	})
	return out, err
}

type userRepo struct{ v *view }

func cloneUser(u domain.User) domain.User {
	u.ParentUserID = copyString(u.ParentUserID)
	return u
}

func emailTaken(st *state, email, exceptID string) bool {
	for _, existing := range st.users {
		if existing.val.ID != exceptID && strings.EqualFold(existing.val.Email, email) {
			return true
		}
	}
	return false
}

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	return r.v.do(ctx, func(st *state) error {
		if emailTaken(st, user.Email, "") {
			return repository.ErrDuplicate
		}
		if user.OrganizationID != "" {
			if _, ok := st.organizations[user.OrganizationID]; !ok {
				return repository.ErrReferenced
			}
		}
		now := r.v.now()
		user.ID = newID()
		user.CreatedAt, user.UpdatedAt = now, now
		st.users[user.ID] = row[domain.User]{seq: st.next(), val: cloneUser(*user)}
		return nil
	})
}

func (r *userRepo) Update(ctx context.Context, user *domain.User) error {
	return r.v.do(ctx, func(st *state) error {
		existing, ok := st.users[user.ID]
		if !ok {
			return pgx.ErrNoRows
		}
		if emailTaken(st, user.Email, user.ID) {
			return repository.ErrDuplicate
		}
		stored := existing.val
		stored.Name = user.Name
		stored.Email = user.Email
		stored.PasswordHash = user.PasswordHash
		stored.Role = user.Role
		stored.Status = user.Status
		stored.UpdatedAt = r.v.now()
		existing.val = stored
		st.users[user.ID] = existing
		*user = cloneUser(stored)
		return nil
	})
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	return r.v.do(ctx, func(st *state) error {
		if _, ok := st.users[id]; !ok {
			return pgx.ErrNoRows
		}
		for _, t := range st.tickets {
			if t.val.CreatedBy == id {
				return repository.ErrReferenced
			}
		}
		for _, resp := range st.responses {
			if resp.val.UserID == id {
				return repository.ErrReferenced
			}
		}
		for _, h := range st.history {
			if h.val.ChangedBy == id {
				return repository.ErrReferenced
			}
		}
		for _, u := range st.users {
			if u.val.ParentUserID != nil && *u.val.ParentUserID == id {
				return repository.ErrReferenced
			}
		}
		for tid, t := range st.tickets {
			if t.val.AssignedTo != nil && *t.val.AssignedTo == id {
				t.val.AssignedTo = nil
				st.tickets[tid] = t
			}
		}
		delete(st.users, id)
		return nil
	})
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.v.do(ctx, func(st *state) error {
		existing, ok := st.users[id]
		if !ok {
			return pgx.ErrNoRows
		}
		u := cloneUser(existing.val)
		out = &u
		return nil
	})
	return out, err
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var out *domain.User
	err := r.v.do(ctx, func(st *state) error {
		for _, existing := range st.users {
			if strings.EqualFold(existing.val.Email, email) {
				u := cloneUser(existing.val)
				out = &u
				return nil
			}
		}
		return pgx.ErrNoRows
	})
	return out, err
}

func (r *userRepo) ListByOrganization(ctx context.Context, orgID string, limit, offset int) ([]domain.User, error) {
	var out []domain.User
	err := r.v.do(ctx, func(st *state) error {
		var matched []domain.User
		for _, u := range st.users.ordered() {
			if u.OrganizationID == orgID {
				matched = append(matched, cloneUser(u))
			}
		}
		out = page(matched, limit, offset)
		return nil
	})
	return out, err
}

func (r *userRepo) CountActiveByOrganization(ctx context.Context, orgID string) (int, error) {
	count := 0
	err := r.v.do(ctx, func(st *state) error {
		for _, u := range st.users {
			if u.val.OrganizationID == orgID && u.val.IsActive() {
				count++
			}
		}
		return nil
	})
	return count, err
}
