package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/deskforge/helpdesk/internal/domain"
)

// UserRepository defines persistence access for accounts of every role.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListByOrganization(ctx context.Context, orgID string, limit, offset int) ([]domain.User, error)
	CountActiveByOrganization(ctx context.Context, orgID string) (int, error)
}

type userRepository struct {
	db DBTX
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

// Superadmins have a NULL organization; it is read back as "".
const userColumns = `id, name, email, password_hash, role, COALESCE(organization_id::text, ''),
               parent_user_id, status, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, email, password_hash, role, organization_id, parent_user_id, status)
        VALUES ($1, $2, $3, $4, NULLIF($5, '')::uuid, $6, $7)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.OrganizationID,
		user.ParentUserID,
		user.Status,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	return translate(err)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET name=$1, email=$2, password_hash=$3, role=$4, status=$5, updated_at=NOW()
        WHERE id=$6`

	cmd, err := r.db.Exec(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Status,
		user.ID,
	)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email)=LOWER($1)`, email)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := scanUser(r.db.QueryRow(ctx, query, arg), &user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) ListByOrganization(ctx context.Context, orgID string, limit, offset int) ([]domain.User, error) {
	limit, offset = normalizeLimit(limit, offset)
	query := `SELECT ` + userColumns + ` FROM users WHERE organization_id=$1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, orgID, limit, offset)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := scanUser(rows, &user); err != nil {
			return nil, translate(err)
		}
		result = append(result, user)
	}
	return result, translate(rows.Err())
}

func (r *userRepository) CountActiveByOrganization(ctx context.Context, orgID string) (int, error) {
	const query = `SELECT COUNT(*) FROM users WHERE organization_id=$1 AND status='active'`
	var count int
	if err := r.db.QueryRow(ctx, query, orgID).Scan(&count); err != nil {
		return 0, translate(err)
	}
	return count, nil
}

func scanUser(row pgx.Row, user *domain.User) error {
	return row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.OrganizationID,
		&user.ParentUserID,
		&user.Status,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
}
