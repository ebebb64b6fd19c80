package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/shared"
)

// Repository provides PostgreSQL backed persistence for users. It also
// serves as the resolver's user directory.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListUsers returns users ordered by id, windowed by pagination.
func (r *Repository) ListUsers(ctx context.Context, page shared.Pagination) ([]User, error) {
	page = page.Clamp(100)
	rows, err := r.pool.Query(ctx,
		`SELECT id, email, name, role_id, is_active, created_at, updated_at
		 FROM users ORDER BY id LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.RoleID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches a user by id.
func (r *Repository) GetByID(ctx context.Context, id int64) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, role_id, is_active, created_at, updated_at FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.RoleID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// RoleIDForUser resolves a user to its assigned role. An unknown user
// or a user without a role reports found=false without error; the
// resolver treats both as a stable empty permission set.
func (r *Repository) RoleIDForUser(ctx context.Context, userID int64) (int64, bool, error) {
	var roleID *int64
	err := r.pool.QueryRow(ctx, `SELECT role_id FROM users WHERE id = $1 AND is_active`, userID).Scan(&roleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	if roleID == nil {
		return 0, false, nil
	}
	return *roleID, true, nil
}

// AssignRole sets (or clears, with nil) the user's role.
func (r *Repository) AssignRole(ctx context.Context, userID int64, roleID *int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET role_id = $2, updated_at = now() WHERE id = $1`, userID, roleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
