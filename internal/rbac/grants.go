package rbac

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/platform/db"
)

// GrantStore is the persistence boundary for role grants. It is the
// only component that mutates the role_grants relation; the resolver
// only reads it. Every successful mutation drops the role's cached
// permission set.
type GrantStore struct {
	pool   *pgxpool.Pool
	cache  *Cache
	logger *slog.Logger
}

// NewGrantStore constructs a GrantStore. cache may be nil.
func NewGrantStore(pool *pgxpool.Pool, cache *Cache, logger *slog.Logger) *GrantStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &GrantStore{pool: pool, cache: cache, logger: logger}
}

// ListByRole returns all grants for a role ordered by grant time. A
// role without grants, or an unknown role, yields an empty slice.
func (s *GrantStore) ListByRole(ctx context.Context, roleID int64) ([]RoleGrant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, role_id, permission_name, granted_at FROM role_grants WHERE role_id = $1 ORDER BY granted_at, permission_name`,
		roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var grants []RoleGrant
	for rows.Next() {
		var g RoleGrant
		if err := rows.Scan(&g.ID, &g.RoleID, &g.PermissionName, &g.GrantedAt); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return grants, nil
}

// Add grants a permission to a role. Granting an already-held
// permission is a no-op success.
func (s *GrantStore) Add(ctx context.Context, roleID int64, permissionName string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO role_grants (id, role_id, permission_name, granted_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (role_id, permission_name) DO NOTHING`,
		uuid.New(), roleID, permissionName, time.Now().UTC())
	if err != nil {
		return err
	}
	s.invalidate(ctx, roleID)
	return nil
}

// AddMany grants several permissions at once, skipping names the role
// already holds, and reports the number of grants actually written.
func (s *GrantStore) AddMany(ctx context.Context, roleID int64, permissionNames []string) (int, error) {
	if len(permissionNames) == 0 {
		return 0, nil
	}
	existing, err := s.ListByRole(ctx, roleID)
	if err != nil {
		return 0, err
	}
	held := make(map[string]struct{}, len(existing))
	for _, g := range existing {
		held[g.PermissionName] = struct{}{}
	}

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	queued := 0
	seen := make(map[string]struct{}, len(permissionNames))
	for _, name := range permissionNames {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if _, ok := held[name]; ok {
			continue
		}
		batch.Queue(
			`INSERT INTO role_grants (id, role_id, permission_name, granted_at) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (role_id, permission_name) DO NOTHING`,
			uuid.New(), roleID, name, now)
		queued++
	}
	if queued == 0 {
		return 0, nil
	}

	results := s.pool.SendBatch(ctx, batch)
	written := 0
	for i := 0; i < queued; i++ {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			s.invalidate(ctx, roleID)
			return written, err
		}
		written += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return written, err
	}
	s.invalidate(ctx, roleID)
	return written, nil
}

// Remove revokes a permission from a role. Revoking an absent grant
// succeeds.
func (s *GrantStore) Remove(ctx context.Context, roleID int64, permissionName string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM role_grants WHERE role_id = $1 AND permission_name = $2`,
		roleID, permissionName)
	if err != nil {
		return err
	}
	s.invalidate(ctx, roleID)
	return nil
}

// ReplaceAll swaps the role's grants for the given set inside one
// transaction. If the insert half fails the transaction rolls back, so
// a partial failure can only leave the role with fewer permissions than
// requested, never a mix of stale and new ones.
func (s *GrantStore) ReplaceAll(ctx context.Context, roleID int64, permissionNames []string) error {
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_grants WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		now := time.Now().UTC()
		seen := make(map[string]struct{}, len(permissionNames))
		for _, name := range permissionNames {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			if _, err := tx.Exec(ctx,
				`INSERT INTO role_grants (id, role_id, permission_name, granted_at) VALUES ($1, $2, $3, $4)`,
				uuid.New(), roleID, name, now); err != nil {
				return err
			}
		}
		return nil
	})
	// Invalidate even on failure: the transaction may have rolled back,
	// but dropping the entry only costs one recomputation.
	s.invalidate(ctx, roleID)
	return err
}

func (s *GrantStore) invalidate(ctx context.Context, roleID int64) {
	if err := s.cache.Delete(ctx, roleKey(roleID)); err != nil {
		s.logger.Warn("rbac: cache invalidation failed",
			slog.Int64("role_id", roleID), slog.Any("error", err))
	}
}
