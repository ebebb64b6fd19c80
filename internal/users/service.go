package users

import (
	"context"
	"log/slog"

	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, page shared.Pagination) ([]User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	AssignRole(ctx context.Context, userID int64, roleID *int64) error
}

// CacheInvalidator drops the resolver's cached user-to-role mapping
// after a role assignment changes. Implemented by *rbac.Resolver.
type CacheInvalidator interface {
	InvalidateUser(ctx context.Context, userID int64) error
}

// Service handles user directory logic.
type Service struct {
	repo   RepositoryPort
	cache  CacheInvalidator
	logger *slog.Logger
}

// NewService builds Service instance. cache may be nil.
func NewService(repo RepositoryPort, cache CacheInvalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// ListUsers returns a page of users.
func (s *Service) ListUsers(ctx context.Context, page shared.Pagination) ([]User, error) {
	return s.repo.ListUsers(ctx, page)
}

// GetUser fetches a single user.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetByID(ctx, id)
}

// AssignRole changes the user's role and drops the cached mapping so
// the change takes effect before the TTL would expire it.
func (s *Service) AssignRole(ctx context.Context, userID int64, roleID *int64) error {
	if err := s.repo.AssignRole(ctx, userID, roleID); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateUser(ctx, userID); err != nil {
			s.logger.Warn("users: invalidate cached role mapping",
				slog.Int64("user_id", userID), slog.Any("error", err))
		}
	}
	return nil
}
