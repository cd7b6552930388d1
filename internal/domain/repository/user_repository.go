package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/movecrm-api/internal/domain/entity"
	"github.com/sangkips/movecrm-api/pkg/pagination"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetWithRoles(ctx context.Context, id uuid.UUID) (*entity.User, error)
	List(ctx context.Context, params *pagination.PaginationParams, search string) ([]entity.User, int64, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	// ReplaceRoles sets the user's roles to exactly roleNames
	ReplaceRoles(ctx context.Context, userID uuid.UUID, roleNames []string) error
	ListRoles(ctx context.Context) ([]entity.Role, error)
}
