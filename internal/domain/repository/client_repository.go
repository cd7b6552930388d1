package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/movecrm-api/internal/domain/entity"
	"github.com/sangkips/movecrm-api/internal/domain/enum"
	"github.com/sangkips/movecrm-api/pkg/pagination"
)

// ClientFilter narrows client listings. Zero values mean "no filter".
type ClientFilter struct {
	Search         string
	Stage          *enum.ClientStage
	Classification *enum.Classification
	LeadSource     string
	OwnerID        *uuid.UUID
}

// ClientRepository defines the interface for client data operations.
// CurrentStage and Classification are written only by StageHistoryRepository.RecordTransition.
type ClientRepository interface {
	Create(ctx context.Context, client *entity.Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Client, error)
	// UpdateContact persists identity and contact fields only
	UpdateContact(ctx context.Context, client *entity.Client) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ClientFilter, params *pagination.PaginationParams) ([]entity.Client, int64, error)
	// ListWithCursor fetches params.Limit+1 rows so callers can detect another page
	ListWithCursor(ctx context.Context, filter ClientFilter, params *pagination.CursorParams) ([]entity.Client, error)
}
