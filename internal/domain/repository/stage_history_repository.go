package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/movecrm-api/internal/domain/entity"
	"github.com/sangkips/movecrm-api/internal/domain/enum"
	"github.com/sangkips/movecrm-api/pkg/pagination"
)

// StageChange describes the client row update that accompanies a ledger append
type StageChange struct {
	ClientID       uuid.UUID
	ExpectedStage  enum.ClientStage
	NewStage       enum.ClientStage
	Classification enum.Classification
	ChangedAt      time.Time
}

// HistoryFilter narrows the stage history feed
type HistoryFilter struct {
	ActorID  *uuid.UUID
	NewStage *enum.ClientStage
	From     *time.Time
	To       *time.Time
}

// StageHistoryRepository is the append-only ledger of stage transitions
type StageHistoryRepository interface {
	// RecordTransition updates the client row only if its stage still equals
	// change.ExpectedStage and appends entry in the same transaction. It returns
	// apperror.ErrConcurrencyConflict when the stage moved underneath the caller.
	RecordTransition(ctx context.Context, change StageChange, entry *entity.StageHistoryEntry) error
	// ListByClient returns a client's entries ordered by sequence
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]entity.StageHistoryEntry, error)
	List(ctx context.Context, filter HistoryFilter, params *pagination.PaginationParams) ([]entity.StageHistoryEntry, int64, error)
}
