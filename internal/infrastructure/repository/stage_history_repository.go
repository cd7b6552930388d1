package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sangkips/movecrm-api/internal/domain/entity"
	domainRepo "github.com/sangkips/movecrm-api/internal/domain/repository"
	"github.com/sangkips/movecrm-api/pkg/apperror"
	"github.com/sangkips/movecrm-api/pkg/pagination"
	"gorm.io/gorm"
)

type stageHistoryRepository struct {
	db *gorm.DB
}

// NewStageHistoryRepository creates a new stage history repository
func NewStageHistoryRepository(db *gorm.DB) domainRepo.StageHistoryRepository {
	return &stageHistoryRepository{db: db}
}

// RecordTransition moves the client and appends the ledger entry atomically.
// The update is keyed on the stage the caller read, so of two racing requests
// only the first one to commit matches a row.
func (r *stageHistoryRepository) RecordTransition(ctx context.Context, change domainRepo.StageChange, entry *entity.StageHistoryEntry) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&entity.Client{}).
			Where("id = ? AND current_stage = ?", change.ClientID, change.ExpectedStage).
			Updates(map[string]interface{}{
				"current_stage":  change.NewStage,
				"classification": change.Classification,
				"updated_at":     change.ChangedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperror.ErrConcurrencyConflict
		}

		var last int
		if err := tx.Model(&entity.StageHistoryEntry{}).
			Where("client_id = ?", change.ClientID).
			Select("COALESCE(MAX(sequence), 0)").
			Scan(&last).Error; err != nil {
			return err
		}

		entry.ClientID = change.ClientID
		entry.Sequence = last + 1
		return tx.Create(entry).Error
	})

	// A duplicate (client_id, sequence) means another writer appended first
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.ErrConcurrencyConflict
	}
	return err
}

func (r *stageHistoryRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]entity.StageHistoryEntry, error) {
	var entries []entity.StageHistoryEntry
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("sequence ASC").
		Find(&entries).Error
	return entries, err
}

func (r *stageHistoryRepository) List(ctx context.Context, filter domainRepo.HistoryFilter, params *pagination.PaginationParams) ([]entity.StageHistoryEntry, int64, error) {
	var entries []entity.StageHistoryEntry
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.StageHistoryEntry{}).Scopes(historyFilterScope(filter))

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Validate()
	err := query.Offset(params.Offset()).Limit(params.PerPage).
		Order("transitioned_at DESC, sequence DESC").
		Find(&entries).Error

	return entries, total, err
}
