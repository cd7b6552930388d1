package repository

import (
	"context"

	"github.com/sangkips/movecrm-api/internal/domain/entity"
	"github.com/sangkips/movecrm-api/internal/domain/enum"
	domainRepo "github.com/sangkips/movecrm-api/internal/domain/repository"
	"gorm.io/gorm"
)

type pipelineRepository struct {
	db *gorm.DB
}

// NewPipelineRepository creates a new pipeline repository
func NewPipelineRepository(db *gorm.DB) domainRepo.PipelineRepository {
	return &pipelineRepository{db: db}
}

// StageCounts groups the filtered clients by their current stage
func (r *pipelineRepository) StageCounts(ctx context.Context, filter domainRepo.ConversionFilter) ([]domainRepo.StageCount, error) {
	var results []domainRepo.StageCount

	err := r.db.WithContext(ctx).
		Model(&entity.Client{}).
		Scopes(conversionScope(filter)).
		Select("clients.current_stage AS stage, COUNT(*) AS count").
		Group("clients.current_stage").
		Scan(&results).Error

	return results, err
}

// TopLossReasons ranks the reason codes recorded on transitions into lost
func (r *pipelineRepository) TopLossReasons(ctx context.Context, filter domainRepo.ConversionFilter, limit int) ([]domainRepo.LossReasonCount, error) {
	var results []domainRepo.LossReasonCount

	err := r.db.WithContext(ctx).
		Table("client_stage_history AS h").
		Joins("JOIN clients ON clients.id = h.client_id AND clients.deleted_at IS NULL").
		Scopes(conversionScope(filter)).
		Where("h.new_stage = ? AND h.loss_reason IS NOT NULL", enum.ClientStageLost).
		Select("h.loss_reason AS reason, COUNT(*) AS count").
		Group("h.loss_reason").
		Order("COUNT(*) DESC, h.loss_reason ASC").
		Limit(limit).
		Scan(&results).Error

	return results, err
}
