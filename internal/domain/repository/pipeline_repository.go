package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/movecrm-api/internal/domain/enum"
)

// ConversionFilter selects the client population for pipeline reports
type ConversionFilter struct {
	From       *time.Time
	To         *time.Time
	ActorID    *uuid.UUID
	LeadSource string
}

// StageCount is the number of clients currently in a stage
type StageCount struct {
	Stage enum.ClientStage
	Count int64
}

// LossReasonCount is the number of lost transitions carrying a reason code
type LossReasonCount struct {
	Reason enum.LossReason
	Count  int64
}

// PipelineRepository defines the aggregation queries behind pipeline reports
type PipelineRepository interface {
	// StageCounts groups the filtered clients by current stage. Stages with no
	// clients are omitted.
	StageCounts(ctx context.Context, filter ConversionFilter) ([]StageCount, error)
	// TopLossReasons ranks reason codes of transitions into lost, most frequent first
	TopLossReasons(ctx context.Context, filter ConversionFilter, limit int) ([]LossReasonCount, error)
}
