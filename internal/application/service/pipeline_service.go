package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/movecrm-api/internal/domain/entity"
	"github.com/sangkips/movecrm-api/internal/domain/enum"
	"github.com/sangkips/movecrm-api/internal/domain/lifecycle"
	"github.com/sangkips/movecrm-api/internal/domain/repository"
	"github.com/sangkips/movecrm-api/internal/metrics"
	"github.com/sangkips/movecrm-api/pkg/apperror"
	"github.com/sangkips/movecrm-api/pkg/pagination"
)

const (
	// DefaultLostReasonsTopN is used when neither the request nor config sets N
	DefaultLostReasonsTopN = 5
	// MaxLostReasonsTopN caps the loss reason ranking
	MaxLostReasonsTopN = 50
)

// ReportCache stores computed reports. Lookup returns the cache generation the
// caller must hand back to Store.
type ReportCache interface {
	ReportInvalidator
	Lookup(ctx context.Context, key string, dest interface{}) (int64, bool)
	Store(ctx context.Context, gen int64, key string, value interface{})
}

// PipelineService builds read-only views over the client pipeline
type PipelineService struct {
	pipelineRepo repository.PipelineRepository
	historyRepo  repository.StageHistoryRepository
	cache        ReportCache
	defaultTopN  int
	now          func() time.Time
}

// NewPipelineService creates a new pipeline service. cache may be nil.
func NewPipelineService(
	pipelineRepo repository.PipelineRepository,
	historyRepo repository.StageHistoryRepository,
	cache ReportCache,
	defaultTopN int,
) *PipelineService {
	if defaultTopN <= 0 || defaultTopN > MaxLostReasonsTopN {
		defaultTopN = DefaultLostReasonsTopN
	}
	return &PipelineService{
		pipelineRepo: pipelineRepo,
		historyRepo:  historyRepo,
		cache:        cache,
		defaultTopN:  defaultTopN,
		now:          time.Now,
	}
}

// StageTotal is the number of clients currently in a stage
type StageTotal struct {
	Stage enum.ClientStage `json:"stage"`
	Count int64            `json:"count"`
}

// LossReasonTotal is how often a loss reason was recorded
type LossReasonTotal struct {
	Reason enum.LossReason `json:"reason"`
	Count  int64           `json:"count"`
}

// ConversionReport summarizes how the filtered clients are spread across the pipeline
type ConversionReport struct {
	StageCounts         []StageTotal      `json:"stage_counts"`
	TotalCount          int64             `json:"total_count"`
	ClosedCount         int64             `json:"closed_count"`
	ConversionRate      float64           `json:"conversion_rate"`
	ConversionRateLabel string            `json:"conversion_rate_label"`
	TopLossReasons      []LossReasonTotal `json:"top_loss_reasons"`
	GeneratedAt         time.Time         `json:"generated_at"`
}

// ConversionInput selects the population and ranking size of a conversion report
type ConversionInput struct {
	Filter repository.ConversionFilter
	// TopN is the number of loss reasons to rank; 0 uses the configured default
	TopN int
}

// Conversion computes stage counts, the lead to closed-contract conversion
// rate and the most frequent loss reasons. It never writes to the database.
func (s *PipelineService) Conversion(ctx context.Context, input *ConversionInput) (*ConversionReport, error) {
	topN := input.TopN
	if topN == 0 {
		topN = s.defaultTopN
	}
	if topN < 0 || topN > MaxLostReasonsTopN {
		return nil, apperror.NewFieldError("top", fmt.Sprintf("must be between 1 and %d", MaxLostReasonsTopN))
	}
	f := input.Filter
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return nil, apperror.NewFieldError("from", "must be before to")
	}

	key := conversionCacheKey(f, topN)
	var gen int64
	if s.cache != nil {
		var cached ConversionReport
		var hit bool
		gen, hit = s.cache.Lookup(ctx, key, &cached)
		metrics.RecordCacheLookup(hit)
		if hit {
			return &cached, nil
		}
	}

	rows, err := s.pipelineRepo.StageCounts(ctx, f)
	if err != nil {
		log.Printf("Error: counting clients per stage: %v", err)
		return nil, apperror.NewStorageError("conversion report", err)
	}
	reasons, err := s.pipelineRepo.TopLossReasons(ctx, f, topN)
	if err != nil {
		log.Printf("Error: ranking loss reasons: %v", err)
		return nil, apperror.NewStorageError("conversion report", err)
	}

	report := buildConversionReport(rows, reasons)
	report.GeneratedAt = s.now().UTC()

	if s.cache != nil {
		s.cache.Store(ctx, gen, key, report)
	}
	return report, nil
}

func buildConversionReport(rows []repository.StageCount, reasons []repository.LossReasonCount) *ConversionReport {
	byStage := make(map[enum.ClientStage]int64, len(rows))
	for _, row := range rows {
		byStage[row.Stage] += row.Count
	}

	report := &ConversionReport{
		StageCounts:    make([]StageTotal, 0, len(enum.ClientStages)),
		TopLossReasons: make([]LossReasonTotal, 0, len(reasons)),
	}
	for _, stage := range enum.ClientStages {
		count := byStage[stage]
		report.StageCounts = append(report.StageCounts, StageTotal{Stage: stage, Count: count})
		report.TotalCount += count
	}
	report.ClosedCount = byStage[enum.ClientStageContractClosed]

	if report.TotalCount > 0 {
		report.ConversionRate = round2(float64(report.ClosedCount) / float64(report.TotalCount) * 100)
	}
	report.ConversionRateLabel = fmt.Sprintf("%.2f%%", report.ConversionRate)

	for _, r := range reasons {
		report.TopLossReasons = append(report.TopLossReasons, LossReasonTotal{Reason: r.Reason, Count: r.Count})
	}
	return report
}

func conversionCacheKey(f repository.ConversionFilter, topN int) string {
	parts := []string{"conversion", fmt.Sprintf("top=%d", topN)}
	if f.From != nil {
		parts = append(parts, "from="+f.From.UTC().Format(time.RFC3339))
	}
	if f.To != nil {
		parts = append(parts, "to="+f.To.UTC().Format(time.RFC3339))
	}
	if f.ActorID != nil {
		parts = append(parts, "actor="+f.ActorID.String())
	}
	if f.LeadSource != "" {
		parts = append(parts, "source="+f.LeadSource)
	}
	return strings.Join(parts, "|")
}

// StageInfo describes a pipeline stage and where a client can go from it
type StageInfo struct {
	Stage          enum.ClientStage    `json:"stage"`
	Classification enum.Classification `json:"classification"`
	AllowedTargets []enum.ClientStage  `json:"allowed_targets"`
	Terminal       bool                `json:"terminal"`
	Initial        bool                `json:"initial"`
}

// Stages lists every stage with its outgoing moves
func (s *PipelineService) Stages() []StageInfo {
	out := make([]StageInfo, 0, len(enum.ClientStages))
	for _, stage := range enum.ClientStages {
		out = append(out, StageInfo{
			Stage:          stage,
			Classification: lifecycle.ClassificationFor(stage),
			AllowedTargets: lifecycle.AllowedTargets(stage),
			Terminal:       lifecycle.IsTerminal(stage),
			Initial:        stage == lifecycle.InitialStage,
		})
	}
	return out
}

// HistoryInput filters the stage history feed
type HistoryInput struct {
	ActorID    *uuid.UUID
	NewStage   *enum.ClientStage
	From       *time.Time
	To         *time.Time
	Pagination *pagination.PaginationParams
}

// History returns the stage history feed across all clients, newest first
func (s *PipelineService) History(ctx context.Context, input *HistoryInput) (*pagination.PaginatedResult[entity.StageHistoryEntry], error) {
	params := input.Pagination
	if params == nil {
		params = pagination.DefaultPagination()
	}
	params.Validate()

	entries, total, err := s.historyRepo.List(ctx, repository.HistoryFilter{
		ActorID:  input.ActorID,
		NewStage: input.NewStage,
		From:     input.From,
		To:       input.To,
	}, params)
	if err != nil {
		return nil, apperror.NewStorageError("stage history list", err)
	}
	if entries == nil {
		entries = []entity.StageHistoryEntry{}
	}

	return pagination.NewPaginatedResult(entries, pagination.NewPagination(params.Page, params.PerPage, total)), nil
}
