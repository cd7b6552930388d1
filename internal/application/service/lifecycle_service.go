package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/movecrm-api/internal/domain/entity"
	"github.com/sangkips/movecrm-api/internal/domain/enum"
	"github.com/sangkips/movecrm-api/internal/domain/lifecycle"
	"github.com/sangkips/movecrm-api/internal/domain/repository"
	"github.com/sangkips/movecrm-api/internal/metrics"
	"github.com/sangkips/movecrm-api/pkg/apperror"
)

const maxNotesLength = 2000

// LifecycleService moves clients through the sales pipeline and reads back
// their stage history.
type LifecycleService struct {
	clientRepo  repository.ClientRepository
	historyRepo repository.StageHistoryRepository
	reports     ReportInvalidator
	maxRetries  int
	now         func() time.Time
}

// NewLifecycleService creates a new lifecycle service. maxRetries bounds how
// many times a transition that lost a concurrency race is re-attempted.
func NewLifecycleService(
	clientRepo repository.ClientRepository,
	historyRepo repository.StageHistoryRepository,
	reports ReportInvalidator,
	maxRetries int,
) *LifecycleService {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &LifecycleService{
		clientRepo:  clientRepo,
		historyRepo: historyRepo,
		reports:     reports,
		maxRetries:  maxRetries,
		now:         time.Now,
	}
}

// TransitionInput represents a request to move a client to another stage
type TransitionInput struct {
	ClientID    uuid.UUID
	TargetStage enum.ClientStage
	ActorID     uuid.UUID
	Notes       *string
	Details     entity.StageDetails
}

// TransitionResult holds the client after the move and the ledger entry recording it
type TransitionResult struct {
	Client *entity.Client            `json:"client"`
	Entry  *entity.StageHistoryEntry `json:"entry"`
}

// Transition validates and applies a stage move. The client row update and the
// ledger append commit together or not at all. When another request moves the
// client first, the client is re-read and the move re-validated against its
// new stage, up to maxRetries times.
func (s *LifecycleService) Transition(ctx context.Context, input *TransitionInput) (*TransitionResult, error) {
	if fieldErrs := validateTransitionInput(input); len(fieldErrs) > 0 {
		metrics.RecordRejection(apperror.TypeValidation)
		return nil, apperror.NewValidationError(fieldErrs)
	}

	notes := input.Notes
	if notes != nil {
		trimmed := strings.TrimSpace(*notes)
		notes = &trimmed
		if trimmed == "" {
			notes = nil
		}
	}

	for attempt := 1; ; attempt++ {
		client, err := s.clientRepo.GetByID(ctx, input.ClientID)
		if err != nil {
			log.Printf("Error: loading client %s for transition to %s (attempt %d): %v", input.ClientID, input.TargetStage, attempt, err)
			return nil, apperror.NewStorageError("client lookup", err)
		}
		if client == nil {
			metrics.RecordRejection(apperror.TypeNotFound)
			return nil, apperror.NewNotFoundError("Client")
		}

		from := client.CurrentStage
		if !from.IsValid() {
			err := fmt.Errorf("client %s has unknown stage %q", client.ID, from)
			log.Printf("Error: %v", err)
			return nil, apperror.NewStorageError("client lookup", err)
		}

		if !lifecycle.CanTransition(from, input.TargetStage) {
			metrics.RecordRejection(apperror.TypeInvalidTransition)
			return nil, apperror.NewInvalidTransitionError(string(from), string(input.TargetStage))
		}

		now := s.now().UTC()
		classification := lifecycle.ClassificationFor(input.TargetStage)
		entry := &entity.StageHistoryEntry{
			PreviousStage:  &from,
			NewStage:       input.TargetStage,
			TransitionedAt: now,
			ActorID:        input.ActorID,
			Notes:          notes,
			Details:        input.Details,
		}

		err = s.historyRepo.RecordTransition(ctx, repository.StageChange{
			ClientID:       client.ID,
			ExpectedStage:  from,
			NewStage:       input.TargetStage,
			Classification: classification,
			ChangedAt:      now,
		}, entry)

		if err == nil {
			client.CurrentStage = input.TargetStage
			client.Classification = classification
			client.UpdatedAt = now

			metrics.RecordTransition(from, input.TargetStage)
			if s.reports != nil {
				s.reports.Invalidate(ctx)
			}
			return &TransitionResult{Client: client, Entry: entry}, nil
		}

		if apperror.IsType(err, apperror.TypeConcurrencyConflict) {
			metrics.RecordConflict()
			if attempt > s.maxRetries {
				log.Printf("Warning: giving up on client %s transition %s -> %s after %d attempts", client.ID, from, input.TargetStage, attempt)
				metrics.RecordRejection(apperror.TypeConcurrencyConflict)
				return nil, apperror.ErrConcurrencyConflict
			}
			continue
		}

		log.Printf("Error: recording transition for client %s from %s to %s (attempt %d): %v", client.ID, from, input.TargetStage, attempt, err)
		return nil, apperror.NewStorageError("stage transition", err)
	}
}

func validateTransitionInput(input *TransitionInput) []apperror.FieldError {
	var errs []apperror.FieldError

	if input.ClientID == uuid.Nil {
		errs = append(errs, apperror.FieldError{Field: "client_id", Message: "is required"})
	}
	if input.ActorID == uuid.Nil {
		errs = append(errs, apperror.FieldError{Field: "actor_id", Message: "is required"})
	}
	if !input.TargetStage.IsValid() {
		errs = append(errs, apperror.FieldError{Field: "target_stage", Message: "must be one of " + stageList()})
		return errs
	}
	if input.Notes != nil && len(*input.Notes) > maxNotesLength {
		errs = append(errs, apperror.FieldError{Field: "notes", Message: fmt.Sprintf("must be at most %d characters", maxNotesLength)})
	}

	return append(errs, input.Details.Validate(input.TargetStage)...)
}

func stageList() string {
	names := make([]string, 0, len(enum.ClientStages))
	for _, stage := range enum.ClientStages {
		names = append(names, string(stage))
	}
	return strings.Join(names, ", ")
}

// TimelineStats summarizes a client's journey through the pipeline
type TimelineStats struct {
	TotalStages         int        `json:"total_stages"`
	FirstTransition     time.Time  `json:"first_transition"`
	LastTransition      *time.Time `json:"last_transition,omitempty"`
	TotalDays           int        `json:"total_days"`
	AverageDaysPerStage float64    `json:"average_days_per_stage"`
}

// Timeline is a client's ordered stage history with derived statistics
type Timeline struct {
	Client  *entity.Client             `json:"client"`
	Entries []entity.StageHistoryEntry `json:"entries"`
	Stats   TimelineStats              `json:"stats"`
}

// Timeline returns the client's ledger entries in the order they were
// recorded. It never writes.
func (s *LifecycleService) Timeline(ctx context.Context, clientID uuid.UUID) (*Timeline, error) {
	client, err := s.clientRepo.GetByID(ctx, clientID)
	if err != nil {
		return nil, apperror.NewStorageError("client lookup", err)
	}
	if client == nil {
		return nil, apperror.NewNotFoundError("Client")
	}

	entries, err := s.historyRepo.ListByClient(ctx, clientID)
	if err != nil {
		log.Printf("Error: loading stage history for client %s: %v", clientID, err)
		return nil, apperror.NewStorageError("stage history lookup", err)
	}
	if entries == nil {
		entries = []entity.StageHistoryEntry{}
	}

	return &Timeline{
		Client:  client,
		Entries: entries,
		Stats:   computeTimelineStats(client.CreatedAt, entries),
	}, nil
}

func computeTimelineStats(createdAt time.Time, entries []entity.StageHistoryEntry) TimelineStats {
	if len(entries) == 0 {
		return TimelineStats{FirstTransition: createdAt}
	}

	first := entries[0].TransitionedAt
	last := entries[len(entries)-1].TransitionedAt
	totalDays := int(last.Sub(first).Hours() / 24)

	stats := TimelineStats{
		TotalStages:     len(entries),
		FirstTransition: first,
		LastTransition:  &last,
		TotalDays:       totalDays,
	}
	if len(entries) >= 2 {
		stats.AverageDaysPerStage = round2(float64(totalDays) / float64(len(entries)))
	}
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
