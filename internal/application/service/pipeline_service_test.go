package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/movecrm-api/internal/domain/enum"
	"github.com/sangkips/movecrm-api/internal/domain/repository"
	"github.com/sangkips/movecrm-api/pkg/apperror"
	"github.com/sangkips/movecrm-api/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeReportCache struct {
	gen     int64
	entries map[string]ConversionReport
	stored  []int64
}

func newFakeReportCache() *fakeReportCache {
	return &fakeReportCache{entries: map[string]ConversionReport{}}
}

func (c *fakeReportCache) Invalidate(ctx context.Context) {
	c.gen++
	c.entries = map[string]ConversionReport{}
}

func (c *fakeReportCache) Lookup(ctx context.Context, key string, dest interface{}) (int64, bool) {
	report, ok := c.entries[key]
	if ok {
		*dest.(*ConversionReport) = report
	}
	return c.gen, ok
}

func (c *fakeReportCache) Store(ctx context.Context, gen int64, key string, value interface{}) {
	c.stored = append(c.stored, gen)
	if gen != c.gen {
		return
	}
	c.entries[key] = *value.(*ConversionReport)
}

type mockPipelineRepository struct {
	mock.Mock
}

func (m *mockPipelineRepository) StageCounts(ctx context.Context, filter repository.ConversionFilter) ([]repository.StageCount, error) {
	args := m.Called(ctx, filter)
	rows, _ := args.Get(0).([]repository.StageCount)
	return rows, args.Error(1)
}

func (m *mockPipelineRepository) TopLossReasons(ctx context.Context, filter repository.ConversionFilter, limit int) ([]repository.LossReasonCount, error) {
	args := m.Called(ctx, filter, limit)
	rows, _ := args.Get(0).([]repository.LossReasonCount)
	return rows, args.Error(1)
}

func TestPipelineService_EmptyReport(t *testing.T) {
	env := newTestEnv(t)

	report, err := env.pipeline.Conversion(context.Background(), &ConversionInput{})
	require.NoError(t, err)

	assert.Equal(t, int64(0), report.TotalCount)
	assert.Zero(t, report.ConversionRate)
	assert.Equal(t, "0.00%", report.ConversionRateLabel)
	assert.Empty(t, report.TopLossReasons)
	require.Len(t, report.StageCounts, len(enum.ClientStages))
	for i, stage := range enum.ClientStages {
		assert.Equal(t, stage, report.StageCounts[i].Stage)
		assert.Zero(t, report.StageCounts[i].Count)
	}
}

func TestPipelineService_Conversion(t *testing.T) {
	env := newTestEnv(t)
	u1 := env.createUser(t, "u1@example.com")

	closed := env.createClient(t, u1.ID, "Closed Client")
	env.move(t, closed.ID, u1.ID, enum.ClientStageQuoteSent, quoteDetails())
	env.move(t, closed.ID, u1.ID, enum.ClientStageContractClosed, contractDetails())

	expensive := env.createClient(t, u1.ID, "Expensive Client")
	env.move(t, expensive.ID, u1.ID, enum.ClientStageQuoteSent, quoteDetails())
	env.move(t, expensive.ID, u1.ID, enum.ClientStageLost, lossDetails(enum.LossReasonTooExpensive))

	competitor := env.createClient(t, u1.ID, "Competitor Client")
	env.move(t, competitor.ID, u1.ID, enum.ClientStageLost, lossDetails(enum.LossReasonCompetitor))

	env.createClient(t, u1.ID, "Fresh Lead")

	report, err := env.pipeline.Conversion(context.Background(), &ConversionInput{})
	require.NoError(t, err)

	assert.Equal(t, int64(4), report.TotalCount)
	assert.Equal(t, int64(1), report.ClosedCount)
	assert.Equal(t, 25.0, report.ConversionRate)
	assert.Equal(t, "25.00%", report.ConversionRateLabel)

	counts := map[enum.ClientStage]int64{}
	for _, sc := range report.StageCounts {
		counts[sc.Stage] = sc.Count
	}
	assert.Equal(t, int64(1), counts[enum.ClientStageLeadCaptured])
	assert.Equal(t, int64(0), counts[enum.ClientStageQuoteSent])
	assert.Equal(t, int64(1), counts[enum.ClientStageContractClosed])
	assert.Equal(t, int64(2), counts[enum.ClientStageLost])

	require.Len(t, report.TopLossReasons, 2)
	assert.Equal(t, enum.LossReasonCompetitor, report.TopLossReasons[0].Reason)
	assert.Equal(t, enum.LossReasonTooExpensive, report.TopLossReasons[1].Reason)

	limited, err := env.pipeline.Conversion(context.Background(), &ConversionInput{TopN: 1})
	require.NoError(t, err)
	require.Len(t, limited.TopLossReasons, 1)
	assert.Equal(t, enum.LossReasonCompetitor, limited.TopLossReasons[0].Reason)
}

func TestPipelineService_ConversionValidation(t *testing.T) {
	svc := NewPipelineService(new(mockPipelineRepository), new(mockStageHistoryRepository), nil, 5)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, -1)

	tests := []struct {
		name  string
		input ConversionInput
		field string
	}{
		{name: "negative top", input: ConversionInput{TopN: -1}, field: "top"},
		{name: "top above cap", input: ConversionInput{TopN: MaxLostReasonsTopN + 1}, field: "top"},
		{name: "inverted range", input: ConversionInput{Filter: repository.ConversionFilter{From: &from, To: &to}}, field: "from"},
		{name: "empty range", input: ConversionInput{Filter: repository.ConversionFilter{From: &from, To: &from}}, field: "from"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Conversion(context.Background(), &tt.input)

			appErr := apperror.GetAppError(err)
			assert.Equal(t, apperror.TypeValidation, appErr.Type)
			require.Len(t, appErr.Errors, 1)
			assert.Equal(t, tt.field, appErr.Errors[0].Field)
		})
	}
}

func TestPipelineService_ConversionUsesDefaultTopN(t *testing.T) {
	repo := new(mockPipelineRepository)
	svc := NewPipelineService(repo, new(mockStageHistoryRepository), nil, 7)

	repo.On("StageCounts", mock.Anything, mock.Anything).Return([]repository.StageCount{
		{Stage: enum.ClientStageContractClosed, Count: 1},
		{Stage: enum.ClientStageLeadCaptured, Count: 2},
	}, nil)
	repo.On("TopLossReasons", mock.Anything, mock.Anything, 7).Return(nil, nil)

	report, err := svc.Conversion(context.Background(), &ConversionInput{})
	require.NoError(t, err)

	assert.Equal(t, 33.33, report.ConversionRate)
	assert.Equal(t, "33.33%", report.ConversionRateLabel)
	assert.NotNil(t, report.TopLossReasons)
	repo.AssertExpectations(t)
}

func TestPipelineService_ConversionStorageFailure(t *testing.T) {
	repo := new(mockPipelineRepository)
	svc := NewPipelineService(repo, new(mockStageHistoryRepository), nil, 5)
	repo.On("StageCounts", mock.Anything, mock.Anything).Return(nil, errors.New("relation does not exist"))

	_, err := svc.Conversion(context.Background(), &ConversionInput{})

	assert.True(t, apperror.IsType(err, apperror.TypeStorage))
	repo.AssertNotCalled(t, "TopLossReasons", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipelineService_ConversionCache(t *testing.T) {
	repo := new(mockPipelineRepository)
	cache := newFakeReportCache()
	svc := NewPipelineService(repo, new(mockStageHistoryRepository), cache, 5)

	repo.On("StageCounts", mock.Anything, mock.Anything).Return([]repository.StageCount{
		{Stage: enum.ClientStageContractClosed, Count: 1},
	}, nil)
	repo.On("TopLossReasons", mock.Anything, mock.Anything, 5).Return(nil, nil)

	first, err := svc.Conversion(context.Background(), &ConversionInput{})
	require.NoError(t, err)
	second, err := svc.Conversion(context.Background(), &ConversionInput{})
	require.NoError(t, err)

	assert.Equal(t, first.ConversionRate, second.ConversionRate)
	repo.AssertNumberOfCalls(t, "StageCounts", 1)

	cache.Invalidate(context.Background())
	_, err = svc.Conversion(context.Background(), &ConversionInput{})
	require.NoError(t, err)

	repo.AssertNumberOfCalls(t, "StageCounts", 2)
	assert.Equal(t, []int64{0, 1}, cache.stored)
}

func TestPipelineService_ConversionStoresUnderLookupGeneration(t *testing.T) {
	repo := new(mockPipelineRepository)
	cache := newFakeReportCache()
	svc := NewPipelineService(repo, new(mockStageHistoryRepository), cache, 5)

	// A write lands while the report is being computed
	repo.On("StageCounts", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		cache.Invalidate(context.Background())
	}).Return([]repository.StageCount{}, nil)
	repo.On("TopLossReasons", mock.Anything, mock.Anything, 5).Return(nil, nil)

	_, err := svc.Conversion(context.Background(), &ConversionInput{})
	require.NoError(t, err)

	assert.Equal(t, []int64{0}, cache.stored)
	assert.Empty(t, cache.entries, "stale report must not be served")
}

func TestConversionCacheKey(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	actor := uuid.MustParse("7d1a54e2-3b8c-4e0f-9a51-0c3f6a2d9e11")

	assert.Equal(t, "conversion|top=5", conversionCacheKey(repository.ConversionFilter{}, 5))
	assert.Equal(t,
		"conversion|top=3|from=2026-01-01T00:00:00Z|actor=7d1a54e2-3b8c-4e0f-9a51-0c3f6a2d9e11|source=referral",
		conversionCacheKey(repository.ConversionFilter{From: &from, ActorID: &actor, LeadSource: "referral"}, 3),
	)
}

func TestPipelineService_Stages(t *testing.T) {
	svc := NewPipelineService(nil, nil, nil, 0)

	stages := svc.Stages()

	require.Len(t, stages, 5)
	assert.Equal(t, enum.ClientStageLeadCaptured, stages[0].Stage)
	assert.True(t, stages[0].Initial)
	assert.Equal(t, []enum.ClientStage{enum.ClientStageQuoteSent, enum.ClientStageLost}, stages[0].AllowedTargets)

	for _, info := range stages {
		if info.Stage == enum.ClientStageContractClosed || info.Stage == enum.ClientStageLost {
			assert.True(t, info.Terminal, string(info.Stage))
			assert.Empty(t, info.AllowedTargets)
		}
	}
	assert.Equal(t, enum.ClassificationCustomer, stages[3].Classification)
}

func TestPipelineService_History(t *testing.T) {
	env := newTestEnv(t)
	u1 := env.createUser(t, "u1@example.com")
	u2 := env.createUser(t, "u2@example.com")
	env.lifecycle.now = stepClock(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC), time.Hour)

	a := env.createClient(t, u1.ID, "Client A")
	b := env.createClient(t, u1.ID, "Client B")
	env.move(t, a.ID, u1.ID, enum.ClientStageQuoteSent, quoteDetails())
	env.move(t, b.ID, u2.ID, enum.ClientStageQuoteSent, quoteDetails())
	env.move(t, a.ID, u2.ID, enum.ClientStageLost, lossDetails(enum.LossReasonPostponed))

	all, err := env.pipeline.History(context.Background(), &HistoryInput{})
	require.NoError(t, err)
	require.Len(t, all.Items, 3)
	assert.Equal(t, int64(3), all.Pagination.Total)
	assert.Equal(t, enum.ClientStageLost, all.Items[0].NewStage, "newest first")

	byActor, err := env.pipeline.History(context.Background(), &HistoryInput{ActorID: &u2.ID})
	require.NoError(t, err)
	assert.Len(t, byActor.Items, 2)

	quoted := enum.ClientStageQuoteSent
	paged, err := env.pipeline.History(context.Background(), &HistoryInput{
		NewStage:   &quoted,
		Pagination: &pagination.PaginationParams{Page: 2, PerPage: 1},
	})
	require.NoError(t, err)
	require.Len(t, paged.Items, 1)
	assert.Equal(t, a.ID, paged.Items[0].ClientID)
	assert.False(t, paged.Pagination.HasNext)
	assert.True(t, paged.Pagination.HasPrev)
}

func TestPipelineService_HistoryStorageFailure(t *testing.T) {
	historyRepo := new(mockStageHistoryRepository)
	svc := NewPipelineService(nil, historyRepo, nil, 5)
	historyRepo.On("List", mock.Anything, mock.Anything, mock.Anything).Return(nil, int64(0), errors.New("boom"))

	_, err := svc.History(context.Background(), &HistoryInput{})

	assert.True(t, apperror.IsType(err, apperror.TypeStorage))
}

var _ ReportCache = (*fakeReportCache)(nil)
