package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/movecrm-api/internal/domain/entity"
	"github.com/sangkips/movecrm-api/internal/domain/repository"
	"github.com/sangkips/movecrm-api/internal/infrastructure/database"
	infraRepo "github.com/sangkips/movecrm-api/internal/infrastructure/repository"
	"github.com/sangkips/movecrm-api/pkg/pagination"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db          *gorm.DB
	clientRepo  repository.ClientRepository
	historyRepo repository.StageHistoryRepository
	clients     *ClientService
	lifecycle   *LifecycleService
	pipeline    *PipelineService
	reports     *countingInvalidator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewSQLiteDB(":memory:", database.NewGormConfig("silent"))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	env := &testEnv{
		db:          db,
		clientRepo:  infraRepo.NewClientRepository(db),
		historyRepo: infraRepo.NewStageHistoryRepository(db),
		reports:     &countingInvalidator{},
	}
	env.clients = NewClientService(env.clientRepo, env.reports)
	env.lifecycle = NewLifecycleService(env.clientRepo, env.historyRepo, env.reports, 3)
	env.pipeline = NewPipelineService(infraRepo.NewPipelineRepository(db), env.historyRepo, nil, 5)
	return env
}

func (e *testEnv) createUser(t *testing.T, email string) *entity.User {
	t.Helper()
	user := &entity.User{FirstName: "Sales", LastName: "Agent", Email: email, IsActive: true}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) createClient(t *testing.T, owner uuid.UUID, name string) *entity.Client {
	t.Helper()
	client, err := e.clients.CreateClient(context.Background(), &CreateClientInput{UserID: owner, Name: name})
	require.NoError(t, err)
	return client
}

// stepClock returns successive instants starting at start, step apart
func stepClock(start time.Time, step time.Duration) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(step)
		return now
	}
}

type countingInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (c *countingInvalidator) Invalidate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
}

func (c *countingInvalidator) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type mockClientRepository struct {
	mock.Mock
}

func (m *mockClientRepository) Create(ctx context.Context, client *entity.Client) error {
	return m.Called(ctx, client).Error(0)
}

func (m *mockClientRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Client, error) {
	args := m.Called(ctx, id)
	client, _ := args.Get(0).(*entity.Client)
	return client, args.Error(1)
}

func (m *mockClientRepository) UpdateContact(ctx context.Context, client *entity.Client) error {
	return m.Called(ctx, client).Error(0)
}

func (m *mockClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockClientRepository) List(ctx context.Context, filter repository.ClientFilter, params *pagination.PaginationParams) ([]entity.Client, int64, error) {
	args := m.Called(ctx, filter, params)
	clients, _ := args.Get(0).([]entity.Client)
	return clients, args.Get(1).(int64), args.Error(2)
}

func (m *mockClientRepository) ListWithCursor(ctx context.Context, filter repository.ClientFilter, params *pagination.CursorParams) ([]entity.Client, error) {
	args := m.Called(ctx, filter, params)
	clients, _ := args.Get(0).([]entity.Client)
	return clients, args.Error(1)
}

type mockStageHistoryRepository struct {
	mock.Mock
}

func (m *mockStageHistoryRepository) RecordTransition(ctx context.Context, change repository.StageChange, entry *entity.StageHistoryEntry) error {
	return m.Called(ctx, change, entry).Error(0)
}

func (m *mockStageHistoryRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]entity.StageHistoryEntry, error) {
	args := m.Called(ctx, clientID)
	entries, _ := args.Get(0).([]entity.StageHistoryEntry)
	return entries, args.Error(1)
}

func (m *mockStageHistoryRepository) List(ctx context.Context, filter repository.HistoryFilter, params *pagination.PaginationParams) ([]entity.StageHistoryEntry, int64, error) {
	args := m.Called(ctx, filter, params)
	entries, _ := args.Get(0).([]entity.StageHistoryEntry)
	return entries, args.Get(1).(int64), args.Error(2)
}
