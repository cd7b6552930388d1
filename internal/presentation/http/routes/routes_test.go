package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/movecrm-api/internal/application/service"
	"github.com/sangkips/movecrm-api/internal/config"
	"github.com/sangkips/movecrm-api/internal/domain/entity"
	"github.com/sangkips/movecrm-api/internal/infrastructure/database"
	"github.com/sangkips/movecrm-api/internal/infrastructure/repository"
	"github.com/sangkips/movecrm-api/internal/presentation/http/handler"
	"github.com/sangkips/movecrm-api/internal/presentation/http/middleware"
	"github.com/sangkips/movecrm-api/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type routesEnv struct {
	db         *gorm.DB
	router     *gin.Engine
	jwtManager *utils.JWTManager
}

func newRoutesEnv(t *testing.T, rl config.RateLimitConfig) *routesEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewSQLiteDB(":memory:", database.NewGormConfig("silent"))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, database.SeedDefaultData(db, config.AdminConfig{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cfg := &config.Config{
		App:       config.AppConfig{Name: "movecrm-api", Env: "test"},
		RateLimit: rl,
	}
	jwtManager := utils.NewJWTManager("routes-secret", cfg.App.Name, time.Hour, 24*time.Hour)

	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	historyRepo := repository.NewStageHistoryRepository(db)

	handlers := &Handlers{
		Auth:      handler.NewAuthHandler(service.NewAuthService(userRepo, jwtManager)),
		Client:    handler.NewClientHandler(service.NewClientService(clientRepo, nil)),
		Lifecycle: handler.NewLifecycleHandler(service.NewLifecycleService(clientRepo, historyRepo, nil, 3)),
		Pipeline:  handler.NewPipelineHandler(service.NewPipelineService(repository.NewPipelineRepository(db), historyRepo, nil, 5)),
		User:      handler.NewUserHandler(service.NewUserService(userRepo)),
	}

	stop := make(chan struct{})
	t.Cleanup(func() { close(stop) })

	router := Setup(handlers, &Deps{
		JWTManager:      jwtManager,
		Cfg:             cfg,
		IdempotencyRepo: repository.NewIdempotencyRepository(db),
		RateLimiter:     middleware.NewRateLimiter(middleware.RateLimiterConfigFrom(rl), stop),
	})

	return &routesEnv{db: db, router: router, jwtManager: jwtManager}
}

// tokenFor creates a user holding role and returns an access token for it
func (e *routesEnv) tokenFor(t *testing.T, email, role string) string {
	t.Helper()
	user := &entity.User{FirstName: "Test", LastName: "User", Email: email, IsActive: true}
	require.NoError(t, e.db.Create(user).Error)
	require.NoError(t, repository.NewUserRepository(e.db).ReplaceRoles(t.Context(), user.ID, []string{role}))

	loaded, err := repository.NewUserRepository(e.db).GetWithRoles(t.Context(), user.ID)
	require.NoError(t, err)

	token, err := e.jwtManager.GenerateAccessToken(loaded.ID, loaded.Email, loaded.GetRoleNames(), loaded.GetPermissions())
	require.NoError(t, err)
	return token
}

func (e *routesEnv) request(t *testing.T, method, path, token string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func defaultRateLimit() config.RateLimitConfig {
	return config.RateLimitConfig{Requests: 1000, Duration: 1}
}

func TestRoutes_HealthAndMetrics(t *testing.T) {
	env := newRoutesEnv(t, defaultRateLimit())

	w := env.request(t, http.MethodGet, "/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = env.request(t, http.MethodGet, "/metrics", "", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestRoutes_RequireAuthentication(t *testing.T) {
	env := newRoutesEnv(t, defaultRateLimit())

	w := env.request(t, http.MethodGet, "/api/v1/clients", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"unauthorized"`)

	w = env.request(t, http.MethodGet, "/api/v1/clients", "garbage", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	refresh, err := env.jwtManager.GenerateRefreshToken(uuid.New())
	require.NoError(t, err)
	w = env.request(t, http.MethodGet, "/api/v1/clients", refresh, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "refresh tokens are not access tokens")
}

func TestRoutes_Permissions(t *testing.T) {
	env := newRoutesEnv(t, defaultRateLimit())
	sales := env.tokenFor(t, "sales@example.com", database.RoleSales)
	admin := env.tokenFor(t, "admin@example.com", database.RoleAdmin)

	w := env.request(t, http.MethodGet, "/api/v1/clients", sales, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodGet, "/api/v1/pipeline/stages", sales, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodGet, "/api/v1/pipeline/conversion", sales, nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.request(t, http.MethodGet, "/api/v1/stage-history", sales, nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.request(t, http.MethodGet, "/api/v1/pipeline/conversion", admin, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutes_TransitionIdempotency(t *testing.T) {
	env := newRoutesEnv(t, defaultRateLimit())
	sales := env.tokenFor(t, "sales@example.com", database.RoleSales)

	w := env.request(t, http.MethodPost, "/api/v1/clients", sales, map[string]interface{}{"name": "Retry Client"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Data entity.Client `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	path := "/api/v1/clients/" + created.Data.ID.String() + "/transitions"
	body := map[string]interface{}{
		"target_stage": "quote_sent",
		"details":      map[string]interface{}{"quote": map[string]interface{}{"reference": "QT-77", "amount": 1200}},
	}
	headers := map[string]string{middleware.IdempotencyKeyHeader: "move-77"}

	first := env.request(t, http.MethodPost, path, sales, body, headers)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	replay := env.request(t, http.MethodPost, path, sales, body, headers)
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "true", replay.Header().Get(middleware.IdempotencyReplayedHeader))
	assert.JSONEq(t, first.Body.String(), replay.Body.String())

	var count int64
	require.NoError(t, env.db.Model(&entity.StageHistoryEntry{}).Where("client_id = ?", created.Data.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	other := map[string]interface{}{"target_stage": "in_negotiation"}
	reused := env.request(t, http.MethodPost, path, sales, other, headers)
	assert.Equal(t, http.StatusUnprocessableEntity, reused.Code)

	// Failed responses are not stored, so the key stays usable
	failed := env.request(t, http.MethodPost, path, sales, map[string]interface{}{"target_stage": "lead_captured"}, map[string]string{middleware.IdempotencyKeyHeader: "move-78"})
	assert.Equal(t, http.StatusConflict, failed.Code)
	retried := env.request(t, http.MethodPost, path, sales, other, map[string]string{middleware.IdempotencyKeyHeader: "move-78"})
	assert.Equal(t, http.StatusCreated, retried.Code, retried.Body.String())
}

func TestRoutes_RateLimit(t *testing.T) {
	env := newRoutesEnv(t, config.RateLimitConfig{Requests: 2, Duration: 60})
	sales := env.tokenFor(t, "sales@example.com", database.RoleSales)

	for i := 0; i < 2; i++ {
		w := env.request(t, http.MethodGet, "/api/v1/pipeline/stages", sales, nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := env.request(t, http.MethodGet, "/api/v1/pipeline/stages", sales, nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Contains(t, w.Body.String(), `"type":"too_many_requests"`)

	other := env.tokenFor(t, "other@example.com", database.RoleSales)
	w = env.request(t, http.MethodGet, "/api/v1/pipeline/stages", other, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code, "limits are per user")
}

func TestRoutes_UserAdministration(t *testing.T) {
	env := newRoutesEnv(t, defaultRateLimit())
	sales := env.tokenFor(t, "sales@example.com", database.RoleSales)
	admin := env.tokenFor(t, "admin@example.com", database.RoleAdmin)

	w := env.request(t, http.MethodGet, "/api/v1/users", sales, nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.request(t, http.MethodGet, "/api/v1/roles", admin, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), database.RoleSales)

	newUser := map[string]interface{}{
		"first_name": "Sam",
		"last_name":  "Seller",
		"email":      "Sam@Example.com",
		"password":   "long-enough",
		"roles":      []string{database.RoleSales},
	}
	w = env.request(t, http.MethodPost, "/api/v1/users", admin, newUser, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Data struct {
			User struct {
				ID       uuid.UUID `json:"id"`
				Email    string    `json:"email"`
				Roles    []string  `json:"roles"`
				IsActive bool      `json:"is_active"`
			} `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "sam@example.com", created.Data.User.Email)
	assert.Equal(t, []string{database.RoleSales}, created.Data.User.Roles)
	assert.True(t, created.Data.User.IsActive)

	w = env.request(t, http.MethodPost, "/api/v1/users", admin, newUser, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	login := map[string]interface{}{"email": "sam@example.com", "password": "long-enough"}
	w = env.request(t, http.MethodPost, "/api/v1/auth/login", "", login, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	userPath := "/api/v1/users/" + created.Data.User.ID.String()
	w = env.request(t, http.MethodPut, userPath+"/roles", admin, map[string]interface{}{"roles": []string{"astronaut"}}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.request(t, http.MethodPut, userPath+"/status", admin, map[string]interface{}{"is_active": false}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.request(t, http.MethodPost, "/api/v1/auth/login", "", login, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	adminUser, err := repository.NewUserRepository(env.db).GetByEmail(t.Context(), "admin@example.com")
	require.NoError(t, err)
	w = env.request(t, http.MethodPut, "/api/v1/users/"+adminUser.ID.String()+"/status", admin, map[string]interface{}{"is_active": false}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
