package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/movecrm-api/internal/application/service"
	"github.com/sangkips/movecrm-api/internal/domain/entity"
	"github.com/sangkips/movecrm-api/internal/infrastructure/database"
	"github.com/sangkips/movecrm-api/internal/infrastructure/repository"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

type testServer struct {
	db     *gorm.DB
	router *gin.Engine
	actor  *entity.User
	roles  []string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewSQLiteDB(":memory:", database.NewGormConfig("silent"))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	clientRepo := repository.NewClientRepository(db)
	historyRepo := repository.NewStageHistoryRepository(db)

	clients := NewClientHandler(service.NewClientService(clientRepo, nil))
	lifecycle := NewLifecycleHandler(service.NewLifecycleService(clientRepo, historyRepo, nil, 3))
	pipeline := NewPipelineHandler(service.NewPipelineService(repository.NewPipelineRepository(db), historyRepo, nil, 5))

	s := &testServer{db: db}
	s.actor = s.createUser(t, "agent@example.com")

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", s.actor.ID)
		c.Set("user_roles", s.roles)
		c.Next()
	})
	router.GET("/clients", clients.List)
	router.POST("/clients", clients.Create)
	router.GET("/clients/:id", clients.Get)
	router.PUT("/clients/:id", clients.Update)
	router.DELETE("/clients/:id", clients.Delete)
	router.POST("/clients/:id/transitions", lifecycle.Transition)
	router.GET("/clients/:id/timeline", lifecycle.Timeline)
	router.GET("/pipeline/stages", pipeline.Stages)
	router.GET("/pipeline/conversion", pipeline.Conversion)
	router.GET("/stage-history", pipeline.History)
	s.router = router

	return s
}

func (s *testServer) createUser(t *testing.T, email string) *entity.User {
	t.Helper()
	user := &entity.User{FirstName: "Sales", LastName: "Agent", Email: email, IsActive: true}
	require.NoError(t, s.db.Create(user).Error)
	return user
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, apiEnvelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env apiEnvelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (s *testServer) createClient(t *testing.T, name string) uuid.UUID {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/clients", map[string]interface{}{"name": name})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var client entity.Client
	require.NoError(t, json.Unmarshal(env.Data, &client))
	return client.ID
}
