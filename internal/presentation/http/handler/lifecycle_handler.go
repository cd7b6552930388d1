package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/movecrm-api/internal/application/service"
	"github.com/sangkips/movecrm-api/internal/domain/enum"
	"github.com/sangkips/movecrm-api/internal/presentation/http/dto/request"
	"github.com/sangkips/movecrm-api/internal/presentation/http/dto/response"
)

// LifecycleHandler handles pipeline moves and client timelines
type LifecycleHandler struct {
	lifecycleService *service.LifecycleService
}

// NewLifecycleHandler creates a new lifecycle handler
func NewLifecycleHandler(lifecycleService *service.LifecycleService) *LifecycleHandler {
	return &LifecycleHandler{lifecycleService: lifecycleService}
}

// Transition moves a client to another stage
// @Summary Transition client stage
// @Tags clients
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Client ID"
// @Param request body request.TransitionRequest true "Target stage and details"
// @Success 201 {object} response.APIResponse
// @Failure 409 {object} response.APIResponse
// @Failure 422 {object} response.APIResponse
// @Router /clients/{id}/transitions [post]
func (h *LifecycleHandler) Transition(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid client ID")
		return
	}

	var req request.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.lifecycleService.Transition(c.Request.Context(), &service.TransitionInput{
		ClientID:    id,
		TargetStage: enum.ClientStage(strings.TrimSpace(req.TargetStage)),
		ActorID:     *userID,
		Notes:       req.Notes,
		Details:     req.Details,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Client moved to "+string(result.Client.CurrentStage), result)
}

// Timeline returns a client's stage history with summary statistics
// @Summary Client timeline
// @Tags clients
// @Security BearerAuth
// @Produce json
// @Param id path string true "Client ID"
// @Success 200 {object} response.APIResponse
// @Router /clients/{id}/timeline [get]
func (h *LifecycleHandler) Timeline(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid client ID")
		return
	}

	timeline, err := h.lifecycleService.Timeline(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Timeline retrieved successfully", timeline)
}
