package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/movecrm-api/internal/application/service"
	"github.com/sangkips/movecrm-api/internal/domain/enum"
	"github.com/sangkips/movecrm-api/internal/domain/repository"
	"github.com/sangkips/movecrm-api/internal/presentation/http/dto/request"
	"github.com/sangkips/movecrm-api/internal/presentation/http/dto/response"
	"github.com/sangkips/movecrm-api/pkg/apperror"
	"github.com/sangkips/movecrm-api/pkg/pagination"
)

// ClientHandler handles client-related HTTP requests
type ClientHandler struct {
	clientService *service.ClientService
}

// NewClientHandler creates a new client handler
func NewClientHandler(clientService *service.ClientService) *ClientHandler {
	return &ClientHandler{clientService: clientService}
}

// List handles listing clients (supports both page-based and cursor-based pagination)
func (h *ClientHandler) List(c *gin.Context) {
	filter, err := clientFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	// Check if cursor-based pagination is requested
	if cursor := c.Query("cursor"); cursor != "" || c.Query("limit") != "" {
		h.listWithCursor(c, filter)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "15"))

	result, err := h.clientService.ListClients(c.Request.Context(), filter, &pagination.PaginationParams{
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Clients retrieved successfully", result)
}

func (h *ClientHandler) listWithCursor(c *gin.Context, filter repository.ClientFilter) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "15"))

	params := &pagination.CursorParams{
		Cursor:    c.Query("cursor"),
		Direction: pagination.CursorDirection(c.DefaultQuery("direction", "next")),
		Limit:     limit,
	}
	params.Validate()

	result, err := h.clientService.ListClientsWithCursor(c.Request.Context(), filter, params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, 200, "Clients retrieved successfully", result)
}

func clientFilterFromQuery(c *gin.Context) (repository.ClientFilter, error) {
	filter := repository.ClientFilter{
		Search:     strings.TrimSpace(c.Query("search")),
		LeadSource: strings.ToLower(strings.TrimSpace(c.Query("lead_source"))),
	}

	if raw := c.Query("stage"); raw != "" {
		stage, err := enum.ParseClientStage(raw)
		if err != nil {
			return filter, apperror.NewFieldError("stage", err.Error())
		}
		filter.Stage = &stage
	}
	if raw := c.Query("classification"); raw != "" {
		classification := enum.Classification(raw)
		if !classification.IsValid() {
			return filter, apperror.NewFieldError("classification", "must be one of lead, prospect, customer, inactive")
		}
		filter.Classification = &classification
	}

	ownerID, err := optionalUUIDQuery(c, "owner_id")
	if err != nil {
		return filter, err
	}
	filter.OwnerID = ownerID
	return filter, nil
}

// Create handles creating a client
func (h *ClientHandler) Create(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	var req request.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	client, err := h.clientService.CreateClient(c.Request.Context(), &service.CreateClientInput{
		UserID:     *userID,
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		TaxID:      req.TaxID,
		Address:    req.Address,
		LeadSource: req.LeadSource,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Client created successfully", client)
}

// Get handles getting a single client
func (h *ClientHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid client ID")
		return
	}

	client, err := h.clientService.GetClient(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Client retrieved successfully", client)
}

// Update handles updating a client's contact details
func (h *ClientHandler) Update(c *gin.Context) {
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

	var req request.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	client, err := h.clientService.UpdateClient(c.Request.Context(), &service.UpdateClientInput{
		ActorID:      *userID,
		ID:           id,
		CanManageAll: IsManager(c),
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		TaxID:        req.TaxID,
		Address:      req.Address,
		LeadSource:   req.LeadSource,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Client updated successfully", client)
}

// Delete handles deleting a client
func (h *ClientHandler) Delete(c *gin.Context) {
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

	if err := h.clientService.DeleteClient(c.Request.Context(), *userID, id, IsManager(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
