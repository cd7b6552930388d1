package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/movecrm-api/internal/application/service"
	"github.com/sangkips/movecrm-api/internal/domain/enum"
	"github.com/sangkips/movecrm-api/internal/domain/repository"
	"github.com/sangkips/movecrm-api/internal/presentation/http/dto/response"
	"github.com/sangkips/movecrm-api/pkg/apperror"
	"github.com/sangkips/movecrm-api/pkg/pagination"
)

// PipelineHandler serves the read-only pipeline views
type PipelineHandler struct {
	pipelineService *service.PipelineService
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(pipelineService *service.PipelineService) *PipelineHandler {
	return &PipelineHandler{pipelineService: pipelineService}
}

// Stages lists every stage with its allowed targets
func (h *PipelineHandler) Stages(c *gin.Context) {
	response.OK(c, "Stages retrieved successfully", h.pipelineService.Stages())
}

// Conversion returns stage counts, the conversion rate and top loss reasons.
// Query: from, to, actor_id, lead_source, top.
func (h *PipelineHandler) Conversion(c *gin.Context) {
	from, to, err := dateRangeQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	actorID, err := optionalUUIDQuery(c, "actor_id")
	if err != nil {
		response.Error(c, err)
		return
	}

	topN := 0
	if raw := c.Query("top"); raw != "" {
		topN, err = strconv.Atoi(raw)
		if err != nil {
			response.Error(c, apperror.NewFieldError("top", "must be an integer"))
			return
		}
		if topN == 0 {
			response.Error(c, apperror.NewFieldError("top", "must be between 1 and "+strconv.Itoa(service.MaxLostReasonsTopN)))
			return
		}
	}

	report, err := h.pipelineService.Conversion(c.Request.Context(), &service.ConversionInput{
		Filter: repository.ConversionFilter{
			From:       from,
			To:         to,
			ActorID:    actorID,
			LeadSource: strings.ToLower(strings.TrimSpace(c.Query("lead_source"))),
		},
		TopN: topN,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Conversion report generated successfully", report)
}

// History returns the stage history feed across clients.
// Query: actor_id, stage, from, to, page, per_page.
func (h *PipelineHandler) History(c *gin.Context) {
	from, to, err := dateRangeQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	actorID, err := optionalUUIDQuery(c, "actor_id")
	if err != nil {
		response.Error(c, err)
		return
	}

	input := &service.HistoryInput{ActorID: actorID, From: from, To: to}
	if raw := c.Query("stage"); raw != "" {
		stage, err := enum.ParseClientStage(raw)
		if err != nil {
			response.Error(c, apperror.NewFieldError("stage", err.Error()))
			return
		}
		input.NewStage = &stage
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "15"))
	input.Pagination = &pagination.PaginationParams{Page: page, PerPage: perPage}

	result, err := h.pipelineService.History(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Stage history retrieved successfully", result)
}
