package request

import "github.com/sangkips/movecrm-api/internal/domain/entity"

// TransitionRequest moves a client to another pipeline stage
type TransitionRequest struct {
	TargetStage string              `json:"target_stage" binding:"required"`
	Notes       *string             `json:"notes"`
	Details     entity.StageDetails `json:"details"`
}
