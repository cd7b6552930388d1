package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/movecrm-api/internal/domain/enum"
	"gorm.io/gorm"
)

// StageHistoryEntry is one immutable row of a client's pipeline audit trail.
// Sequence starts at 1 and is unique per client.
type StageHistoryEntry struct {
	ID             uuid.UUID         `gorm:"type:uuid;primary_key" json:"id"`
	ClientID       uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_stage_history_client_seq,priority:1" json:"client_id"`
	Sequence       int               `gorm:"not null;uniqueIndex:idx_stage_history_client_seq,priority:2" json:"sequence"`
	PreviousStage  *enum.ClientStage `gorm:"size:32" json:"previous_stage"`
	NewStage       enum.ClientStage  `gorm:"size:32;not null;index" json:"new_stage"`
	TransitionedAt time.Time         `gorm:"not null;index" json:"transitioned_at"`
	ActorID        uuid.UUID         `gorm:"type:uuid;not null;index" json:"actor_id"`
	Notes          *string           `gorm:"type:text" json:"notes,omitempty"`
	Details        StageDetails      `gorm:"type:jsonb;serializer:json" json:"details"`
	// LossReason mirrors Details.Loss.ReasonCode so loss rankings can group in SQL
	LossReason *enum.LossReason `gorm:"size:50;index" json:"-"`
	CreatedAt  time.Time        `json:"created_at"`
}

// BeforeCreate generates a UUID and fills defaults before the entry is written
func (e *StageHistoryEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.TransitionedAt.IsZero() {
		e.TransitionedAt = time.Now().UTC()
	}
	if e.Details.Loss != nil {
		reason := e.Details.Loss.ReasonCode
		e.LossReason = &reason
	}
	return nil
}

// TableName returns the table name for the StageHistoryEntry model
func (StageHistoryEntry) TableName() string {
	return "client_stage_history"
}

// ErrHistoryImmutable is returned by hooks that guard the append-only ledger
var ErrHistoryImmutable = errors.New("stage history entries cannot be modified or deleted")

// BeforeUpdate rejects any attempt to rewrite a ledger entry
func (e *StageHistoryEntry) BeforeUpdate(tx *gorm.DB) error {
	return ErrHistoryImmutable
}

// BeforeDelete rejects any attempt to remove a ledger entry
func (e *StageHistoryEntry) BeforeDelete(tx *gorm.DB) error {
	return ErrHistoryImmutable
}
