package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/movecrm-api/internal/domain/enum"
	"gorm.io/gorm"
)

// Client represents a lead or customer of the moving company. CurrentStage and
// Classification change only through a recorded stage transition.
type Client struct {
	ID             uuid.UUID           `gorm:"type:uuid;primary_key" json:"id"`
	UserID         uuid.UUID           `gorm:"type:uuid;not null;index" json:"user_id"`
	Name           string              `gorm:"size:255;not null" json:"name"`
	Email          *string             `gorm:"size:255;index" json:"email,omitempty"`
	Phone          *string             `gorm:"size:50" json:"phone,omitempty"`
	TaxID          *string             `gorm:"size:50;column:tax_id" json:"tax_id,omitempty"`
	Address        *string             `gorm:"type:text" json:"address,omitempty"`
	LeadSource     *string             `gorm:"size:100;index" json:"lead_source,omitempty"`
	CurrentStage   enum.ClientStage    `gorm:"size:32;not null;index" json:"current_stage"`
	Classification enum.Classification `gorm:"size:32;not null;index" json:"classification"`
	CreatedAt      time.Time           `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	DeletedAt      gorm.DeletedAt      `gorm:"index" json:"-"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"-"`
}

// BeforeCreate generates a UUID before creating a new client
func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Client model
func (Client) TableName() string {
	return "clients"
}
