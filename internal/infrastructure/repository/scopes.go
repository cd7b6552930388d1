package repository

import (
	"strings"

	domainRepo "github.com/sangkips/movecrm-api/internal/domain/repository"
	"gorm.io/gorm"
)

// clientFilterScope applies the list filters of the clients endpoint
func clientFilterScope(filter domainRepo.ClientFilter) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.OwnerID != nil {
			db = db.Where("user_id = ?", *filter.OwnerID)
		}
		if filter.Stage != nil {
			db = db.Where("current_stage = ?", *filter.Stage)
		}
		if filter.Classification != nil {
			db = db.Where("classification = ?", *filter.Classification)
		}
		if filter.LeadSource != "" {
			db = db.Where("lead_source = ?", filter.LeadSource)
		}
		if search := strings.TrimSpace(filter.Search); search != "" {
			like := "%" + strings.ToLower(search) + "%"
			db = db.Where("(LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?)", like, like, like)
		}
		return db
	}
}

// conversionScope restricts a query joined on clients to the report population
func conversionScope(filter domainRepo.ConversionFilter) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.From != nil {
			db = db.Where("clients.created_at >= ?", *filter.From)
		}
		if filter.To != nil {
			db = db.Where("clients.created_at < ?", *filter.To)
		}
		if filter.LeadSource != "" {
			db = db.Where("clients.lead_source = ?", filter.LeadSource)
		}
		if filter.ActorID != nil {
			db = db.Where("clients.id IN (?)",
				db.Session(&gorm.Session{NewDB: true}).
					Table("client_stage_history").
					Select("client_id").
					Where("actor_id = ?", *filter.ActorID))
		}
		return db
	}
}

// historyFilterScope narrows ledger queries. The time range is half-open.
func historyFilterScope(filter domainRepo.HistoryFilter) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.ActorID != nil {
			db = db.Where("actor_id = ?", *filter.ActorID)
		}
		if filter.NewStage != nil {
			db = db.Where("new_stage = ?", *filter.NewStage)
		}
		if filter.From != nil {
			db = db.Where("transitioned_at >= ?", *filter.From)
		}
		if filter.To != nil {
			db = db.Where("transitioned_at < ?", *filter.To)
		}
		return db
	}
}
