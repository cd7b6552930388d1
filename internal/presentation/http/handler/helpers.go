package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/movecrm-api/internal/infrastructure/database"
	"github.com/sangkips/movecrm-api/pkg/apperror"
)

const dateLayout = "2006-01-02"

// GetUserID extracts the user ID from the Gin context
func GetUserID(c *gin.Context) *uuid.UUID {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		return nil
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		return nil
	}
	return &userID
}

// GetUserRoles extracts the user roles from the Gin context
func GetUserRoles(c *gin.Context) []string {
	roles, exists := c.Get("user_roles")
	if !exists {
		return nil
	}
	names, _ := roles.([]string)
	return names
}

// IsManager reports whether the user may act on clients owned by others
func IsManager(c *gin.Context) bool {
	for _, role := range GetUserRoles(c) {
		if role == database.RoleSuperAdmin || role == database.RoleAdmin {
			return true
		}
	}
	return false
}

// optionalUUIDQuery parses an optional uuid query parameter
func optionalUUIDQuery(c *gin.Context, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperror.NewFieldError(name, "must be a valid UUID")
	}
	return &id, nil
}

// dateRangeQuery reads from and to as RFC 3339 instants or calendar dates.
// A calendar date in to covers that whole day.
func dateRangeQuery(c *gin.Context) (*time.Time, *time.Time, error) {
	from, _, err := timeQuery(c, "from")
	if err != nil {
		return nil, nil, err
	}
	to, dateOnly, err := timeQuery(c, "to")
	if err != nil {
		return nil, nil, err
	}
	if to != nil && dateOnly {
		next := to.AddDate(0, 0, 1)
		to = &next
	}
	return from, to, nil
}

func timeQuery(c *gin.Context, name string) (*time.Time, bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, false, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, false, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, false, apperror.NewFieldError(name, "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
	}
	return &t, true, nil
}
