package request

// CreateUserRequest represents a request to add a team member
type CreateUserRequest struct {
	FirstName string   `json:"first_name" binding:"required,max=255"`
	LastName  string   `json:"last_name" binding:"omitempty,max=255"`
	Email     string   `json:"email" binding:"required,email"`
	Password  string   `json:"password" binding:"required,min=8"`
	Roles     []string `json:"roles"`
}

// UpdateUserRolesRequest replaces the roles of a user
type UpdateUserRolesRequest struct {
	Roles []string `json:"roles" binding:"required"`
}

// UpdateUserStatusRequest enables or disables a user
type UpdateUserStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}
