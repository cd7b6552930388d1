package request

// CreateClientRequest represents a create client request
type CreateClientRequest struct {
	Name       string  `json:"name" binding:"required,max=255"`
	Email      *string `json:"email" binding:"omitempty,email"`
	Phone      *string `json:"phone" binding:"omitempty,max=50"`
	TaxID      *string `json:"tax_id" binding:"omitempty,max=50"`
	Address    *string `json:"address"`
	LeadSource *string `json:"lead_source" binding:"omitempty,max=100"`
}

// UpdateClientRequest represents an update client request. Stage fields are
// not accepted here; use the transitions endpoint.
type UpdateClientRequest struct {
	Name       *string `json:"name" binding:"omitempty,max=255"`
	Email      *string `json:"email" binding:"omitempty,email"`
	Phone      *string `json:"phone" binding:"omitempty,max=50"`
	TaxID      *string `json:"tax_id" binding:"omitempty,max=50"`
	Address    *string `json:"address"`
	LeadSource *string `json:"lead_source" binding:"omitempty,max=100"`
}
