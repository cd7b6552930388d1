package service

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/sangkips/movecrm-api/internal/domain/entity"
	"github.com/sangkips/movecrm-api/internal/domain/lifecycle"
	"github.com/sangkips/movecrm-api/internal/domain/repository"
	"github.com/sangkips/movecrm-api/pkg/apperror"
	"github.com/sangkips/movecrm-api/pkg/pagination"
	"github.com/sangkips/movecrm-api/pkg/utils"
)

// ReportInvalidator is told when pipeline numbers change
type ReportInvalidator interface {
	Invalidate(ctx context.Context)
}

// ClientService handles client record operations. It never changes a
// client's stage; see LifecycleService.
type ClientService struct {
	clientRepo repository.ClientRepository
	reports    ReportInvalidator
}

// NewClientService creates a new client service
func NewClientService(clientRepo repository.ClientRepository, reports ReportInvalidator) *ClientService {
	return &ClientService{clientRepo: clientRepo, reports: reports}
}

// CreateClientInput represents the create client input
type CreateClientInput struct {
	UserID     uuid.UUID
	Name       string
	Email      *string
	Phone      *string
	TaxID      *string
	Address    *string
	LeadSource *string
}

// CreateClient registers a new lead at the start of the pipeline
func (s *ClientService) CreateClient(ctx context.Context, input *CreateClientInput) (*entity.Client, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperror.NewFieldError("name", "is required")
	}

	client := &entity.Client{
		UserID:         input.UserID,
		Name:           name,
		Email:          normalizeEmailPtr(input.Email),
		Phone:          utils.NilIfBlank(input.Phone),
		TaxID:          utils.NilIfBlank(input.TaxID),
		Address:        utils.NilIfBlank(input.Address),
		LeadSource:     normalizeLeadSource(input.LeadSource),
		CurrentStage:   lifecycle.InitialStage,
		Classification: lifecycle.ClassificationFor(lifecycle.InitialStage),
	}

	if err := s.clientRepo.Create(ctx, client); err != nil {
		log.Printf("Error: failed to create client %q: %v", name, err)
		return nil, apperror.NewStorageError("client create", err)
	}

	s.invalidateReports(ctx)
	return client, nil
}

// GetClient retrieves a client by ID
func (s *ClientService) GetClient(ctx context.Context, id uuid.UUID) (*entity.Client, error) {
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.NewStorageError("client lookup", err)
	}
	if client == nil {
		return nil, apperror.NewNotFoundError("Client")
	}
	return client, nil
}

// ListClients lists clients with page-based pagination
func (s *ClientService) ListClients(ctx context.Context, filter repository.ClientFilter, params *pagination.PaginationParams) (*pagination.PaginatedResult[entity.Client], error) {
	params.Validate()
	clients, total, err := s.clientRepo.List(ctx, filter, params)
	if err != nil {
		return nil, apperror.NewStorageError("client list", err)
	}

	pag := pagination.NewPagination(params.Page, params.PerPage, total)
	return pagination.NewPaginatedResult(clients, pag), nil
}

// ListClientsWithCursor lists clients using cursor-based pagination
func (s *ClientService) ListClientsWithCursor(ctx context.Context, filter repository.ClientFilter, params *pagination.CursorParams) (*pagination.CursorPaginatedResult[entity.Client], error) {
	if _, err := params.DecodeCursor(); err != nil {
		return nil, apperror.NewFieldError("cursor", "is not a valid cursor")
	}

	clients, err := s.clientRepo.ListWithCursor(ctx, filter, params)
	if err != nil {
		return nil, apperror.NewStorageError("client list", err)
	}

	return pagination.NewCursorPage(clients, params, func(c entity.Client) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	}), nil
}

// UpdateClientInput represents the update client input. Nil fields are left unchanged.
type UpdateClientInput struct {
	ActorID      uuid.UUID
	ID           uuid.UUID
	CanManageAll bool
	Name         *string
	Email        *string
	Phone        *string
	TaxID        *string
	Address      *string
	LeadSource   *string
}

// UpdateClient updates identity and contact fields of a client
func (s *ClientService) UpdateClient(ctx context.Context, input *UpdateClientInput) (*entity.Client, error) {
	client, err := s.GetClient(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	// Managers can update any client, sales agents only their own
	if !input.CanManageAll && client.UserID != input.ActorID {
		return nil, apperror.ErrForbidden
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperror.NewFieldError("name", "cannot be blank")
		}
		client.Name = name
	}
	if input.Email != nil {
		client.Email = normalizeEmailPtr(input.Email)
	}
	if input.Phone != nil {
		client.Phone = utils.NilIfBlank(input.Phone)
	}
	if input.TaxID != nil {
		client.TaxID = utils.NilIfBlank(input.TaxID)
	}
	if input.Address != nil {
		client.Address = utils.NilIfBlank(input.Address)
	}
	leadSourceChanged := false
	if input.LeadSource != nil {
		client.LeadSource = normalizeLeadSource(input.LeadSource)
		leadSourceChanged = true
	}

	if err := s.clientRepo.UpdateContact(ctx, client); err != nil {
		log.Printf("Error: failed to update client %s: %v", client.ID, err)
		return nil, apperror.NewStorageError("client update", err)
	}

	if leadSourceChanged {
		s.invalidateReports(ctx)
	}
	return client, nil
}

// DeleteClient soft-deletes a client. Its stage history is kept.
func (s *ClientService) DeleteClient(ctx context.Context, actorID, id uuid.UUID, canManageAll bool) error {
	client, err := s.GetClient(ctx, id)
	if err != nil {
		return err
	}

	if !canManageAll && client.UserID != actorID {
		return apperror.ErrForbidden
	}

	if err := s.clientRepo.Delete(ctx, id); err != nil {
		log.Printf("Error: failed to delete client %s: %v", id, err)
		return apperror.NewStorageError("client delete", err)
	}

	s.invalidateReports(ctx)
	return nil
}

func (s *ClientService) invalidateReports(ctx context.Context) {
	if s.reports != nil {
		s.reports.Invalidate(ctx)
	}
}

func normalizeEmailPtr(email *string) *string {
	trimmed := utils.NilIfBlank(email)
	if trimmed == nil {
		return nil
	}
	normalized := utils.NormalizeEmail(*trimmed)
	return &normalized
}

func normalizeLeadSource(source *string) *string {
	trimmed := utils.NilIfBlank(source)
	if trimmed == nil {
		return nil
	}
	normalized := strings.ToLower(*trimmed)
	return &normalized
}
