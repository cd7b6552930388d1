package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sangkips/movecrm-api/internal/domain/entity"
	domainRepo "github.com/sangkips/movecrm-api/internal/domain/repository"
	"github.com/sangkips/movecrm-api/pkg/pagination"
	"gorm.io/gorm"
)

type clientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *gorm.DB) domainRepo.ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) Create(ctx context.Context, client *entity.Client) error {
	return r.db.WithContext(ctx).Omit("User").Create(client).Error
}

func (r *clientRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Client, error) {
	var client entity.Client
	err := r.db.WithContext(ctx).First(&client, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &client, err
}

func (r *clientRepository) UpdateContact(ctx context.Context, client *entity.Client) error {
	return r.db.WithContext(ctx).Model(client).
		Select("name", "email", "phone", "tax_id", "address", "lead_source", "updated_at").
		Updates(client).Error
}

func (r *clientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.Client{}, "id = ?", id).Error
}

func (r *clientRepository) List(ctx context.Context, filter domainRepo.ClientFilter, params *pagination.PaginationParams) ([]entity.Client, int64, error) {
	var clients []entity.Client
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Client{}).Scopes(clientFilterScope(filter))

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Validate()
	err := query.Offset(params.Offset()).Limit(params.PerPage).
		Order("name ASC").
		Find(&clients).Error

	return clients, total, err
}

// ListWithCursor returns clients using keyset pagination on (created_at, id)
func (r *clientRepository) ListWithCursor(ctx context.Context, filter domainRepo.ClientFilter, params *pagination.CursorParams) ([]entity.Client, error) {
	var clients []entity.Client

	params.Validate()
	query := r.db.WithContext(ctx).Model(&entity.Client{}).Scopes(clientFilterScope(filter))

	cursor, err := params.DecodeCursor()
	if err != nil {
		return nil, err
	}

	order := "created_at ASC, id ASC"
	switch {
	case params.Backwards():
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
		order = "created_at DESC, id DESC"
	case cursor != nil:
		query = query.Where("(created_at, id) > (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	err = query.Limit(params.Limit + 1).Order(order).Find(&clients).Error
	if err != nil {
		return nil, err
	}

	// Previous pages are read backwards; restore ascending order
	if params.Backwards() {
		for i, j := 0, len(clients)-1; i < j; i, j = i+1, j-1 {
			clients[i], clients[j] = clients[j], clients[i]
		}
	}

	return clients, nil
}
