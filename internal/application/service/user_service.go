package service

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/sangkips/movecrm-api/internal/domain/entity"
	"github.com/sangkips/movecrm-api/internal/domain/repository"
	"github.com/sangkips/movecrm-api/pkg/apperror"
	"github.com/sangkips/movecrm-api/pkg/pagination"
	"github.com/sangkips/movecrm-api/pkg/utils"
)

const minPasswordLength = 8

// UserService manages the team members who act on clients. Users are
// deactivated rather than deleted because ledger entries reference them.
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService creates a new user service
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// CreateUserInput represents the input for creating a team member
type CreateUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Roles     []string
}

// CreateUser registers a team member with the given roles
func (s *UserService) CreateUser(ctx context.Context, input *CreateUserInput) (*entity.User, error) {
	email := utils.NormalizeEmail(input.Email)

	var fieldErrs []apperror.FieldError
	if strings.TrimSpace(input.FirstName) == "" {
		fieldErrs = append(fieldErrs, apperror.FieldError{Field: "first_name", Message: "is required"})
	}
	if email == "" {
		fieldErrs = append(fieldErrs, apperror.FieldError{Field: "email", Message: "is required"})
	}
	if len(input.Password) < minPasswordLength {
		fieldErrs = append(fieldErrs, apperror.FieldError{Field: "password", Message: "must be at least 8 characters"})
	}
	if len(fieldErrs) > 0 {
		return nil, apperror.NewValidationError(fieldErrs)
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.NewStorageError("user lookup", err)
	}
	if existing != nil {
		return nil, apperror.NewConflictError("A user with this email already exists")
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Email:     email,
		Password:  hashed,
		IsActive:  true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		log.Printf("Error: failed to create user %s: %v", email, err)
		return nil, apperror.NewStorageError("user create", err)
	}

	if roles := uniqueNames(input.Roles); len(roles) > 0 {
		if err := s.userRepo.ReplaceRoles(ctx, user.ID, roles); err != nil {
			if apperror.IsAppError(err) {
				return nil, err
			}
			return nil, apperror.NewStorageError("role assignment", err)
		}
	}

	return s.GetUser(ctx, user.ID)
}

// ListUsers returns a paginated list of users with their roles
func (s *UserService) ListUsers(ctx context.Context, params *pagination.PaginationParams, search string) (*pagination.PaginatedResult[entity.User], error) {
	params.Validate()

	users, total, err := s.userRepo.List(ctx, params, search)
	if err != nil {
		return nil, apperror.NewStorageError("user list", err)
	}

	return pagination.NewPaginatedResult(users, pagination.NewPagination(params.Page, params.PerPage, total)), nil
}

// GetUser returns a user by ID with roles and permissions
func (s *UserService) GetUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.userRepo.GetWithRoles(ctx, userID)
	if err != nil {
		return nil, apperror.NewStorageError("user lookup", err)
	}
	if user == nil {
		return nil, apperror.NewNotFoundError("User")
	}
	return user, nil
}

// UpdateUserRoles replaces the roles assigned to a user
func (s *UserService) UpdateUserRoles(ctx context.Context, userID uuid.UUID, roles []string) (*entity.User, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.userRepo.ReplaceRoles(ctx, userID, uniqueNames(roles)); err != nil {
		if apperror.IsAppError(err) {
			return nil, err
		}
		return nil, apperror.NewStorageError("role assignment", err)
	}

	return s.GetUser(ctx, userID)
}

// SetUserActive enables or disables login for a user. Users cannot
// deactivate themselves.
func (s *UserService) SetUserActive(ctx context.Context, actorID, userID uuid.UUID, active bool) (*entity.User, error) {
	if !active && actorID == userID {
		return nil, apperror.NewBadRequestError("You cannot deactivate your own account")
	}
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.userRepo.SetActive(ctx, userID, active); err != nil {
		return nil, apperror.NewStorageError("user update", err)
	}
	return s.GetUser(ctx, userID)
}

// ListRoles returns all roles with their permissions
func (s *UserService) ListRoles(ctx context.Context) ([]entity.Role, error) {
	roles, err := s.userRepo.ListRoles(ctx)
	if err != nil {
		return nil, apperror.NewStorageError("role list", err)
	}
	return roles, nil
}

func uniqueNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
