package database

import (
	"fmt"
	"log"

	"github.com/sangkips/movecrm-api/internal/config"
	"github.com/sangkips/movecrm-api/internal/domain/entity"
	"github.com/sangkips/movecrm-api/pkg/utils"
	"gorm.io/gorm"
)

// Permission names checked by the route layer
const (
	PermissionManageClients     = "manage-clients"
	PermissionTransitionClients = "transition-clients"
	PermissionViewReports       = "view-reports"
	PermissionManageUsers       = "manage-users"
)

// Role names
const (
	RoleSuperAdmin = "super-admin"
	RoleAdmin      = "admin"
	RoleSales      = "sales"
)

// AutoMigrate runs GORM auto-migration for all entities
func AutoMigrate(db *gorm.DB) error {
	log.Println("Running database migrations...")

	err := db.AutoMigrate(
		&entity.User{},
		&entity.Role{},
		&entity.Permission{},

		&entity.Client{},
		&entity.StageHistoryEntry{},

		&entity.IdempotencyKey{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// SeedDefaultData creates the default permissions and roles, plus a
// super-admin account when admin credentials are configured. Safe to run on
// every start.
func SeedDefaultData(db *gorm.DB, admin config.AdminConfig) error {
	log.Println("Seeding default data...")

	names := []string{PermissionManageClients, PermissionTransitionClients, PermissionViewReports, PermissionManageUsers}
	permissions := make(map[string]entity.Permission, len(names))
	for _, name := range names {
		perm := entity.Permission{Name: name}
		if err := db.Where(entity.Permission{Name: name}).FirstOrCreate(&perm).Error; err != nil {
			return fmt.Errorf("failed to seed permission %s: %w", name, err)
		}
		permissions[name] = perm
	}

	roles := map[string][]string{
		RoleSuperAdmin: names,
		RoleAdmin:      names,
		RoleSales:      {PermissionManageClients, PermissionTransitionClients},
	}
	for roleName, permNames := range roles {
		role := entity.Role{Name: roleName}
		if err := db.Where(entity.Role{Name: roleName}).FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("failed to seed role %s: %w", roleName, err)
		}

		perms := make([]entity.Permission, 0, len(permNames))
		for _, name := range permNames {
			perms = append(perms, permissions[name])
		}
		if err := db.Model(&role).Association("Permissions").Replace(perms); err != nil {
			return fmt.Errorf("failed to attach permissions to %s: %w", roleName, err)
		}
	}

	if admin.Email != "" && admin.Password != "" {
		if err := seedAdmin(db, admin); err != nil {
			log.Printf("Warning: failed to create super admin user: %v", err)
		}
	}

	log.Println("Default data seeding completed")
	return nil
}

func seedAdmin(db *gorm.DB, admin config.AdminConfig) error {
	var count int64
	if err := db.Model(&entity.User{}).Where("email = ?", admin.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Printf("Super admin user already exists: %s", admin.Email)
		return nil
	}

	hashed, err := utils.HashPassword(admin.Password)
	if err != nil {
		return err
	}

	var role entity.Role
	if err := db.Where("name = ?", RoleSuperAdmin).First(&role).Error; err != nil {
		return err
	}

	firstName, lastName := utils.SplitName(admin.Name)
	if firstName == "" {
		firstName, lastName = "Super", "Admin"
	}

	user := entity.User{
		FirstName: firstName,
		LastName:  lastName,
		Email:     admin.Email,
		Password:  hashed,
		IsActive:  true,
		Roles:     []entity.Role{role},
	}
	if err := db.Create(&user).Error; err != nil {
		return err
	}

	log.Printf("Super admin user created: %s", admin.Email)
	return nil
}
