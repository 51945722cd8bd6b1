package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"storeadmin/internal/database"
	"storeadmin/internal/models"
)

// GORMRoleRepository is a GORM implementation of RoleRepository.
type GORMRoleRepository struct {
	db *gorm.DB
}

// NewGORMRoleRepository creates a new instance of GORMRoleRepository.
func NewGORMRoleRepository(db *gorm.DB) *GORMRoleRepository {
	return &GORMRoleRepository{
		db: db,
	}
}

func (r *GORMRoleRepository) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db)
}

// Create creates a new role in the database.
func (r *GORMRoleRepository) Create(ctx context.Context, role *models.Role) error {
	if role.ID == "" {
		role.ID = uuid.New().String()
	}
	if err := r.conn(ctx).Create(role).Error; err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}
	return nil
}

// Update updates an existing role in the database.
func (r *GORMRoleRepository) Update(ctx context.Context, role *models.Role) error {
	res := r.conn(ctx).Save(role)
	if res.Error != nil {
		return fmt.Errorf("failed to update role: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("role with ID %s: %w", role.ID, gorm.ErrRecordNotFound)
	}
	return nil
}

// Delete soft-deletes a role by its ID.
func (r *GORMRoleRepository) Delete(ctx context.Context, id string) error {
	res := r.conn(ctx).Delete(&models.Role{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete role: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("role with ID %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// GetAll retrieves all roles from the database.
func (r *GORMRoleRepository) GetAll(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := r.conn(ctx).Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("failed to get all roles: %w", err)
	}
	return roles, nil
}

// GetByID retrieves a single role by its ID.
func (r *GORMRoleRepository) GetByID(ctx context.Context, id string) (*models.Role, error) {
	var role models.Role
	if err := r.conn(ctx).First(&role, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("role with ID %s: %w", id, gorm.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get role by ID %s: %w", id, err)
	}
	return &role, nil
}

// GetByName retrieves a single role by its unique name.
func (r *GORMRoleRepository) GetByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	if err := r.conn(ctx).First(&role, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("role with name %s: %w", name, gorm.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get role by name %s: %w", name, err)
	}
	return &role, nil
}
