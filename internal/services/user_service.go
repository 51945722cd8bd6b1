package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"storeadmin/internal/database"
	"storeadmin/internal/models"
	"storeadmin/internal/repositories"
)

// UserService handles admin-facing user management: listing users and
// assigning roles. Registration and login live in AuthService.
type UserService struct {
	tx       *database.TxManager
	userRepo repositories.UserRepository
	roleRepo repositories.RoleRepository
}

// NewUserService creates a new UserService.
func NewUserService(tx *database.TxManager, userRepo repositories.UserRepository, roleRepo repositories.RoleRepository) *UserService {
	return &UserService{
		tx:       tx,
		userRepo: userRepo,
		roleRepo: roleRepo,
	}
}

// GetAllUsers retrieves all users with their roles.
func (s *UserService) GetAllUsers(ctx context.Context) ([]models.User, error) {
	return s.userRepo.GetAll(ctx)
}

// GetUserByID retrieves a single user by ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newNotFound("user", id)
		}
		return nil, err
	}
	return user, nil
}

// AssignRole sets a user's role. Both entities must exist.
func (s *UserService) AssignRole(ctx context.Context, userID, roleID string) (*models.User, error) {
	var updated *models.User
	err := s.tx.Transactional(ctx, func(ctx context.Context) error {
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newNotFound("user", userID)
			}
			return err
		}
		role, err := s.roleRepo.GetByID(ctx, roleID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newNotFound("role", roleID)
			}
			return err
		}

		user.RoleID = &role.ID
		user.Role = nil // let the reload below repopulate the association
		if err := s.userRepo.Update(ctx, user); err != nil {
			return err
		}
		updated, err = s.userRepo.GetByID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RoleService handles role CRUD.
type RoleService struct {
	tx   *database.TxManager
	repo repositories.RoleRepository
}

// NewRoleService creates a new RoleService.
func NewRoleService(tx *database.TxManager, repo repositories.RoleRepository) *RoleService {
	return &RoleService{
		tx:   tx,
		repo: repo,
	}
}

// GetAllRoles retrieves all roles.
func (s *RoleService) GetAllRoles(ctx context.Context) ([]models.Role, error) {
	return s.repo.GetAll(ctx)
}

// CreateRole creates a new role.
func (s *RoleService) CreateRole(ctx context.Context, role *models.Role) error {
	return s.tx.Transactional(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, role)
	})
}

// DeleteRole soft-deletes a role by its ID.
func (s *RoleService) DeleteRole(ctx context.Context, id string) error {
	return s.tx.Transactional(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newNotFound("role", id)
			}
			return err
		}
		return nil
	})
}
