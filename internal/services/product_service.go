package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"storeadmin/internal/database"
	"storeadmin/internal/models"
	"storeadmin/internal/repositories"
)

// ProductService handles business logic related to products.
type ProductService struct {
	tx   *database.TxManager
	repo repositories.ProductRepository
}

// NewProductService creates a new ProductService.
func NewProductService(tx *database.TxManager, repo repositories.ProductRepository) *ProductService {
	return &ProductService{
		tx:   tx,
		repo: repo,
	}
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	return s.repo.GetAll(ctx)
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newNotFound("product", id)
		}
		return nil, err
	}
	return product, nil
}

// CreateProduct creates a new product.
func (s *ProductService) CreateProduct(ctx context.Context, product *models.Product) error {
	return s.tx.Transactional(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, product)
	})
}

// UpdateProduct updates an existing product.
func (s *ProductService) UpdateProduct(ctx context.Context, product *models.Product) error {
	return s.tx.Transactional(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, product); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newNotFound("product", product.ID)
			}
			return err
		}
		return nil
	})
}

// DeleteProduct soft-deletes a product by its ID.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	return s.tx.Transactional(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newNotFound("product", id)
			}
			return err
		}
		return nil
	})
}
