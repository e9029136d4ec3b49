package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"storeadmin/backend/internal/domain"
	"storeadmin/backend/internal/storage"
)

// ErrProductNotFound 商品不存在（或不属于当前店主）
var ErrProductNotFound = errors.New("product not found")

// ProductService 商品业务逻辑服务
type ProductService struct {
	store storage.ProductRepository
}

// NewProductService 创建商品服务
func NewProductService(store storage.ProductRepository) *ProductService {
	return &ProductService{
		store: store,
	}
}

// CreateProduct 创建商品
func (s *ProductService) CreateProduct(userID string, req *domain.CreateProductRequest) (*domain.Product, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	product := &domain.Product{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.SaveProduct(product); err != nil {
		return nil, fmt.Errorf("failed to save product: %w", err)
	}
	return product, nil
}

// GetProduct 获取商品详情
func (s *ProductService) GetProduct(userID, productID string) (*domain.Product, error) {
	product, err := s.store.GetProduct(userID, productID)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// ListProducts 列出店主的全部商品
func (s *ProductService) ListProducts(userID string) ([]domain.Product, error) {
	products, err := s.store.ListProductsByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// UpdateProductInput 更新商品的输入参数，nil 字段表示不变更
type UpdateProductInput struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Stock       *int     `json:"stock,omitempty"`
	Category    *string  `json:"category,omitempty"`
	IsActive    *bool    `json:"isActive,omitempty"`
}

// UpdateProduct 更新商品
func (s *ProductService) UpdateProduct(userID, productID string, input UpdateProductInput) (*domain.Product, error) {
	product, err := s.store.GetProduct(userID, productID)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, domain.MissingField("name")
		}
		product.Name = *input.Name
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return nil, domain.NewValidationError("price", "must not be negative")
		}
		product.Price = *input.Price
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, domain.NewValidationError("stock", "must not be negative")
		}
		product.Stock = *input.Stock
	}
	if input.Category != nil {
		product.Category = *input.Category
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	product.UpdatedAt = time.Now()

	if err := s.store.UpdateProduct(product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

// DeleteProduct 删除商品
func (s *ProductService) DeleteProduct(userID, productID string) error {
	if err := s.store.DeleteProduct(userID, productID); err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}
