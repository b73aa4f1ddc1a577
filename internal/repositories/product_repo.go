package repositories

import (
	"context"
	"errors"

	"productapi/internal/models"
)

// ErrProductNotFound is returned when no product exists for an ID.
var ErrProductNotFound = errors.New("product not found")

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*models.Product, error)
	// Save inserts the product when its ID is empty (assigning one) and
	// updates it otherwise.
	Save(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, product *models.Product) error
}

// ProductLister is implemented by stores that can enumerate every product.
type ProductLister interface {
	All(ctx context.Context) ([]*models.Product, error)
}
