package repositories

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"productapi/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// priceColumn stores a decimal price as its exact text form. Postgres gets a
// numeric column; other dialects get text so no float conversion happens.
type priceColumn decimal.Decimal

// GormDBDataType picks the column type per dialect.
func (priceColumn) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "numeric"
	}
	return "text"
}

// Value implements driver.Valuer, keeping the scale (1099.90 stays 1099.90).
func (p priceColumn) Value() (driver.Value, error) {
	d := decimal.Decimal(p)
	places := int32(0)
	if exp := d.Exponent(); exp < 0 {
		places = -exp
	}
	return d.StringFixed(places), nil
}

// Scan implements sql.Scanner.
func (p *priceColumn) Scan(src any) error {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return fmt.Errorf("failed to scan price: %w", err)
	}
	*p = priceColumn(d)
	return nil
}

// categoryList stores a product's categories as a JSON array in a text column.
type categoryList []string

// Value implements driver.Valuer.
func (c categoryList) Value() (driver.Value, error) {
	if c == nil {
		c = categoryList{}
	}
	b, err := json.Marshal([]string(c))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (c *categoryList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*c = categoryList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported categories column type %T", src)
	}
	if len(raw) == 0 {
		*c = categoryList{}
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(c))
}

// ProductRecord is the GORM table mapping for products.
type ProductRecord struct {
	ID          string       `gorm:"primaryKey;type:varchar(36)"`
	Name        string       `gorm:"type:text;not null"`
	Description string       `gorm:"type:text;not null"`
	Price       priceColumn  `gorm:"not null"`
	Categories  categoryList `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName pins the table name.
func (ProductRecord) TableName() string { return "products" }

func toProductRecord(p *models.Product) *ProductRecord {
	return &ProductRecord{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       priceColumn(p.Price),
		Categories:  categoryList(p.Categories),
	}
}

func toProduct(r *ProductRecord) *models.Product {
	return &models.Product{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Price:       decimal.Decimal(r.Price),
		Categories:  []string(r.Categories),
	}
}

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// AutoMigrate creates or updates the products table.
func (r *GORMProductRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&ProductRecord{})
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var record ProductRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product with ID %s: %w", id, ErrProductNotFound)
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	return toProduct(&record), nil
}

// All retrieves every product, ordered by creation time.
func (r *GORMProductRepository) All(ctx context.Context) ([]*models.Product, error) {
	var records []ProductRecord
	if err := r.db.WithContext(ctx).Order("created_at").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	products := make([]*models.Product, len(records))
	for i := range records {
		products[i] = toProduct(&records[i])
	}
	return products, nil
}

// Save inserts or updates a product in the database.
func (r *GORMProductRepository) Save(ctx context.Context, product *models.Product) error {
	db := r.db.WithContext(ctx)
	if product.ID == "" {
		record := toProductRecord(product)
		record.ID = uuid.New().String()
		if err := db.Create(record).Error; err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		product.ID = record.ID
		return nil
	}

	record := toProductRecord(product)
	// Select keeps zero values (e.g. a price of 0) in the update and leaves created_at alone.
	res := db.Model(&ProductRecord{}).
		Where("id = ?", product.ID).
		Select("name", "description", "price", "categories", "updated_at").
		Updates(record)
	if res.Error != nil {
		return fmt.Errorf("failed to update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if err := db.Create(record).Error; err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
	}
	return nil
}

// Delete deletes a product from the database.
func (r *GORMProductRepository) Delete(ctx context.Context, product *models.Product) error {
	res := r.db.WithContext(ctx).Delete(&ProductRecord{}, "id = ?", product.ID)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %s: %w", product.ID, ErrProductNotFound)
	}
	return nil
}
