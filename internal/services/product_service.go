package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"productapi/internal/metrics"
	"productapi/internal/models"
	"productapi/internal/repositories"
	"productapi/internal/search"
	"productapi/pkg/rabbitmq"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EventPublisher publishes product change events.
type EventPublisher interface {
	PublishProductEvent(event rabbitmq.ProductEvent) error
}

var searchFields = []string{search.FieldName, search.FieldDescription}

// ProductService handles business logic related to products. It keeps the
// store and the search index in step on every write; a failed index write
// after a successful store write is reported to the caller and queued for
// reindexing when a publisher is configured.
type ProductService struct {
	repo      repositories.ProductRepository
	index     search.ProductIndex
	publisher EventPublisher
	validate  *validator.Validate
	logger    *zap.Logger
	metrics   *metrics.Metrics
	pageSize  int
}

// NewProductService creates a new ProductService. publisher, logger and m may be nil.
func NewProductService(
	repo repositories.ProductRepository,
	index search.ProductIndex,
	publisher EventPublisher,
	logger *zap.Logger,
	m *metrics.Metrics,
) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		repo:      repo,
		index:     index,
		publisher: publisher,
		validate:  validator.New(),
		logger:    logger,
		metrics:   m,
		pageSize:  search.DefaultPageSize,
	}
}

// WithPageSize sets the number of hits returned by SearchProducts.
func (s *ProductService) WithPageSize(size int) *ProductService {
	if size > 0 {
		s.pageSize = size
	}
	return s
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (p *models.Product, err error) {
	defer s.observe("get", time.Now(), &err)

	return s.load(ctx, id)
}

// CreateProduct validates the payload, stores the new product and indexes it.
func (s *ProductService) CreateProduct(ctx context.Context, req models.CreateProductRequest) (p *models.Product, err error) {
	defer s.observe("create", time.Now(), &err)

	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	p = models.NewProductFromRequest(req)
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save product: %w", err)
	}
	if err := s.index.Index(ctx, p); err != nil {
		s.requestReindex(p.ID)
		return nil, fmt.Errorf("failed to index product %s: %w", p.ID, err)
	}

	s.logger.Info("Product created", zap.String("product_id", p.ID))
	s.publish(rabbitmq.EventProductCreated, p.ID, p)
	return p, nil
}

// UpdateProduct merges the fields present in req onto the stored product.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, req models.UpdateProductRequest) (p *models.Product, err error) {
	defer s.observe("update", time.Now(), &err)

	if err := s.validateUpdate(req); err != nil {
		return nil, err
	}

	p, err = s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Merge(req)

	if err := s.repo.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save product %s: %w", id, err)
	}
	if err := s.index.Index(ctx, p); err != nil {
		s.requestReindex(p.ID)
		return nil, fmt.Errorf("failed to index product %s: %w", id, err)
	}

	s.logger.Info("Product updated", zap.String("product_id", id))
	s.publish(rabbitmq.EventProductUpdated, id, p)
	return p, nil
}

// DeleteProduct removes the product from the store and the index and
// returns its ID.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) (_ string, err error) {
	defer s.observe("delete", time.Now(), &err)

	p, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	if err := s.repo.Delete(ctx, p); err != nil {
		return "", s.translate(err, id, "failed to delete product")
	}
	if err := s.index.Delete(ctx, id); err != nil {
		s.requestReindex(id)
		return "", fmt.Errorf("failed to remove product %s from index: %w", id, err)
	}

	s.logger.Info("Product deleted", zap.String("product_id", id))
	s.publish(rabbitmq.EventProductDeleted, id, nil)
	return id, nil
}

// SearchProducts runs a relevance query for text over name and description
// and returns the first page of results.
func (s *ProductService) SearchProducts(ctx context.Context, text string) (page *models.Page, err error) {
	defer s.observe("search", time.Now(), &err)

	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Fields: map[string]string{"text": "must not be empty"}}
	}

	res, err := s.index.MultiMatch(ctx, text, searchFields, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return models.ToProductPage(res.Products, 0, s.pageSize, res.Total), nil
}

// ReindexProduct copies the stored state of a product into the index, or
// removes it from the index when the store no longer has it.
func (s *ProductService) ReindexProduct(ctx context.Context, id string) (err error) {
	defer s.observe("reindex", time.Now(), &err)

	p, err := s.repo.GetByID(ctx, id)
	switch {
	case errors.Is(err, repositories.ErrProductNotFound):
		if err := s.index.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to remove product %s from index: %w", id, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to load product %s: %w", id, err)
	}
	if err := s.index.Index(ctx, p); err != nil {
		return fmt.Errorf("failed to index product %s: %w", id, err)
	}
	s.logger.Info("Product reindexed", zap.String("product_id", id))
	return nil
}

// RebuildIndex indexes every stored product. It needs a store that
// implements repositories.ProductLister.
func (s *ProductService) RebuildIndex(ctx context.Context) (int, error) {
	lister, ok := s.repo.(repositories.ProductLister)
	if !ok {
		return 0, errors.New("product store cannot enumerate products")
	}
	products, err := lister.All(ctx)
	if err != nil {
		return 0, err
	}
	for _, p := range products {
		if err := s.index.Index(ctx, p); err != nil {
			return 0, fmt.Errorf("failed to index product %s: %w", p.ID, err)
		}
	}
	s.logger.Info("Search index rebuilt", zap.Int("count", len(products)))
	return len(products), nil
}

func (s *ProductService) load(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, id, "failed to load product")
	}
	return p, nil
}

func (s *ProductService) translate(err error, id, msg string) error {
	if errors.Is(err, repositories.ErrProductNotFound) {
		return fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", msg, id, err)
}

func (s *ProductService) validateCreate(req models.CreateProductRequest) error {
	fields := fieldErrors{}
	fields.check("name", s.validate.Var(req.Name, "required"))
	fields.check("description", s.validate.Var(req.Description, "required"))
	if req.Price == nil {
		fields["price"] = "is required"
	} else {
		checkPrice(fields, *req.Price)
	}
	if len(req.Categories) > 0 {
		fields.check("categories", s.validate.Var(req.Categories, "dive,required"))
	}
	return fields.err()
}

func (s *ProductService) validateUpdate(req models.UpdateProductRequest) error {
	fields := fieldErrors{}
	if req.Name != nil {
		fields.check("name", s.validate.Var(*req.Name, "required"))
	}
	if req.Description != nil {
		fields.check("description", s.validate.Var(*req.Description, "required"))
	}
	if req.Price != nil {
		checkPrice(fields, *req.Price)
	}
	if req.Categories != nil && len(*req.Categories) > 0 {
		fields.check("categories", s.validate.Var(*req.Categories, "dive,required"))
	}
	return fields.err()
}

func checkPrice(fields fieldErrors, price decimal.Decimal) {
	if price.IsNegative() {
		fields["price"] = "must not be negative"
	}
}

func (s *ProductService) publish(eventType, id string, p *models.Product) {
	if s.publisher == nil {
		return
	}
	event := rabbitmq.ProductEvent{Type: eventType, ProductID: id, OccurredAt: time.Now().UTC()}
	if p != nil {
		body, err := json.Marshal(models.ToProductResponse(p))
		if err != nil {
			s.logger.Warn("Failed to marshal product event", zap.String("product_id", id), zap.Error(err))
			return
		}
		event.Product = body
	}
	if err := s.publisher.PublishProductEvent(event); err != nil {
		s.logger.Warn("Failed to publish product event",
			zap.String("type", eventType),
			zap.String("product_id", id),
			zap.Error(err),
		)
	}
}

func (s *ProductService) requestReindex(id string) {
	if s.publisher == nil {
		s.logger.Error("Store and index out of sync, no publisher to request reindex", zap.String("product_id", id))
		return
	}
	s.publish(rabbitmq.EventProductReindex, id, nil)
}

func (s *ProductService) observe(operation string, started time.Time, errp *error) {
	err := *errp
	result := metrics.ResultSuccess
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		result = metrics.ResultNotFound
	case errors.Is(err, ErrInvalidInput):
		result = metrics.ResultInvalidInput
	default:
		result = metrics.ResultFailure
		s.logger.Error("Product operation failed", zap.String("operation", operation), zap.Error(err))
	}
	s.metrics.Observe(operation, result, started)
}
