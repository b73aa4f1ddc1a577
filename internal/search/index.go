// Package search holds the product search index: a denormalized copy of the
// catalog queried with multi-field relevance matching.
package search

import (
	"context"

	"productapi/internal/models"
)

// Searchable product fields.
const (
	FieldName        = "name"
	FieldDescription = "description"
)

// DefaultPageSize matches the page size Elasticsearch uses when none is given.
const DefaultPageSize = 10

// Result is one page of hits ordered by descending score.
type Result struct {
	Products []*models.Product
	Total    int64
}

// ProductIndex defines the interface for the product search index.
type ProductIndex interface {
	// Index adds or replaces a product document.
	Index(ctx context.Context, product *models.Product) error
	// Delete removes a product document. Deleting a missing document is not an error.
	Delete(ctx context.Context, id string) error
	// MultiMatch runs a relevance query for text against fields and returns
	// the first page of size hits.
	MultiMatch(ctx context.Context, text string, fields []string, size int) (*Result, error)
}
