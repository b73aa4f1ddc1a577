package models

import (
	"github.com/shopspring/decimal"
)

// CreateProductRequest is the payload accepted by POST /products.
// Price is a pointer so a missing price can be told apart from zero.
type CreateProductRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Categories  []string         `json:"categories"`
}

// UpdateProductRequest is the payload accepted by PATCH /products/:id.
// A nil field means "leave as is".
type UpdateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Categories  *[]string        `json:"categories"`
}

// SearchRequest is the payload accepted by PUT /products/search.
type SearchRequest struct {
	Text string `json:"text"`
}

// ProductResponse is the wire representation of a product.
type ProductResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Categories  []string        `json:"categories"`
}

// Page is one page of search results.
type Page struct {
	Content          []ProductResponse `json:"content"`
	Number           int               `json:"number"`
	Size             int               `json:"size"`
	NumberOfElements int               `json:"number_of_elements"`
	TotalElements    int64             `json:"total_elements"`
	TotalPages       int               `json:"total_pages"`
}

// NewProductFromRequest maps a creation payload onto a new, unsaved product.
func NewProductFromRequest(req CreateProductRequest) *Product {
	p := &Product{
		Name:        req.Name,
		Description: req.Description,
		Categories:  NormalizeCategories(req.Categories),
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	return p
}

// Merge copies every field present in req onto p.
func (p *Product) Merge(req UpdateProductRequest) {
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Categories != nil {
		p.Categories = NormalizeCategories(*req.Categories)
	}
}

// ToProductResponse converts a product to its wire representation.
func ToProductResponse(p *Product) ProductResponse {
	categories := p.Categories
	if categories == nil {
		categories = []string{}
	}
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Categories:  categories,
	}
}

// ToProductPage builds a page from the products returned by the index.
func ToProductPage(products []*Product, number, size int, total int64) *Page {
	content := make([]ProductResponse, len(products))
	for i, p := range products {
		content[i] = ToProductResponse(p)
	}
	totalPages := 0
	if size > 0 {
		totalPages = int((total + int64(size) - 1) / int64(size))
	}
	return &Page{
		Content:          content,
		Number:           number,
		Size:             size,
		NumberOfElements: len(content),
		TotalElements:    total,
		TotalPages:       totalPages,
	}
}
