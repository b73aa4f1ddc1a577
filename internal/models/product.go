package models

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Product represents a product in the catalog.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Categories  []string        `json:"categories"`
}

// NormalizeCategories returns the labels as a sorted set.
func NormalizeCategories(labels []string) []string {
	set := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if _, ok := set[l]; ok {
			continue
		}
		set[l] = struct{}{}
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy of the product.
func (p *Product) Clone() *Product {
	c := *p
	c.Categories = append([]string(nil), p.Categories...)
	return &c
}
