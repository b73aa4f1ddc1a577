package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCategories(t *testing.T) {
	assert.Equal(t, []string{"apple", "laptops"}, NormalizeCategories([]string{"laptops", "apple", "laptops"}))
	assert.Empty(t, NormalizeCategories(nil))
}

func TestMerge(t *testing.T) {
	p := &Product{ID: "1", Name: "A", Description: "d", Price: decimal.NewFromInt(10), Categories: []string{"x"}}

	p.Merge(UpdateProductRequest{})
	assert.Equal(t, "A", p.Name)
	assert.Equal(t, []string{"x"}, p.Categories)

	price := decimal.NewFromInt(20)
	categories := []string{"z", "y"}
	p.Merge(UpdateProductRequest{Price: &price, Categories: &categories})
	assert.Equal(t, "A", p.Name)
	assert.Equal(t, "d", p.Description)
	assert.True(t, price.Equal(p.Price))
	assert.Equal(t, []string{"y", "z"}, p.Categories)
}

func TestClone(t *testing.T) {
	p := &Product{ID: "1", Categories: []string{"a"}}
	c := p.Clone()
	c.Categories[0] = "b"
	assert.Equal(t, "a", p.Categories[0])
}

func TestToProductPage(t *testing.T) {
	page := ToProductPage([]*Product{{ID: "1"}, {ID: "2"}}, 0, 10, 23)
	assert.Equal(t, 2, page.NumberOfElements)
	assert.EqualValues(t, 23, page.TotalElements)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, []string{}, page.Content[0].Categories)

	empty := ToProductPage(nil, 0, 10, 0)
	assert.Zero(t, empty.TotalPages)
	assert.NotNil(t, empty.Content)
}

func TestCreateProductRequest_PriceDecoding(t *testing.T) {
	var req CreateProductRequest
	require.NoError(t, json.Unmarshal([]byte(`{"name":"n","price":"19.99"}`), &req))
	require.NotNil(t, req.Price)
	assert.Equal(t, "19.99", req.Price.String())

	req = CreateProductRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"name":"n"}`), &req))
	assert.Nil(t, req.Price)
}
