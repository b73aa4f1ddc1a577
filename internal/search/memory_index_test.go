package search_test

import (
	"context"
	"fmt"
	"testing"

	"productapi/internal/models"
	"productapi/internal/search"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var searchFields = []string{search.FieldName, search.FieldDescription}

func seedIndex(t *testing.T, idx search.ProductIndex, products ...*models.Product) {
	t.Helper()
	for _, p := range products {
		require.NoError(t, idx.Index(context.Background(), p))
	}
}

func ids(res *search.Result) []string {
	out := make([]string, len(res.Products))
	for i, p := range res.Products {
		out[i] = p.ID
	}
	return out
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"apple", "13", "macbook", "pro"}, search.Tokenize(`Apple 13" MacBook-Pro`))
	assert.Empty(t, search.Tokenize("  ...  "))
}

func TestMemoryIndex_MultiMatchIsCaseInsensitive(t *testing.T) {
	idx := search.NewMemoryIndex()
	seedIndex(t, idx,
		&models.Product{ID: "1", Name: `Apple 13" MacBook Pro`, Description: "Retina Display", Price: decimal.NewFromInt(1099)},
		&models.Product{ID: "2", Name: "Mechanical Keyboard", Description: "Blue switches", Price: decimal.NewFromInt(75)},
	)

	res, err := idx.MultiMatch(context.Background(), "macbook", searchFields, search.DefaultPageSize)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(res))
	assert.EqualValues(t, 1, res.Total)
}

func TestMemoryIndex_MatchesEitherField(t *testing.T) {
	idx := search.NewMemoryIndex()
	seedIndex(t, idx,
		&models.Product{ID: "name", Name: "Wireless mouse", Description: "Ergonomic"},
		&models.Product{ID: "desc", Name: "Trackball", Description: "A wireless pointing device"},
		&models.Product{ID: "none", Name: "Monitor", Description: "27 inch"},
	)

	res, err := idx.MultiMatch(context.Background(), "wireless", searchFields, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"name", "desc"}, ids(res))
}

func TestMemoryIndex_RanksByRelevance(t *testing.T) {
	idx := search.NewMemoryIndex()
	seedIndex(t, idx,
		&models.Product{ID: "a", Name: "Laptop stand", Description: "Aluminium stand for any device"},
		&models.Product{ID: "b", Name: "Gaming laptop", Description: "Laptop with a fast laptop GPU"},
		&models.Product{ID: "c", Name: "Desk lamp", Description: "LED"},
	)

	res, err := idx.MultiMatch(context.Background(), "gaming laptop", searchFields, 10)
	require.NoError(t, err)
	require.Len(t, res.Products, 2)
	assert.Equal(t, "b", res.Products[0].ID)
}

func TestMemoryIndex_PageSize(t *testing.T) {
	idx := search.NewMemoryIndex()
	for i := 0; i < 15; i++ {
		seedIndex(t, idx, &models.Product{ID: fmt.Sprintf("p%02d", i), Name: "Cable", Description: "USB"})
	}

	res, err := idx.MultiMatch(context.Background(), "cable", searchFields, 0)
	require.NoError(t, err)
	assert.Len(t, res.Products, search.DefaultPageSize)
	assert.EqualValues(t, 15, res.Total)
}

func TestMemoryIndex_IndexReplacesAndDeleteRemoves(t *testing.T) {
	ctx := context.Background()
	idx := search.NewMemoryIndex()
	seedIndex(t, idx, &models.Product{ID: "1", Name: "Old name", Description: "x"})
	seedIndex(t, idx, &models.Product{ID: "1", Name: "New name", Description: "x"})
	assert.Equal(t, 1, idx.Len())

	res, err := idx.MultiMatch(ctx, "old", searchFields, 10)
	require.NoError(t, err)
	assert.Empty(t, res.Products)

	require.NoError(t, idx.Delete(ctx, "1"))
	require.NoError(t, idx.Delete(ctx, "1"))
	res, err = idx.MultiMatch(ctx, "new", searchFields, 10)
	require.NoError(t, err)
	assert.Empty(t, res.Products)
	assert.Equal(t, 0, idx.Len())
}
