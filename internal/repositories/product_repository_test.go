package repositories_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"productapi/internal/models"
	"productapi/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newGORMRepo(t *testing.T) *repositories.GORMProductRepository {
	repo, _ := newGORMRepoWithDB(t)
	return repo
}

func newGORMRepoWithDB(t *testing.T) (*repositories.GORMProductRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	repo := repositories.NewGORMProductRepository(db)
	require.NoError(t, repo.AutoMigrate())
	return repo, db
}

func TestProductRepositories(t *testing.T) {
	impls := map[string]func(t *testing.T) repositories.ProductRepository{
		"gorm":   func(t *testing.T) repositories.ProductRepository { return newGORMRepo(t) },
		"memory": func(*testing.T) repositories.ProductRepository { return repositories.NewMemoryProductRepository() },
	}

	for name, newRepo := range impls {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("SaveAssignsIDAndGetRoundTrips", func(t *testing.T) {
				repo := newRepo(t)
				p := &models.Product{
					Name:        "Apple 13\" MacBook Pro",
					Description: "Retina Display, 8GB RAM",
					Price:       decimal.RequireFromString("1099.90"),
					Categories:  []string{"apple", "laptops"},
				}
				require.NoError(t, repo.Save(ctx, p))
				assert.NotEmpty(t, p.ID)

				got, err := repo.GetByID(ctx, p.ID)
				require.NoError(t, err)
				assert.Equal(t, p.ID, got.ID)
				assert.Equal(t, p.Name, got.Name)
				assert.Equal(t, p.Description, got.Description)
				assert.True(t, p.Price.Equal(got.Price), "price %s != %s", p.Price, got.Price)
				assert.Equal(t, []string{"apple", "laptops"}, got.Categories)
			})

			t.Run("PriceKeepsFullPrecision", func(t *testing.T) {
				repo := newRepo(t)
				want := decimal.RequireFromString("12345678901234567890.123456789")
				p := &models.Product{Name: "Precise", Description: "p", Price: want}
				require.NoError(t, repo.Save(ctx, p))

				got, err := repo.GetByID(ctx, p.ID)
				require.NoError(t, err)
				assert.True(t, want.Equal(got.Price), "price %s != %s", want, got.Price)
				assert.Equal(t, "12345678901234567890.123456789", got.Price.String())

				p.Price = decimal.RequireFromString("0.000000000000000000001")
				require.NoError(t, repo.Save(ctx, p))
				got, err = repo.GetByID(ctx, p.ID)
				require.NoError(t, err)
				assert.True(t, p.Price.Equal(got.Price), "price %s != %s", p.Price, got.Price)
			})

			t.Run("LongNameRoundTrips", func(t *testing.T) {
				repo := newRepo(t)
				name := strings.Repeat("n", 1000)
				p := &models.Product{Name: name, Description: "d", Price: decimal.NewFromInt(1)}
				require.NoError(t, repo.Save(ctx, p))

				got, err := repo.GetByID(ctx, p.ID)
				require.NoError(t, err)
				assert.Equal(t, name, got.Name)
			})

			t.Run("SaveUpdatesExisting", func(t *testing.T) {
				repo := newRepo(t)
				p := &models.Product{Name: "A", Description: "first", Price: decimal.NewFromInt(10)}
				require.NoError(t, repo.Save(ctx, p))
				id := p.ID

				p.Price = decimal.Zero
				p.Categories = []string{"sale"}
				require.NoError(t, repo.Save(ctx, p))
				assert.Equal(t, id, p.ID)

				got, err := repo.GetByID(ctx, id)
				require.NoError(t, err)
				assert.True(t, got.Price.IsZero())
				assert.Equal(t, []string{"sale"}, got.Categories)
				assert.Equal(t, "A", got.Name)
			})

			t.Run("SaveWithUnknownIDInserts", func(t *testing.T) {
				repo := newRepo(t)
				p := &models.Product{ID: uuid.NewString(), Name: "B", Description: "b", Price: decimal.NewFromInt(1)}
				require.NoError(t, repo.Save(ctx, p))

				got, err := repo.GetByID(ctx, p.ID)
				require.NoError(t, err)
				assert.Equal(t, "B", got.Name)
			})

			t.Run("GetUnknownIsNotFound", func(t *testing.T) {
				repo := newRepo(t)
				_, err := repo.GetByID(ctx, "missing")
				assert.ErrorIs(t, err, repositories.ErrProductNotFound)
			})

			t.Run("DeleteRemoves", func(t *testing.T) {
				repo := newRepo(t)
				p := &models.Product{Name: "C", Description: "c", Price: decimal.NewFromInt(3)}
				require.NoError(t, repo.Save(ctx, p))

				require.NoError(t, repo.Delete(ctx, p))
				_, err := repo.GetByID(ctx, p.ID)
				assert.ErrorIs(t, err, repositories.ErrProductNotFound)

				err = repo.Delete(ctx, p)
				assert.ErrorIs(t, err, repositories.ErrProductNotFound)
			})
		})
	}
}

func TestGORMProductRepository_PriceKeepsScale(t *testing.T) {
	ctx := context.Background()
	repo := newGORMRepo(t)
	p := &models.Product{Name: "A", Description: "a", Price: decimal.RequireFromString("1099.90")}
	require.NoError(t, repo.Save(ctx, p))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "1099.90", got.Price.StringFixed(-got.Price.Exponent()))
}

func TestGORMProductRepository_FailedInsertLeavesIDEmpty(t *testing.T) {
	ctx := context.Background()
	repo, db := newGORMRepoWithDB(t)
	require.NoError(t, db.Migrator().DropTable(&repositories.ProductRecord{}))

	p := &models.Product{Name: "A", Description: "a", Price: decimal.NewFromInt(1)}
	require.Error(t, repo.Save(ctx, p))
	assert.Empty(t, p.ID)
}

func TestMemoryProductRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryProductRepository()
	p := &models.Product{Name: "D", Description: "d", Price: decimal.NewFromInt(4), Categories: []string{"x"}}
	require.NoError(t, repo.Save(ctx, p))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	got.Name = "changed"
	got.Categories[0] = "y"

	again, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "D", again.Name)
	assert.Equal(t, []string{"x"}, again.Categories)
	assert.Equal(t, 1, repo.Len())
}
