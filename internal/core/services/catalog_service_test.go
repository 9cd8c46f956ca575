package services

import (
	"context"
	"testing"

	"libr-backend/internal/adapters/persistence/models"
	"libr-backend/internal/adapters/persistence/repositories"
	"libr-backend/internal/core/domain"
	"libr-backend/internal/pkg/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalogService(t *testing.T) (*CatalogService, *BorrowService, *borrowFixture) {
	t.Helper()

	f := newBorrowFixture(t)
	svc := NewCatalogService(
		repositories.NewBookRepository(f.db),
		repositories.NewCopyRepository(f.db),
	)
	return svc, f.svc, f
}

func TestCreateBook(t *testing.T) {
	ctx := context.Background()

	t.Run("catalog codes are generated sequentially", func(t *testing.T) {
		svc, _, _ := newCatalogService(t)

		first, err := svc.CreateBook(ctx, &CreateBookInput{
			Title:     "Dune",
			Theme:     "Science Fiction",
			Publisher: "Chilton Books",
			Authors:   []string{"Frank Herbert"},
			Keywords:  []string{"desert", "spice"},
		})
		require.NoError(t, err)
		assert.Equal(t, "BOOK00001", first.CatalogCode)

		second, err := svc.CreateBook(ctx, &CreateBookInput{
			Title:     "Dune Messiah",
			Theme:     "Science Fiction",
			Publisher: "Putnam",
		})
		require.NoError(t, err)
		assert.Equal(t, "BOOK00002", second.CatalogCode)
	})

	t.Run("master rows are reused by name", func(t *testing.T) {
		svc, _, f := newCatalogService(t)

		for _, title := range []string{"Dune", "Dune Messiah"} {
			_, err := svc.CreateBook(ctx, &CreateBookInput{
				Title:     title,
				Theme:     "Science Fiction",
				Publisher: "Chilton Books",
				Authors:   []string{"Frank Herbert"},
			})
			require.NoError(t, err)
		}

		var themes, publishers, authors int64
		f.db.Model(&models.Theme{}).Count(&themes)
		f.db.Model(&models.Publisher{}).Count(&publishers)
		f.db.Model(&models.Author{}).Count(&authors)
		assert.EqualValues(t, 1, themes)
		assert.EqualValues(t, 1, publishers)
		assert.EqualValues(t, 1, authors)
	})

	t.Run("explicit duplicate catalog code is rejected", func(t *testing.T) {
		svc, _, _ := newCatalogService(t)

		_, err := svc.CreateBook(ctx, &CreateBookInput{
			Title:       "Dune",
			CatalogCode: "BOOK00042",
			Theme:       "Science Fiction",
			Publisher:   "Chilton Books",
		})
		require.NoError(t, err)

		_, err = svc.CreateBook(ctx, &CreateBookInput{
			Title:       "Dune Messiah",
			CatalogCode: "BOOK00042",
			Theme:       "Science Fiction",
			Publisher:   "Putnam",
		})
		assert.ErrorIs(t, err, domain.ErrDuplicateEntry)
	})

	t.Run("missing required fields", func(t *testing.T) {
		svc, _, _ := newCatalogService(t)

		for _, input := range []*CreateBookInput{
			{Theme: "Science Fiction", Publisher: "Chilton Books"},
			{Title: "Dune", Publisher: "Chilton Books"},
			{Title: "Dune", Theme: "Science Fiction"},
			{Title: "   ", Theme: "Science Fiction", Publisher: "Chilton Books"},
		} {
			_, err := svc.CreateBook(ctx, input)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		}
	})
}

func TestListBooks(t *testing.T) {
	ctx := context.Background()
	svc, borrowSvc, f := newCatalogService(t)

	book, err := svc.CreateBook(ctx, &CreateBookInput{
		Title:     "Dune",
		Theme:     "Science Fiction",
		Publisher: "Chilton Books",
	})
	require.NoError(t, err)

	copy1 := f.createCopy(t, book)
	f.createCopy(t, book)

	reader := f.createUser(t, "reader", true)
	_, err = borrowSvc.BorrowCopy(ctx, copy1.ID, reader.ID)
	require.NoError(t, err)

	books, meta, err := svc.ListBooks(ctx, &pagination.Params{Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.EqualValues(t, 1, meta.Total)

	assert.Equal(t, "Dune", books[0].Title)
	assert.Equal(t, 2, books[0].TotalCopies)
	assert.Equal(t, 1, books[0].Available)
}

func TestGetBook(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newCatalogService(t)

	_, err := svc.GetBook(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrBookNotFound)

	created, err := svc.CreateBook(ctx, &CreateBookInput{
		Title:     "Dune",
		Theme:     "Science Fiction",
		Publisher: "Chilton Books",
		Authors:   []string{"Frank Herbert"},
	})
	require.NoError(t, err)

	got, err := svc.GetBook(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)
	require.NotNil(t, got.Theme)
	assert.Equal(t, "Science Fiction", got.Theme.Name)
	require.Len(t, got.Authors, 1)
	assert.Equal(t, "Frank Herbert", got.Authors[0].Name)
}

func TestListCopies(t *testing.T) {
	ctx := context.Background()
	svc, _, f := newCatalogService(t)

	_, err := svc.ListCopies(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrBookNotFound)

	book, err := svc.CreateBook(ctx, &CreateBookInput{
		Title:     "Dune",
		Theme:     "Science Fiction",
		Publisher: "Chilton Books",
	})
	require.NoError(t, err)

	c1 := f.createCopy(t, book)
	c2 := f.createCopy(t, book)

	copies, err := svc.ListCopies(ctx, book.ID)
	require.NoError(t, err)
	require.Len(t, copies, 2)
	assert.Equal(t, c1.ID, copies[0].ID)
	assert.Equal(t, c2.ID, copies[1].ID)
}
