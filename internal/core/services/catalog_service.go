package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"libr-backend/internal/adapters/persistence/models"
	"libr-backend/internal/adapters/persistence/repositories"
	"libr-backend/internal/core/domain"
	"libr-backend/internal/pkg/pagination"

	"gorm.io/gorm"
)

// CatalogService handles book catalog reads and writes
type CatalogService struct {
	bookRepo *repositories.BookRepository
	copyRepo *repositories.CopyRepository
}

// NewCatalogService creates a new catalog service
func NewCatalogService(bookRepo *repositories.BookRepository, copyRepo *repositories.CopyRepository) *CatalogService {
	return &CatalogService{
		bookRepo: bookRepo,
		copyRepo: copyRepo,
	}
}

// CreateBookInput represents create book input
type CreateBookInput struct {
	Title       string   `json:"title"`
	CatalogCode string   `json:"catalog_code"`
	Theme       string   `json:"theme"`
	Publisher   string   `json:"publisher"`
	Authors     []string `json:"authors"`
	Keywords    []string `json:"keywords"`
	Poster      string   `json:"poster"`
}

// CreateBook registers a new title in the catalog. Master rows (theme,
// publisher, authors, keywords) are created on first use. The catalog code
// is generated when the client does not supply one.
func (s *CatalogService) CreateBook(ctx context.Context, input *CreateBookInput) (*models.Book, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Theme = strings.TrimSpace(input.Theme)
	input.Publisher = strings.TrimSpace(input.Publisher)
	if input.Title == "" || input.Theme == "" || input.Publisher == "" {
		return nil, domain.ErrInvalidInput
	}

	code := strings.TrimSpace(input.CatalogCode)
	if code == "" {
		var err error
		code, err = s.bookRepo.NextCatalogCode(ctx)
		if err != nil {
			return nil, err
		}
	} else {
		existing, err := s.bookRepo.GetByCatalogCode(ctx, code)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if existing != nil {
			return nil, domain.ErrDuplicateEntry
		}
	}

	theme, err := s.bookRepo.GetOrCreateTheme(ctx, input.Theme)
	if err != nil {
		return nil, err
	}
	publisher, err := s.bookRepo.GetOrCreatePublisher(ctx, input.Publisher)
	if err != nil {
		return nil, err
	}

	book := &models.Book{
		CatalogCode: code,
		Title:       input.Title,
		ThemeID:     theme.ID,
		PublisherID: publisher.ID,
		Poster:      input.Poster,
	}

	for _, name := range input.Authors {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		author, err := s.bookRepo.GetOrCreateAuthor(ctx, name)
		if err != nil {
			return nil, err
		}
		book.Authors = append(book.Authors, *author)
	}
	for _, word := range input.Keywords {
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}
		kw, err := s.bookRepo.GetOrCreateKeyword(ctx, word)
		if err != nil {
			return nil, err
		}
		book.Keywords = append(book.Keywords, *kw)
	}

	if err := s.bookRepo.Create(ctx, book); err != nil {
		return nil, err
	}

	log.Printf("✅ Book %s created: %s", book.CatalogCode, book.Title)
	return book, nil
}

// ListBooks returns a page of the catalog with availability counts
func (s *CatalogService) ListBooks(ctx context.Context, params *pagination.Params) ([]*models.BookResponse, *pagination.Meta, error) {
	books, total, err := s.bookRepo.List(ctx, params.Offset, params.Limit)
	if err != nil {
		return nil, nil, err
	}

	out := make([]*models.BookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, b.ToResponse())
	}

	meta := pagination.GetMeta(params, total)
	return out, meta, nil
}

// GetBook returns a single book with all relations
func (s *CatalogService) GetBook(ctx context.Context, id uint) (*models.Book, error) {
	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBookNotFound
		}
		return nil, err
	}
	return book, nil
}

// ListCopies returns all copies of a book
func (s *CatalogService) ListCopies(ctx context.Context, bookID uint) ([]*models.BookCopy, error) {
	if _, err := s.bookRepo.GetByID(ctx, bookID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBookNotFound
		}
		return nil, err
	}
	return s.copyRepo.ListByBook(ctx, bookID)
}
