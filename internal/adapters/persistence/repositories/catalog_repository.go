package repositories

import (
	"context"
	"fmt"

	"libr-backend/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// BookRepository handles book and catalog master data access
type BookRepository struct {
	db *gorm.DB
}

// NewBookRepository creates a new book repository
func NewBookRepository(db *gorm.DB) *BookRepository {
	return &BookRepository{db: db}
}

// Create creates a new book
func (r *BookRepository) Create(ctx context.Context, book *models.Book) error {
	return r.db.WithContext(ctx).Create(book).Error
}

// GetByID gets a book by ID with all relations
func (r *BookRepository) GetByID(ctx context.Context, id uint) (*models.Book, error) {
	var book models.Book
	err := r.db.WithContext(ctx).
		Preload("Theme").
		Preload("Publisher").
		Preload("Authors").
		Preload("Keywords").
		Preload("Copies").
		First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetByCatalogCode gets a book by its catalog code
func (r *BookRepository) GetByCatalogCode(ctx context.Context, code string) (*models.Book, error) {
	var book models.Book
	err := r.db.WithContext(ctx).Where("catalog_code = ?", code).First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// List lists books with pagination and all relations
func (r *BookRepository) List(ctx context.Context, offset, limit int) ([]*models.Book, int64, error) {
	var books []*models.Book
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Book{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Preload("Theme").
		Preload("Publisher").
		Preload("Authors").
		Preload("Keywords").
		Preload("Copies").
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&books).Error
	if err != nil {
		return nil, 0, err
	}

	return books, total, nil
}

// NextCatalogCode generates the next catalog code (BOOK00001 ...)
func (r *BookRepository) NextCatalogCode(ctx context.Context) (string, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Unscoped().
		Model(&models.Book{}).
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("BOOK%05d", count+1), nil
}

// DeleteCascade removes a book, its copies, and every loan and request
// tied to those copies, in one transaction. Loan guards are the caller's
// responsibility.
func (r *BookRepository) DeleteCascade(ctx context.Context, bookID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var copyIDs []uint
		if err := tx.Model(&models.BookCopy{}).Where("book_id = ?", bookID).Pluck("id", &copyIDs).Error; err != nil {
			return err
		}

		if len(copyIDs) > 0 {
			if err := tx.Where("copy_id IN ?", copyIDs).Delete(&models.BookRequest{}).Error; err != nil {
				return err
			}
			if err := tx.Where("copy_id IN ?", copyIDs).Delete(&models.Loan{}).Error; err != nil {
				return err
			}
			if err := tx.Where("book_id = ?", bookID).Delete(&models.BookCopy{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Delete(&models.Book{}, bookID).Error; err != nil {
			return err
		}
		return nil
	})
}

// GetOrCreateTheme finds a theme by name or creates it
func (r *BookRepository) GetOrCreateTheme(ctx context.Context, name string) (*models.Theme, error) {
	var theme models.Theme
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&theme).Error
	if err == gorm.ErrRecordNotFound {
		theme = models.Theme{Name: name}
		if err := r.db.WithContext(ctx).Create(&theme).Error; err != nil {
			return nil, err
		}
		return &theme, nil
	}
	if err != nil {
		return nil, err
	}
	return &theme, nil
}

// GetOrCreatePublisher finds a publisher by name or creates it
func (r *BookRepository) GetOrCreatePublisher(ctx context.Context, name string) (*models.Publisher, error) {
	var pub models.Publisher
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&pub).Error
	if err == gorm.ErrRecordNotFound {
		pub = models.Publisher{Name: name}
		if err := r.db.WithContext(ctx).Create(&pub).Error; err != nil {
			return nil, err
		}
		return &pub, nil
	}
	if err != nil {
		return nil, err
	}
	return &pub, nil
}

// GetOrCreateAuthor finds an author by name or creates it
func (r *BookRepository) GetOrCreateAuthor(ctx context.Context, name string) (*models.Author, error) {
	var author models.Author
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&author).Error
	if err == gorm.ErrRecordNotFound {
		author = models.Author{Name: name}
		if err := r.db.WithContext(ctx).Create(&author).Error; err != nil {
			return nil, err
		}
		return &author, nil
	}
	if err != nil {
		return nil, err
	}
	return &author, nil
}

// GetOrCreateKeyword finds a keyword by word or creates it
func (r *BookRepository) GetOrCreateKeyword(ctx context.Context, word string) (*models.Keyword, error) {
	var kw models.Keyword
	err := r.db.WithContext(ctx).Where("word = ?", word).First(&kw).Error
	if err == gorm.ErrRecordNotFound {
		kw = models.Keyword{Word: word}
		if err := r.db.WithContext(ctx).Create(&kw).Error; err != nil {
			return nil, err
		}
		return &kw, nil
	}
	if err != nil {
		return nil, err
	}
	return &kw, nil
}

// CopyRepository handles book copy data access
type CopyRepository struct {
	db *gorm.DB
}

// NewCopyRepository creates a new copy repository
func NewCopyRepository(db *gorm.DB) *CopyRepository {
	return &CopyRepository{db: db}
}

// Create creates a new book copy
func (r *CopyRepository) Create(ctx context.Context, copy *models.BookCopy) error {
	return r.db.WithContext(ctx).Create(copy).Error
}

// GetByID gets a copy by ID with relations
func (r *CopyRepository) GetByID(ctx context.Context, id uint) (*models.BookCopy, error) {
	var copy models.BookCopy
	err := r.db.WithContext(ctx).
		Preload("Book").
		Preload("Publisher").
		First(&copy, id).Error
	if err != nil {
		return nil, err
	}
	return &copy, nil
}

// ListByBook lists all copies of a book
func (r *CopyRepository) ListByBook(ctx context.Context, bookID uint) ([]*models.BookCopy, error) {
	var copies []*models.BookCopy
	err := r.db.WithContext(ctx).
		Preload("Publisher").
		Where("book_id = ?", bookID).
		Order("id ASC").
		Find(&copies).Error
	return copies, err
}

// UpdateAvailability sets the availability flag for a copy
func (r *CopyRepository) UpdateAvailability(ctx context.Context, copyID uint, available bool) error {
	return r.db.WithContext(ctx).
		Model(&models.BookCopy{}).
		Where("id = ?", copyID).
		Update("is_available", available).Error
}

// Delete removes a copy and its loan/request history in one transaction
func (r *CopyRepository) Delete(ctx context.Context, copyID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("copy_id = ?", copyID).Delete(&models.BookRequest{}).Error; err != nil {
			return err
		}
		if err := tx.Where("copy_id = ?", copyID).Delete(&models.Loan{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.BookCopy{}, copyID).Error
	})
}
