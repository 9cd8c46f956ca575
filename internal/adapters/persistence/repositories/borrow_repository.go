package repositories

import (
	"context"
	"time"

	"libr-backend/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// LoanRepository handles loan data access
type LoanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

// Create creates a new loan
func (r *LoanRepository) Create(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Create(loan).Error
}

// GetOpenByCopy returns the open loan for a copy, or nil if the copy is
// not on loan
func (r *LoanRepository) GetOpenByCopy(ctx context.Context, copyID uint) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).
		Where("copy_id = ? AND returned_at IS NULL", copyID).
		First(&loan).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// Return closes a loan, frees its copy and pops the copy's queue head in
// one transaction, so a failure cannot leave a closed loan on an
// unavailable copy. Returns the popped head, or nil if the queue was empty.
func (r *LoanRepository) Return(ctx context.Context, loanID, copyID uint, returnedAt time.Time) (*models.BookRequest, error) {
	var head *models.BookRequest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Loan{}).
			Where("id = ?", loanID).
			Update("returned_at", &returnedAt).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.BookCopy{}).
			Where("id = ?", copyID).
			Update("is_available", true).Error; err != nil {
			return err
		}
		h, err := popQueueHead(tx, copyID)
		if err != nil {
			return err
		}
		head = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return head, nil
}

// ListOpenByUser returns all open loans for a user with copy and book preloaded
func (r *LoanRepository) ListOpenByUser(ctx context.Context, userID uint) ([]*models.Loan, error) {
	var loans []*models.Loan
	err := r.db.WithContext(ctx).
		Preload("Copy").
		Preload("Copy.Book").
		Where("user_id = ? AND returned_at IS NULL", userID).
		Order("borrowed_date ASC").
		Find(&loans).Error
	return loans, err
}

// CountOpenByBook counts open loans across all copies of a book
func (r *LoanRepository) CountOpenByBook(ctx context.Context, bookID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Joins("JOIN book_copies ON book_copies.id = loans.copy_id").
		Where("book_copies.book_id = ? AND loans.returned_at IS NULL", bookID).
		Count(&count).Error
	return count, err
}

// RequestRepository handles reservation queue data access
type RequestRepository struct {
	db *gorm.DB
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create creates a new request
func (r *RequestRepository) Create(ctx context.Context, req *models.BookRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

// GetByID gets a request by ID
func (r *RequestRepository) GetByID(ctx context.Context, id uint) (*models.BookRequest, error) {
	var req models.BookRequest
	err := r.db.WithContext(ctx).First(&req, id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// GetPendingByCopyAndUser returns the user's pending request for a copy,
// or nil if there is none
func (r *RequestRepository) GetPendingByCopyAndUser(ctx context.Context, copyID, userID uint) (*models.BookRequest, error) {
	var req models.BookRequest
	err := r.db.WithContext(ctx).
		Where("copy_id = ? AND user_id = ?", copyID, userID).
		First(&req).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ListByCopy returns the pending queue for a copy in FIFO order,
// ties broken by id ascending
func (r *RequestRepository) ListByCopy(ctx context.Context, copyID uint) ([]*models.BookRequest, error) {
	var reqs []*models.BookRequest
	err := r.db.WithContext(ctx).
		Where("copy_id = ?", copyID).
		Order("requested_date ASC, id ASC").
		Find(&reqs).Error
	return reqs, err
}

// ListByUser returns all pending requests for a user with copy and book preloaded
func (r *RequestRepository) ListByUser(ctx context.Context, userID uint) ([]*models.BookRequest, error) {
	var reqs []*models.BookRequest
	err := r.db.WithContext(ctx).
		Preload("Copy").
		Preload("Copy.Book").
		Where("user_id = ?", userID).
		Order("requested_date ASC, id ASC").
		Find(&reqs).Error
	return reqs, err
}

// popQueueHead removes and returns the oldest request for a copy inside an
// existing transaction, or nil if the queue is empty
func popQueueHead(tx *gorm.DB, copyID uint) (*models.BookRequest, error) {
	var req models.BookRequest
	err := tx.
		Where("copy_id = ?", copyID).
		Order("requested_date ASC, id ASC").
		First(&req).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := tx.Delete(&models.BookRequest{}, req.ID).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// Delete removes a request
func (r *RequestRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.BookRequest{}, id).Error
}

// PositionOf returns the 1-indexed queue position of a request among the
// pending requests for the same copy. Recomputed from current queue
// contents so it stays correct after cancellations.
func (r *RequestRepository) PositionOf(ctx context.Context, req *models.BookRequest) (int, error) {
	var ahead int64
	err := r.db.WithContext(ctx).
		Model(&models.BookRequest{}).
		Where("copy_id = ?", req.CopyID).
		Where("requested_date < ? OR (requested_date = ? AND id < ?)",
			req.RequestedDate, req.RequestedDate, req.ID).
		Count(&ahead).Error
	if err != nil {
		return 0, err
	}
	return int(ahead) + 1, nil
}
