package services

import (
	"context"
	"errors"
	"log"
	"time"

	"libr-backend/internal/adapters/persistence/models"
	"libr-backend/internal/adapters/persistence/repositories"
	"libr-backend/internal/core/domain"
	"libr-backend/internal/pkg/copylock"

	"gorm.io/gorm"
)

// BorrowService orchestrates borrow / return / request / cancel and the
// copy lifecycle. Operations touching the same copy are serialized with a
// per-copy lock; operations on different copies run independently.
type BorrowService struct {
	userRepo    repositories.UserRepository
	bookRepo    *repositories.BookRepository
	copyRepo    *repositories.CopyRepository
	loanRepo    *repositories.LoanRepository
	requestRepo *repositories.RequestRepository
	notify      *NotificationService
	locks       *copylock.Keyed
}

// NewBorrowService creates a new borrow service
func NewBorrowService(
	userRepo repositories.UserRepository,
	bookRepo *repositories.BookRepository,
	copyRepo *repositories.CopyRepository,
	loanRepo *repositories.LoanRepository,
	requestRepo *repositories.RequestRepository,
	notify *NotificationService,
) *BorrowService {
	return &BorrowService{
		userRepo:    userRepo,
		bookRepo:    bookRepo,
		copyRepo:    copyRepo,
		loanRepo:    loanRepo,
		requestRepo: requestRepo,
		notify:      notify,
		locks:       copylock.New(),
	}
}

// BorrowCopy lends a copy to a user. Due date is borrow time + 15 days,
// fixed policy regardless of any client-supplied date.
func (s *BorrowService) BorrowCopy(ctx context.Context, copyID, userID uint) (*models.Loan, error) {
	unlock := s.locks.Lock(copyID)
	defer unlock()

	copy, err := s.copyRepo.GetByID(ctx, copyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCopyNotFound
		}
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	if !user.IsSubscribed {
		return nil, domain.ErrNotSubscribed
	}

	open, err := s.loanRepo.GetOpenByCopy(ctx, copyID)
	if err != nil {
		return nil, err
	}
	if open != nil || !copy.IsAvailable {
		return nil, domain.ErrAlreadyBorrowed
	}

	now := time.Now()
	loan := &models.Loan{
		CopyID:       copyID,
		UserID:       userID,
		BorrowedDate: now,
		DueDate:      domain.DueDate(now),
	}
	if err := s.loanRepo.Create(ctx, loan); err != nil {
		return nil, err
	}
	if err := s.copyRepo.UpdateAvailability(ctx, copyID, false); err != nil {
		return nil, err
	}

	log.Printf("✅ Copy %d borrowed by user %d (due %s)", copyID, userID, loan.DueDate.Format("2006-01-02"))
	return loan, nil
}

// ReturnCopy closes the open loan on a copy. If the copy's request queue is
// non-empty the head is dequeued and surfaced as the next user to notify;
// whether that user then borrows is up to them.
func (s *BorrowService) ReturnCopy(ctx context.Context, copyID uint) (*domain.NextInQueue, error) {
	unlock := s.locks.Lock(copyID)
	defer unlock()

	copy, err := s.copyRepo.GetByID(ctx, copyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCopyNotFound
		}
		return nil, err
	}

	open, err := s.loanRepo.GetOpenByCopy(ctx, copyID)
	if err != nil {
		return nil, err
	}
	if open == nil {
		return nil, domain.ErrNoActiveLoan
	}

	head, err := s.loanRepo.Return(ctx, open.ID, copyID, time.Now())
	if err != nil {
		return nil, err
	}
	if head == nil {
		log.Printf("✅ Copy %d returned (empty queue)", copyID)
		return nil, nil
	}

	next := &domain.NextInQueue{
		RequestID: head.ID,
		CopyID:    copyID,
		UserID:    head.UserID,
	}

	// Notify-only: delivery failures never fail the return
	if s.notify != nil {
		title := ""
		if copy.Book != nil {
			title = copy.Book.Title
		}
		s.notify.NotifyCopyReady(ctx, next, title)
	}

	log.Printf("✅ Copy %d returned, user %d is next in queue", copyID, head.UserID)
	return next, nil
}

// RequestCopy appends a user to the waiting queue of a borrowed copy and
// returns the created request with its 1-indexed position.
func (s *BorrowService) RequestCopy(ctx context.Context, copyID, userID uint) (*models.BookRequest, int, error) {
	unlock := s.locks.Lock(copyID)
	defer unlock()

	if _, err := s.copyRepo.GetByID(ctx, copyID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, domain.ErrCopyNotFound
		}
		return nil, 0, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, domain.ErrUserNotFound
		}
		return nil, 0, err
	}
	if !user.IsSubscribed {
		return nil, 0, domain.ErrNotSubscribed
	}

	open, err := s.loanRepo.GetOpenByCopy(ctx, copyID)
	if err != nil {
		return nil, 0, err
	}
	if open == nil {
		// Requesting an available copy makes no sense; borrow it instead
		return nil, 0, domain.ErrCopyAvailable
	}
	if open.UserID == userID {
		return nil, 0, domain.ErrAlreadyHeld
	}

	existing, err := s.requestRepo.GetPendingByCopyAndUser(ctx, copyID, userID)
	if err != nil {
		return nil, 0, err
	}
	if existing != nil {
		return nil, 0, domain.ErrDuplicateRequest
	}

	req := &models.BookRequest{
		CopyID:        copyID,
		UserID:        userID,
		RequestedDate: time.Now(),
	}
	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, 0, err
	}

	pos, err := s.requestRepo.PositionOf(ctx, req)
	if err != nil {
		return nil, 0, err
	}

	log.Printf("✅ User %d requested copy %d (position %d)", userID, copyID, pos)
	return req, pos, nil
}

// CancelRequest removes a pending request. Only the owner or an admin may
// cancel it.
func (s *BorrowService) CancelRequest(ctx context.Context, requestID, callerID uint, callerIsAdmin bool) error {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRequestNotFound
		}
		return err
	}

	if req.UserID != callerID && !callerIsAdmin {
		return domain.ErrNotOwner
	}

	unlock := s.locks.Lock(req.CopyID)
	defer unlock()

	// Re-check under the lock; a concurrent return may have popped it
	if _, err := s.requestRepo.GetByID(ctx, requestID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRequestNotFound
		}
		return err
	}

	if err := s.requestRepo.Delete(ctx, requestID); err != nil {
		return err
	}

	log.Printf("✅ Request %d cancelled by user %d", requestID, callerID)
	return nil
}

// AddCopyInput represents add copy input
type AddCopyInput struct {
	Location  string `json:"location"`
	Publisher string `json:"publisher"`
	State     *int   `json:"state"`
}

// AddCopy creates a new available copy of a book
func (s *BorrowService) AddCopy(ctx context.Context, bookID uint, input *AddCopyInput) (*models.BookCopy, error) {
	book, err := s.bookRepo.GetByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBookNotFound
		}
		return nil, err
	}

	publisherID := book.PublisherID
	if input.Publisher != "" {
		pub, err := s.bookRepo.GetOrCreatePublisher(ctx, input.Publisher)
		if err != nil {
			return nil, err
		}
		publisherID = pub.ID
	}

	state := 100
	if input.State != nil {
		state = *input.State
		if state < 0 {
			state = 0
		}
		if state > 100 {
			state = 100
		}
	}

	copy := &models.BookCopy{
		BookID:      bookID,
		Location:    input.Location,
		PublisherID: publisherID,
		IsAvailable: true,
		State:       state,
	}
	if err := s.copyRepo.Create(ctx, copy); err != nil {
		return nil, err
	}

	log.Printf("✅ Copy %d added to book %d", copy.ID, bookID)
	return copy, nil
}

// DeleteCopy removes a copy unless it is on loan. Pending requests and
// closed loan history go with it.
func (s *BorrowService) DeleteCopy(ctx context.Context, copyID uint) error {
	unlock := s.locks.Lock(copyID)
	defer unlock()

	if _, err := s.copyRepo.GetByID(ctx, copyID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrCopyNotFound
		}
		return err
	}

	open, err := s.loanRepo.GetOpenByCopy(ctx, copyID)
	if err != nil {
		return err
	}
	if open != nil {
		return domain.ErrCopyOnLoan
	}

	return s.copyRepo.Delete(ctx, copyID)
}

// DeleteBook removes a book and all of its copies. Blocked while any copy
// is on loan so no borrower ends up holding a ghost copy.
func (s *BorrowService) DeleteBook(ctx context.Context, bookID uint) error {
	if _, err := s.bookRepo.GetByID(ctx, bookID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrBookNotFound
		}
		return err
	}

	onLoan, err := s.loanRepo.CountOpenByBook(ctx, bookID)
	if err != nil {
		return err
	}
	if onLoan > 0 {
		return domain.ErrCopyOnLoan
	}

	if err := s.bookRepo.DeleteCascade(ctx, bookID); err != nil {
		return err
	}

	log.Printf("✅ Book %d deleted with all copies", bookID)
	return nil
}

// ListBorrowed returns all books a user currently holds, with overdue days
// computed from now
func (s *BorrowService) ListBorrowed(ctx context.Context, userID uint) ([]*models.BorrowedBookResponse, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	loans, err := s.loanRepo.ListOpenByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	out := make([]*models.BorrowedBookResponse, 0, len(loans))
	for _, loan := range loans {
		resp := &models.BorrowedBookResponse{
			LoanID:       loan.ID,
			CopyID:       loan.CopyID,
			BorrowedDate: loan.BorrowedDate,
			DueDate:      loan.DueDate,
			DaysOverdue:  domain.DaysOverdue(now, loan.DueDate),
		}
		if loan.Copy != nil {
			resp.Location = loan.Copy.Location
			resp.BookID = loan.Copy.BookID
			if loan.Copy.Book != nil {
				resp.Title = loan.Copy.Book.Title
				resp.CatalogCode = loan.Copy.Book.CatalogCode
				resp.Poster = loan.Copy.Book.Poster
			}
		}
		out = append(out, resp)
	}
	return out, nil
}

// ListRequests returns all pending requests for a user with current queue
// positions
func (s *BorrowService) ListRequests(ctx context.Context, userID uint) ([]*models.RequestResponse, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	reqs, err := s.requestRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]*models.RequestResponse, 0, len(reqs))
	for _, req := range reqs {
		pos, err := s.requestRepo.PositionOf(ctx, req)
		if err != nil {
			return nil, err
		}
		resp := &models.RequestResponse{
			RequestID:     req.ID,
			CopyID:        req.CopyID,
			RequestedDate: req.RequestedDate,
			Position:      pos,
		}
		if req.Copy != nil {
			resp.BookID = req.Copy.BookID
			if req.Copy.Book != nil {
				resp.Title = req.Copy.Book.Title
				resp.CatalogCode = req.Copy.Book.CatalogCode
				resp.Poster = req.Copy.Book.Poster
			}
		}
		out = append(out, resp)
	}
	return out, nil
}
