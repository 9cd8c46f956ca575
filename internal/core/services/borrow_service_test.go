package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"libr-backend/internal/adapters/persistence/models"
	"libr-backend/internal/adapters/persistence/repositories"
	"libr-backend/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps the in-memory database alive and shared
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.AutoMigrate(db))
	return db
}

type borrowFixture struct {
	db  *gorm.DB
	svc *BorrowService
}

func newBorrowFixture(t *testing.T) *borrowFixture {
	t.Helper()

	db := newTestDB(t)
	svc := NewBorrowService(
		repositories.NewUserRepository(db),
		repositories.NewBookRepository(db),
		repositories.NewCopyRepository(db),
		repositories.NewLoanRepository(db),
		repositories.NewRequestRepository(db),
		nil,
	)
	return &borrowFixture{db: db, svc: svc}
}

func (f *borrowFixture) createUser(t *testing.T, username string, subscribed bool) *models.User {
	t.Helper()

	user := &models.User{
		FName:        "Test",
		LName:        "Reader",
		Age:          30,
		State:        models.StateStudent,
		Username:     username,
		Email:        username + "@libr.local",
		Password:     "hashed",
		Address:      "1 Test St",
		Phone:        "555-0000",
		Role:         models.RoleUser,
		IsSubscribed: subscribed,
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *borrowFixture) createBook(t *testing.T, title string) *models.Book {
	t.Helper()

	theme := &models.Theme{Name: "Fiction-" + title}
	require.NoError(t, f.db.Create(theme).Error)
	publisher := &models.Publisher{Name: "Press-" + title}
	require.NoError(t, f.db.Create(publisher).Error)

	book := &models.Book{
		CatalogCode: fmt.Sprintf("BOOK-%s", title),
		Title:       title,
		ThemeID:     theme.ID,
		PublisherID: publisher.ID,
	}
	require.NoError(t, f.db.Create(book).Error)
	return book
}

func (f *borrowFixture) createCopy(t *testing.T, book *models.Book) *models.BookCopy {
	t.Helper()

	copy := &models.BookCopy{
		BookID:      book.ID,
		Location:    "Aisle A",
		PublisherID: book.PublisherID,
		IsAvailable: true,
		State:       100,
	}
	require.NoError(t, f.db.Create(copy).Error)
	return copy
}

func TestBorrowCopy(t *testing.T) {
	ctx := context.Background()

	t.Run("subscribed user borrows available copy", func(t *testing.T) {
		f := newBorrowFixture(t)
		user := f.createUser(t, "alice", true)
		copy := f.createCopy(t, f.createBook(t, "Dune"))

		before := time.Now()
		loan, err := f.svc.BorrowCopy(ctx, copy.ID, user.ID)
		require.NoError(t, err)

		assert.Equal(t, copy.ID, loan.CopyID)
		assert.Equal(t, user.ID, loan.UserID)
		assert.Nil(t, loan.ReturnedAt)

		assert.Equal(t, time.Duration(domain.LoanPeriodDays)*24*time.Hour, loan.DueDate.Sub(loan.BorrowedDate))
		assert.False(t, loan.BorrowedDate.Before(before))

		var stored models.BookCopy
		require.NoError(t, f.db.First(&stored, copy.ID).Error)
		assert.False(t, stored.IsAvailable)
	})

	t.Run("unsubscribed user is rejected", func(t *testing.T) {
		f := newBorrowFixture(t)
		user := f.createUser(t, "bob", false)
		copy := f.createCopy(t, f.createBook(t, "Dune"))

		_, err := f.svc.BorrowCopy(ctx, copy.ID, user.ID)
		assert.ErrorIs(t, err, domain.ErrNotSubscribed)

		var stored models.BookCopy
		require.NoError(t, f.db.First(&stored, copy.ID).Error)
		assert.True(t, stored.IsAvailable)
	})

	t.Run("borrowed copy cannot be borrowed again", func(t *testing.T) {
		f := newBorrowFixture(t)
		alice := f.createUser(t, "alice", true)
		carol := f.createUser(t, "carol", true)
		copy := f.createCopy(t, f.createBook(t, "Dune"))

		_, err := f.svc.BorrowCopy(ctx, copy.ID, alice.ID)
		require.NoError(t, err)

		_, err = f.svc.BorrowCopy(ctx, copy.ID, carol.ID)
		assert.ErrorIs(t, err, domain.ErrAlreadyBorrowed)
	})

	t.Run("unknown copy", func(t *testing.T) {
		f := newBorrowFixture(t)
		user := f.createUser(t, "alice", true)

		_, err := f.svc.BorrowCopy(ctx, 9999, user.ID)
		assert.ErrorIs(t, err, domain.ErrCopyNotFound)
	})

	t.Run("concurrent borrows admit exactly one holder", func(t *testing.T) {
		f := newBorrowFixture(t)
		copy := f.createCopy(t, f.createBook(t, "Dune"))

		const workers = 8
		users := make([]*models.User, workers)
		for i := range users {
			users[i] = f.createUser(t, fmt.Sprintf("racer%d", i), true)
		}

		var wg sync.WaitGroup
		errs := make([]error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = f.svc.BorrowCopy(ctx, copy.ID, users[i].ID)
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
			} else {
				assert.ErrorIs(t, err, domain.ErrAlreadyBorrowed)
			}
		}
		assert.Equal(t, 1, succeeded)

		var open int64
		f.db.Model(&models.Loan{}).Where("copy_id = ? AND returned_at IS NULL", copy.ID).Count(&open)
		assert.EqualValues(t, 1, open)
	})
}

func TestRequestCopy(t *testing.T) {
	ctx := context.Background()

	t.Run("available copy cannot be requested", func(t *testing.T) {
		f := newBorrowFixture(t)
		user := f.createUser(t, "alice", true)
		copy := f.createCopy(t, f.createBook(t, "Dune"))

		_, _, err := f.svc.RequestCopy(ctx, copy.ID, user.ID)
		assert.ErrorIs(t, err, domain.ErrCopyAvailable)
	})

	t.Run("holder cannot queue for own copy", func(t *testing.T) {
		f := newBorrowFixture(t)
		alice := f.createUser(t, "alice", true)
		copy := f.createCopy(t, f.createBook(t, "Dune"))

		_, err := f.svc.BorrowCopy(ctx, copy.ID, alice.ID)
		require.NoError(t, err)

		_, _, err = f.svc.RequestCopy(ctx, copy.ID, alice.ID)
		assert.ErrorIs(t, err, domain.ErrAlreadyHeld)
	})

	t.Run("second request by same user is rejected", func(t *testing.T) {
		f := newBorrowFixture(t)
		alice := f.createUser(t, "alice", true)
		bob := f.createUser(t, "bob", true)
		copy := f.createCopy(t, f.createBook(t, "Dune"))

		_, err := f.svc.BorrowCopy(ctx, copy.ID, alice.ID)
		require.NoError(t, err)

		_, pos, err := f.svc.RequestCopy(ctx, copy.ID, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, pos)

		_, _, err = f.svc.RequestCopy(ctx, copy.ID, bob.ID)
		assert.ErrorIs(t, err, domain.ErrDuplicateRequest)
	})

	t.Run("unsubscribed user cannot queue", func(t *testing.T) {
		f := newBorrowFixture(t)
		alice := f.createUser(t, "alice", true)
		guest := f.createUser(t, "guest", false)
		copy := f.createCopy(t, f.createBook(t, "Dune"))

		_, err := f.svc.BorrowCopy(ctx, copy.ID, alice.ID)
		require.NoError(t, err)

		_, _, err = f.svc.RequestCopy(ctx, copy.ID, guest.ID)
		assert.ErrorIs(t, err, domain.ErrNotSubscribed)
	})

	t.Run("positions are assigned in arrival order", func(t *testing.T) {
		f := newBorrowFixture(t)
		holder := f.createUser(t, "holder", true)
		copy := f.createCopy(t, f.createBook(t, "Dune"))

		_, err := f.svc.BorrowCopy(ctx, copy.ID, holder.ID)
		require.NoError(t, err)

		for i := 1; i <= 3; i++ {
			waiter := f.createUser(t, fmt.Sprintf("waiter%d", i), true)
			_, pos, err := f.svc.RequestCopy(ctx, copy.ID, waiter.ID)
			require.NoError(t, err)
			assert.Equal(t, i, pos)
		}
	})
}

func TestCancelRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("cancelling a middle entry renumbers followers", func(t *testing.T) {
		f := newBorrowFixture(t)
		holder := f.createUser(t, "holder", true)
		u1 := f.createUser(t, "u1", true)
		u2 := f.createUser(t, "u2", true)
		u3 := f.createUser(t, "u3", true)
		copy := f.createCopy(t, f.createBook(t, "Dune"))

		_, err := f.svc.BorrowCopy(ctx, copy.ID, holder.ID)
		require.NoError(t, err)

		_, pos1, err := f.svc.RequestCopy(ctx, copy.ID, u1.ID)
		require.NoError(t, err)
		require.Equal(t, 1, pos1)

		req2, pos2, err := f.svc.RequestCopy(ctx, copy.ID, u2.ID)
		require.NoError(t, err)
		require.Equal(t, 2, pos2)

		_, pos3, err := f.svc.RequestCopy(ctx, copy.ID, u3.ID)
		require.NoError(t, err)
		require.Equal(t, 3, pos3)

		require.NoError(t, f.svc.CancelRequest(ctx, req2.ID, u2.ID, false))

		reqs, err := f.svc.ListRequests(ctx, u1.ID)
		require.NoError(t, err)
		require.Len(t, reqs, 1)
		assert.Equal(t, 1, reqs[0].Position)

		reqs, err = f.svc.ListRequests(ctx, u3.ID)
		require.NoError(t, err)
		require.Len(t, reqs, 1)
		assert.Equal(t, 2, reqs[0].Position)
	})

	t.Run("only owner or admin may cancel", func(t *testing.T) {
		f := newBorrowFixture(t)
		holder := f.createUser(t, "holder", true)
		owner := f.createUser(t, "owner", true)
		other := f.createUser(t, "other", true)
		copy := f.createCopy(t, f.createBook(t, "Dune"))

		_, err := f.svc.BorrowCopy(ctx, copy.ID, holder.ID)
		require.NoError(t, err)

		req, _, err := f.svc.RequestCopy(ctx, copy.ID, owner.ID)
		require.NoError(t, err)

		err = f.svc.CancelRequest(ctx, req.ID, other.ID, false)
		assert.ErrorIs(t, err, domain.ErrNotOwner)

		// Admin override
		require.NoError(t, f.svc.CancelRequest(ctx, req.ID, other.ID, true))

		err = f.svc.CancelRequest(ctx, req.ID, owner.ID, false)
		assert.ErrorIs(t, err, domain.ErrRequestNotFound)
	})

	t.Run("cancel racing a return never surfaces a cancelled request", func(t *testing.T) {
		f := newBorrowFixture(t)
		holder := f.createUser(t, "holder", true)
		w1 := f.createUser(t, "w1", true)
		w2 := f.createUser(t, "w2", true)

		for i := 0; i < 10; i++ {
			copy := f.createCopy(t, f.createBook(t, fmt.Sprintf("Dune%d", i)))

			_, err := f.svc.BorrowCopy(ctx, copy.ID, holder.ID)
			require.NoError(t, err)
			req1, _, err := f.svc.RequestCopy(ctx, copy.ID, w1.ID)
			require.NoError(t, err)
			req2, _, err := f.svc.RequestCopy(ctx, copy.ID, w2.ID)
			require.NoError(t, err)

			var wg sync.WaitGroup
			var next *domain.NextInQueue
			var returnErr, cancelErr error
			wg.Add(2)
			go func() {
				defer wg.Done()
				next, returnErr = f.svc.ReturnCopy(ctx, copy.ID)
			}()
			go func() {
				defer wg.Done()
				cancelErr = f.svc.CancelRequest(ctx, req1.ID, w1.ID, false)
			}()
			wg.Wait()

			require.NoError(t, returnErr)
			require.NotNil(t, next)

			// Either the cancel won and the return surfaced the second
			// waiter, or the return popped first and the cancel found
			// nothing. A cancelled request must never come out as next.
			if cancelErr == nil {
				assert.Equal(t, req2.ID, next.RequestID)
			} else {
				assert.ErrorIs(t, cancelErr, domain.ErrRequestNotFound)
				assert.Equal(t, req1.ID, next.RequestID)
			}
		}
	})
}

func TestReturnCopy(t *testing.T) {
	ctx := context.Background()

	t.Run("return with empty queue frees the copy", func(t *testing.T) {
		f := newBorrowFixture(t)
		alice := f.createUser(t, "alice", true)
		copy := f.createCopy(t, f.createBook(t, "Dune"))

		_, err := f.svc.BorrowCopy(ctx, copy.ID, alice.ID)
		require.NoError(t, err)

		next, err := f.svc.ReturnCopy(ctx, copy.ID)
		require.NoError(t, err)
		assert.Nil(t, next)

		var stored models.BookCopy
		require.NoError(t, f.db.First(&stored, copy.ID).Error)
		assert.True(t, stored.IsAvailable)

		// Someone else can borrow it again right away
		bob := f.createUser(t, "bob", true)
		_, err = f.svc.BorrowCopy(ctx, copy.ID, bob.ID)
		assert.NoError(t, err)
	})

	t.Run("return pops the queue head", func(t *testing.T) {
		f := newBorrowFixture(t)
		holder := f.createUser(t, "holder", true)
		u1 := f.createUser(t, "u1", true)
		u2 := f.createUser(t, "u2", true)
		copy := f.createCopy(t, f.createBook(t, "Dune"))

		_, err := f.svc.BorrowCopy(ctx, copy.ID, holder.ID)
		require.NoError(t, err)

		req1, _, err := f.svc.RequestCopy(ctx, copy.ID, u1.ID)
		require.NoError(t, err)
		_, _, err = f.svc.RequestCopy(ctx, copy.ID, u2.ID)
		require.NoError(t, err)

		next, err := f.svc.ReturnCopy(ctx, copy.ID)
		require.NoError(t, err)
		require.NotNil(t, next)
		assert.Equal(t, req1.ID, next.RequestID)
		assert.Equal(t, u1.ID, next.UserID)
		assert.Equal(t, copy.ID, next.CopyID)

		// Head is gone; u2 moved up but nobody was auto-borrowed
		var stored models.BookCopy
		require.NoError(t, f.db.First(&stored, copy.ID).Error)
		assert.True(t, stored.IsAvailable)

		reqs, err := f.svc.ListRequests(ctx, u2.ID)
		require.NoError(t, err)
		require.Len(t, reqs, 1)
		assert.Equal(t, 1, reqs[0].Position)

		var remaining int64
		f.db.Model(&models.BookRequest{}).Where("copy_id = ?", copy.ID).Count(&remaining)
		assert.EqualValues(t, 1, remaining)
	})

	t.Run("a failed return leaves the loan open", func(t *testing.T) {
		f := newBorrowFixture(t)
		alice := f.createUser(t, "alice", true)
		copy := f.createCopy(t, f.createBook(t, "Dune"))

		loan, err := f.svc.BorrowCopy(ctx, copy.ID, alice.ID)
		require.NoError(t, err)

		// Sabotage the queue table so the pop inside the return fails
		require.NoError(t, f.db.Migrator().DropTable(&models.BookRequest{}))

		_, err = f.svc.ReturnCopy(ctx, copy.ID)
		require.Error(t, err)

		var stored models.Loan
		require.NoError(t, f.db.First(&stored, loan.ID).Error)
		assert.Nil(t, stored.ReturnedAt)

		var c models.BookCopy
		require.NoError(t, f.db.First(&c, copy.ID).Error)
		assert.False(t, c.IsAvailable)
	})

	t.Run("returning an idle copy fails", func(t *testing.T) {
		f := newBorrowFixture(t)
		copy := f.createCopy(t, f.createBook(t, "Dune"))

		_, err := f.svc.ReturnCopy(ctx, copy.ID)
		assert.ErrorIs(t, err, domain.ErrNoActiveLoan)
	})
}

func TestBorrowReturnLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newBorrowFixture(t)
	u1 := f.createUser(t, "u1", true)
	u2 := f.createUser(t, "u2", true)
	copy := f.createCopy(t, f.createBook(t, "Dune"))

	loan, err := f.svc.BorrowCopy(ctx, copy.ID, u1.ID)
	require.NoError(t, err)
	assert.True(t, loan.IsOpen())

	_, pos, err := f.svc.RequestCopy(ctx, copy.ID, u2.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	next, err := f.svc.ReturnCopy(ctx, copy.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, u2.ID, next.UserID)

	var closed models.Loan
	require.NoError(t, f.db.First(&closed, loan.ID).Error)
	assert.NotNil(t, closed.ReturnedAt)

	var stored models.BookCopy
	require.NoError(t, f.db.First(&stored, copy.ID).Error)
	assert.True(t, stored.IsAvailable)

	// The surfaced user picks the copy up
	_, err = f.svc.BorrowCopy(ctx, copy.ID, u2.ID)
	require.NoError(t, err)
}

func TestListBorrowed(t *testing.T) {
	ctx := context.Background()

	f := newBorrowFixture(t)
	alice := f.createUser(t, "alice", true)
	book := f.createBook(t, "Dune")
	copy1 := f.createCopy(t, book)
	copy2 := f.createCopy(t, book)

	_, err := f.svc.BorrowCopy(ctx, copy1.ID, alice.ID)
	require.NoError(t, err)
	_, err = f.svc.BorrowCopy(ctx, copy2.ID, alice.ID)
	require.NoError(t, err)

	borrowed, err := f.svc.ListBorrowed(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, borrowed, 2)

	for _, b := range borrowed {
		assert.Equal(t, book.ID, b.BookID)
		assert.Equal(t, "Dune", b.Title)
		assert.Equal(t, 0, b.DaysOverdue)
	}

	// Returning one removes it from the view
	_, err = f.svc.ReturnCopy(ctx, copy1.ID)
	require.NoError(t, err)

	borrowed, err = f.svc.ListBorrowed(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, borrowed, 1)
	assert.Equal(t, copy2.ID, borrowed[0].CopyID)
}

func TestDeleteCopy(t *testing.T) {
	ctx := context.Background()

	t.Run("copy on loan cannot be deleted", func(t *testing.T) {
		f := newBorrowFixture(t)
		alice := f.createUser(t, "alice", true)
		copy := f.createCopy(t, f.createBook(t, "Dune"))

		_, err := f.svc.BorrowCopy(ctx, copy.ID, alice.ID)
		require.NoError(t, err)

		err = f.svc.DeleteCopy(ctx, copy.ID)
		assert.ErrorIs(t, err, domain.ErrCopyOnLoan)
	})

	t.Run("deletion removes pending requests", func(t *testing.T) {
		f := newBorrowFixture(t)
		alice := f.createUser(t, "alice", true)
		bob := f.createUser(t, "bob", true)
		carol := f.createUser(t, "carol", true)
		copy := f.createCopy(t, f.createBook(t, "Dune"))

		_, err := f.svc.BorrowCopy(ctx, copy.ID, alice.ID)
		require.NoError(t, err)
		_, _, err = f.svc.RequestCopy(ctx, copy.ID, bob.ID)
		require.NoError(t, err)
		_, _, err = f.svc.RequestCopy(ctx, copy.ID, carol.ID)
		require.NoError(t, err)

		// Return pops bob; carol's request is still pending
		_, err = f.svc.ReturnCopy(ctx, copy.ID)
		require.NoError(t, err)

		require.NoError(t, f.svc.DeleteCopy(ctx, copy.ID))

		var reqs int64
		f.db.Unscoped().Model(&models.BookRequest{}).Where("copy_id = ?", copy.ID).Count(&reqs)
		assert.EqualValues(t, 0, reqs)
	})
}

func TestDeleteBook(t *testing.T) {
	ctx := context.Background()

	t.Run("blocked while a copy is on loan", func(t *testing.T) {
		f := newBorrowFixture(t)
		alice := f.createUser(t, "alice", true)
		book := f.createBook(t, "Dune")
		copy := f.createCopy(t, book)
		f.createCopy(t, book)

		_, err := f.svc.BorrowCopy(ctx, copy.ID, alice.ID)
		require.NoError(t, err)

		err = f.svc.DeleteBook(ctx, book.ID)
		assert.ErrorIs(t, err, domain.ErrCopyOnLoan)
	})

	t.Run("cascades to copies and requests after return", func(t *testing.T) {
		f := newBorrowFixture(t)
		alice := f.createUser(t, "alice", true)
		bob := f.createUser(t, "bob", true)
		book := f.createBook(t, "Dune")
		copy := f.createCopy(t, book)

		_, err := f.svc.BorrowCopy(ctx, copy.ID, alice.ID)
		require.NoError(t, err)
		_, _, err = f.svc.RequestCopy(ctx, copy.ID, bob.ID)
		require.NoError(t, err)
		_, err = f.svc.ReturnCopy(ctx, copy.ID)
		require.NoError(t, err)

		require.NoError(t, f.svc.DeleteBook(ctx, book.ID))

		var copies int64
		f.db.Model(&models.BookCopy{}).Where("book_id = ?", book.ID).Count(&copies)
		assert.EqualValues(t, 0, copies)

		err = f.svc.DeleteBook(ctx, book.ID)
		assert.ErrorIs(t, err, domain.ErrBookNotFound)
	})
}
