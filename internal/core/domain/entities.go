package domain

import "time"

// LoanPeriodDays is the fixed borrowing period policy
const LoanPeriodDays = 15

// DueDate returns the due date for a loan starting at borrowedAt
func DueDate(borrowedAt time.Time) time.Time {
	return borrowedAt.Add(LoanPeriodDays * 24 * time.Hour)
}

// DaysOverdue returns how many whole days a loan is past its due date at now.
// Returns 0 for loans that are not overdue. Pure function; no overdue state
// transition exists in the model.
func DaysOverdue(now, dueDate time.Time) int {
	if !now.After(dueDate) {
		return 0
	}
	return int(now.Sub(dueDate).Hours() / 24)
}

// CopyStatus represents the persisted state of a book copy
type CopyStatus string

const (
	CopyAvailable CopyStatus = "AVAILABLE"
	CopyBorrowed  CopyStatus = "BORROWED"
)

// NextInQueue is the signal surfaced when a return pops the head of a
// copy's request queue. Notification delivery is an external collaborator;
// callers decide what to do with it.
type NextInQueue struct {
	RequestID uint
	CopyID    uint
	UserID    uint
}
