package models

import (
	"time"

	"gorm.io/gorm"
)

// ============================================================
// Catalog Master Tables
// ============================================================

// Theme represents themes table (Master)
type Theme struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:100;uniqueIndex;not null" json:"name"`
}

func (Theme) TableName() string {
	return "themes"
}

// Publisher represents publishers table (Master)
type Publisher struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:150;uniqueIndex;not null" json:"name"`
}

func (Publisher) TableName() string {
	return "publishers"
}

// Author represents authors table (Master)
type Author struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:150;uniqueIndex;not null" json:"name"`
}

func (Author) TableName() string {
	return "authors"
}

// Keyword represents keywords table (Master)
type Keyword struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Word string `gorm:"size:100;uniqueIndex;not null" json:"word"`
}

func (Keyword) TableName() string {
	return "keywords"
}

// ============================================================
// Catalog Main Tables
// ============================================================

// Book represents books table
type Book struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CatalogCode string         `gorm:"size:20;uniqueIndex;not null" json:"catalog_code"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	ThemeID     uint           `gorm:"not null" json:"theme_id"`
	PublisherID uint           `gorm:"not null" json:"publisher_id"`
	Poster      string         `gorm:"size:500" json:"poster"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Theme     *Theme     `gorm:"foreignKey:ThemeID" json:"theme,omitempty"`
	Publisher *Publisher `gorm:"foreignKey:PublisherID" json:"publisher,omitempty"`
	Authors   []Author   `gorm:"many2many:book_authors" json:"authors,omitempty"`
	Keywords  []Keyword  `gorm:"many2many:book_keywords" json:"keywords,omitempty"`
	Copies    []BookCopy `gorm:"foreignKey:BookID" json:"copies,omitempty"`
}

func (Book) TableName() string {
	return "books"
}

// BookResponse DTO
type BookResponse struct {
	ID          uint     `json:"id"`
	CatalogCode string   `json:"catalog_code"`
	Title       string   `json:"title"`
	Theme       string   `json:"theme,omitempty"`
	Publisher   string   `json:"publisher,omitempty"`
	Authors     []string `json:"authors"`
	Keywords    []string `json:"keywords"`
	Poster      string   `json:"poster"`
	TotalCopies int      `json:"total_copies"`
	Available   int      `json:"available_copies"`
}

func (b *Book) ToResponse() *BookResponse {
	resp := &BookResponse{
		ID:          b.ID,
		CatalogCode: b.CatalogCode,
		Title:       b.Title,
		Poster:      b.Poster,
		Authors:     make([]string, 0, len(b.Authors)),
		Keywords:    make([]string, 0, len(b.Keywords)),
	}

	if b.Theme != nil {
		resp.Theme = b.Theme.Name
	}
	if b.Publisher != nil {
		resp.Publisher = b.Publisher.Name
	}
	for _, a := range b.Authors {
		resp.Authors = append(resp.Authors, a.Name)
	}
	for _, k := range b.Keywords {
		resp.Keywords = append(resp.Keywords, k.Word)
	}
	resp.TotalCopies = len(b.Copies)
	for _, c := range b.Copies {
		if c.IsAvailable {
			resp.Available++
		}
	}

	return resp
}

// BookCopy represents book_copies table
// state is a condition score 0-100
type BookCopy struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	BookID      uint           `gorm:"not null;index" json:"book_id"`
	Location    string         `gorm:"size:100;not null" json:"location"`
	PublisherID uint           `gorm:"not null" json:"publisher_id"`
	IsAvailable bool           `gorm:"default:true" json:"is_available"`
	State       int            `gorm:"not null;default:100" json:"state"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Book      *Book      `gorm:"foreignKey:BookID" json:"book,omitempty"`
	Publisher *Publisher `gorm:"foreignKey:PublisherID" json:"publisher,omitempty"`
}

func (BookCopy) TableName() string {
	return "book_copies"
}

// ============================================================
// Borrowing Tables
// ============================================================

// Loan represents loans table
// A loan is open while returned_at is NULL; a copy has at most one open loan.
type Loan struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	CopyID       uint       `gorm:"not null;index" json:"copy_id"`
	UserID       uint       `gorm:"not null;index" json:"user_id"`
	BorrowedDate time.Time  `gorm:"not null" json:"borrowed_date"`
	DueDate      time.Time  `gorm:"not null" json:"due_date"`
	ReturnedAt   *time.Time `gorm:"index" json:"returned_at"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Copy *BookCopy `gorm:"foreignKey:CopyID" json:"copy,omitempty"`
	User *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Loan) TableName() string {
	return "loans"
}

// IsOpen reports whether the loan is still outstanding
func (l *Loan) IsOpen() bool {
	return l.ReturnedAt == nil
}

// BookRequest represents book_requests table (reservation queue)
// Queue order is requested_date ascending, ties broken by id ascending.
// Position is always derived from current queue contents, never stored.
type BookRequest struct {
	ID            uint      `gorm:"primaryKey" json:"request_id"`
	CopyID        uint      `gorm:"not null;index" json:"copy_id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	RequestedDate time.Time `gorm:"not null" json:"requested_date"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Copy *BookCopy `gorm:"foreignKey:CopyID" json:"copy,omitempty"`
	User *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (BookRequest) TableName() string {
	return "book_requests"
}

// ============================================================
// Borrowing DTOs
// ============================================================

// BorrowedBookResponse DTO for GET /users/{id}/borrowed
type BorrowedBookResponse struct {
	LoanID       uint      `json:"loan_id"`
	CopyID       uint      `json:"copy_id"`
	BookID       uint      `json:"book_id"`
	Title        string    `json:"title"`
	CatalogCode  string    `json:"catalog_code"`
	Poster       string    `json:"poster"`
	Location     string    `json:"location"`
	BorrowedDate time.Time `json:"borrowed_date"`
	DueDate      time.Time `json:"due_date"`
	DaysOverdue  int       `json:"days_overdue"`
}

// RequestResponse DTO carrying the derived queue position
type RequestResponse struct {
	RequestID     uint      `json:"request_id"`
	CopyID        uint      `json:"copy_id"`
	BookID        uint      `json:"book_id"`
	Title         string    `json:"title"`
	CatalogCode   string    `json:"catalog_code"`
	Poster        string    `json:"poster"`
	RequestedDate time.Time `json:"requested_date"`
	Position      int       `json:"position"`
}
