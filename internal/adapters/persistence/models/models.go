package models

import (
	"time"

	"gorm.io/gorm"
)

// ============================================================
// Auth & User Tables
// ============================================================

// User represents users table
type User struct {
	ID           uint           `gorm:"primaryKey" json:"user_id"`
	FName        string         `gorm:"size:50;not null" json:"fname"`
	LName        string         `gorm:"size:50;not null" json:"lname"`
	Age          int            `gorm:"not null" json:"age"`
	State        string         `gorm:"size:20;not null;default:'student'" json:"state"`
	Username     string         `gorm:"size:50;not null" json:"username"`
	Email        string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password     string         `gorm:"size:255;not null" json:"-"`
	Address      string         `gorm:"size:255;not null" json:"address"`
	Phone        string         `gorm:"size:30;not null" json:"phone"`
	Role         string         `gorm:"size:20;default:'user'" json:"role"`
	IsSubscribed bool           `gorm:"default:false" json:"is_subscribed"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// Reader states
const (
	StateKid     = "kid"
	StateStudent = "student"
	StatePro     = "pro"
)

// Roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserResponse DTO
type UserResponse struct {
	ID           uint      `json:"user_id"`
	FName        string    `json:"fname"`
	LName        string    `json:"lname"`
	Age          int       `json:"age"`
	State        string    `json:"state"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Address      string    `json:"address"`
	Phone        string    `json:"phone"`
	Role         string    `json:"role"`
	IsSubscribed bool      `json:"is_subscribed"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:           u.ID,
		FName:        u.FName,
		LName:        u.LName,
		Age:          u.Age,
		State:        u.State,
		Username:     u.Username,
		Email:        u.Email,
		Address:      u.Address,
		Phone:        u.Phone,
		Role:         u.Role,
		IsSubscribed: u.IsSubscribed,
		CreatedAt:    u.CreatedAt,
	}
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&RefreshToken{},
		// Catalog
		&Theme{},
		&Publisher{},
		&Author{},
		&Keyword{},
		&Book{},
		&BookCopy{},
		// Borrowing
		&Loan{},
		&BookRequest{},
	)
}
