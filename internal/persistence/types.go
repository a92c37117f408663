package persistence

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a row does not exist or is not owned by the caller.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique column already holds the value.
var ErrDuplicate = errors.New("duplicate")

// CompanyPerson is one cached (company, person) row.
type CompanyPerson struct {
	CompanyName   string
	Website       string
	EmployeeName  string
	EmployeeTitle string
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email,omitempty"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	IsAnonymous  bool      `json:"is_anonymous"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Session struct {
	Token     string    `json:"-"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
}

type Chat struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
