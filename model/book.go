// model/book.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// Book is one catalog row. The borrow triple (IsBorrowed, BorrowedAt,
// BorrowedBy) is always all-set or all-clear; the books table carries a
// check constraint mirroring that rule.
type Book struct {
	ID           uuid.UUID  `json:"id"`
	SerialNumber string     `json:"serial_number"`
	Title        string     `json:"title"`
	Author       string     `json:"author"`
	IsBorrowed   bool       `json:"is_borrowed"`
	BorrowedAt   *time.Time `json:"borrowed_at,omitempty"`
	BorrowedBy   *string    `json:"borrowed_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
