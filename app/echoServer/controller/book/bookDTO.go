package book

import (
	"time"

	"librarycatalog/model"
)

type CreateBookReq struct {
	SerialNumber string `json:"serial_number" validate:"required,len=6,number"`
	Title        string `json:"title" validate:"required,max=255"`
	Author       string `json:"author" validate:"required,max=255"`
}

type BorrowReq struct {
	BorrowerCard string `json:"borrower_card" validate:"required,len=6,number"`
}

type SetStatusReq struct {
	IsBorrowed   bool       `json:"is_borrowed"`
	BorrowerCard *string    `json:"borrower_card,omitempty" validate:"omitempty,len=6,number"`
	When         *time.Time `json:"when,omitempty"`
}

type BookOut struct {
	ID           string     `json:"id"`
	SerialNumber string     `json:"serial_number"`
	Title        string     `json:"title"`
	Author       string     `json:"author"`
	IsBorrowed   bool       `json:"is_borrowed"`
	BorrowedAt   *time.Time `json:"borrowed_at,omitempty"`
	BorrowedBy   *string    `json:"borrowed_by,omitempty"`
}

func toOut(b *model.Book) BookOut {
	return BookOut{
		ID:           b.ID.String(),
		SerialNumber: b.SerialNumber,
		Title:        b.Title,
		Author:       b.Author,
		IsBorrowed:   b.IsBorrowed,
		BorrowedAt:   b.BorrowedAt,
		BorrowedBy:   b.BorrowedBy,
	}
}
