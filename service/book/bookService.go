package booksvc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"librarycatalog/model"
	bookrepo "librarycatalog/repository/book"
	"librarycatalog/util/database"
	"librarycatalog/util/identifier"
)

// errors used by controllers

type ErrCode string

const (
	ErrInvalidSerial   ErrCode = "INVALID_SERIAL_NUMBER"
	ErrInvalidCard     ErrCode = "INVALID_CARD_NUMBER"
	ErrBookNotFound    ErrCode = "BOOK_NOT_FOUND"
	ErrUserNotFound    ErrCode = "USER_NOT_FOUND"
	ErrDuplicateSerial ErrCode = "DUPLICATE_SERIAL_NUMBER"
	ErrAlreadyBorrowed ErrCode = "BOOK_ALREADY_BORROWED"
	ErrNotBorrowed     ErrCode = "BOOK_NOT_BORROWED"
)

type codedError struct {
	code ErrCode
	msg  string
}

func (e codedError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return string(e.code)
}
func (e codedError) Code() ErrCode { return e.code }

func makeErr(c ErrCode, format string, args ...any) error {
	return codedError{code: c, msg: fmt.Sprintf(format, args...)}
}

// Code extracts the error code, or "" for non-domain errors.
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

// ListFilter = repository shape
type ListFilter = bookrepo.ListFilter

// Store begins transactions; satisfied by *database.DB.
type Store interface {
	Begin(ctx context.Context) (database.Tx, error)
}

type Repo interface {
	GetBySerial(ctx context.Context, serial string) (*model.Book, error)
	GetBySerialForUpdate(ctx context.Context, tx database.Tx, serial string) (*model.Book, error)
	List(ctx context.Context, f ListFilter) ([]model.Book, error)
	Insert(ctx context.Context, b *model.Book) error
	SetBorrowState(ctx context.Context, tx database.Tx, id uuid.UUID, borrowed bool, card *string, at *time.Time) error
	Delete(ctx context.Context, tx database.Tx, id uuid.UUID) error
}

type Service interface {
	// GetBySerial fetches one book without locking it.
	GetBySerial(ctx context.Context, serial string) (*model.Book, error)

	// List returns books ordered by creation time descending. Offset is
	// clamped to >=0 and limit to [1,500]; a card filter is validated first.
	List(ctx context.Context, f ListFilter) ([]model.Book, error)

	// Add inserts an unborrowed book. Serial uniqueness is not pre-checked;
	// the store's unique index reports the race and it surfaces as
	// ErrDuplicateSerial.
	Add(ctx context.Context, serial, title, author string) (*model.Book, error)

	// Delete removes the book unless it is borrowed and allowIfBorrowed is
	// false.
	Delete(ctx context.Context, serial string, allowIfBorrowed bool) error

	// Borrow marks the book borrowed by card, refusing if already borrowed.
	Borrow(ctx context.Context, serial, card string) (*model.Book, error)

	// Return clears the borrow state, refusing if the book is not borrowed.
	Return(ctx context.Context, serial string) (*model.Book, error)

	// SetStatus is the administrative path. borrowed=true requires a card
	// and overwrites any current borrower without checking the existing
	// state; borrowed=false clears unconditionally. `when` overrides the
	// borrow timestamp when set.
	SetStatus(ctx context.Context, serial string, borrowed bool, card *string, when *time.Time) (*model.Book, error)
}

// ----- Service implementation -----

type service struct {
	db Store
	r  Repo
}

func New(db Store, r Repo) Service { return &service{db: db, r: r} }

func (s *service) GetBySerial(ctx context.Context, serial string) (*model.Book, error) {
	serial, err := validSerial(serial)
	if err != nil {
		return nil, err
	}
	b, err := s.r.GetBySerial(ctx, serial)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrBookNotFound, "book with serial %s not found", serial)
		}
		return nil, err
	}
	return b, nil
}

func (s *service) List(ctx context.Context, f ListFilter) ([]model.Book, error) {
	if f.BorrowerCard != nil {
		card, err := validCard(*f.BorrowerCard)
		if err != nil {
			return nil, err
		}
		f.BorrowerCard = &card
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Limit < 1 {
		f.Limit = 1
	}
	if f.Limit > 500 {
		f.Limit = 500
	}
	return s.r.List(ctx, f)
}

func (s *service) Add(ctx context.Context, serial, title, author string) (*model.Book, error) {
	serial, err := validSerial(serial)
	if err != nil {
		return nil, err
	}
	b := &model.Book{
		ID:           uuid.New(),
		SerialNumber: serial,
		Title:        strings.TrimSpace(title),
		Author:       strings.TrimSpace(author),
	}
	if err := s.r.Insert(ctx, b); err != nil {
		if isUniqueViolation(err) {
			return nil, makeErr(ErrDuplicateSerial, "book with serial %s already exists", serial)
		}
		return nil, err
	}
	return b, nil
}

func (s *service) Delete(ctx context.Context, serial string, allowIfBorrowed bool) (err error) {
	serial, err = validSerial(serial)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	b, err := s.lockBySerial(ctx, tx, serial)
	if err != nil {
		return err
	}
	if b.IsBorrowed && !allowIfBorrowed {
		err = makeErr(ErrAlreadyBorrowed, "book %s is currently borrowed by %s", b.SerialNumber, deref(b.BorrowedBy))
		return err
	}
	if err = s.r.Delete(ctx, tx, b.ID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *service) Borrow(ctx context.Context, serial, card string) (b *model.Book, err error) {
	serial, err = validSerial(serial)
	if err != nil {
		return nil, err
	}
	card, err = validCard(card)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	b, err = s.lockBySerial(ctx, tx, serial)
	if err != nil {
		return nil, err
	}
	if b.IsBorrowed {
		err = makeErr(ErrAlreadyBorrowed, "book %s already borrowed by %s", b.SerialNumber, deref(b.BorrowedBy))
		return nil, err
	}

	now := time.Now().UTC()
	if err = s.r.SetBorrowState(ctx, tx, b.ID, true, &card, &now); err != nil {
		if isFKViolation(err) {
			err = makeErr(ErrUserNotFound, "user with card %s not found", card)
		}
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	b.IsBorrowed = true
	b.BorrowedBy = &card
	b.BorrowedAt = &now
	return b, nil
}

func (s *service) Return(ctx context.Context, serial string) (b *model.Book, err error) {
	serial, err = validSerial(serial)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	b, err = s.lockBySerial(ctx, tx, serial)
	if err != nil {
		return nil, err
	}
	if !b.IsBorrowed {
		err = makeErr(ErrNotBorrowed, "book %s is not currently borrowed", b.SerialNumber)
		return nil, err
	}

	if err = s.r.SetBorrowState(ctx, tx, b.ID, false, nil, nil); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	b.IsBorrowed = false
	b.BorrowedBy = nil
	b.BorrowedAt = nil
	return b, nil
}

func (s *service) SetStatus(ctx context.Context, serial string, borrowed bool, card *string, when *time.Time) (b *model.Book, err error) {
	serial, err = validSerial(serial)
	if err != nil {
		return nil, err
	}
	var borrowedBy string
	if borrowed {
		if card == nil {
			return nil, makeErr(ErrInvalidCard, "%s", identifier.ErrBadCard)
		}
		borrowedBy, err = validCard(*card)
		if err != nil {
			return nil, err
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	b, err = s.lockBySerial(ctx, tx, serial)
	if err != nil {
		return nil, err
	}

	if borrowed {
		// Unlike Borrow, no check of the current state: this path may
		// silently replace the borrower.
		at := time.Now().UTC()
		if when != nil {
			at = when.UTC()
		}
		if err = s.r.SetBorrowState(ctx, tx, b.ID, true, &borrowedBy, &at); err != nil {
			if isFKViolation(err) {
				err = makeErr(ErrUserNotFound, "user with card %s not found", borrowedBy)
			}
			return nil, err
		}
		b.IsBorrowed = true
		b.BorrowedBy = &borrowedBy
		b.BorrowedAt = &at
	} else {
		if err = s.r.SetBorrowState(ctx, tx, b.ID, false, nil, nil); err != nil {
			return nil, err
		}
		b.IsBorrowed = false
		b.BorrowedBy = nil
		b.BorrowedAt = nil
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) lockBySerial(ctx context.Context, tx database.Tx, serial string) (*model.Book, error) {
	b, err := s.r.GetBySerialForUpdate(ctx, tx, serial)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrBookNotFound, "book with serial %s not found", serial)
		}
		return nil, err
	}
	return b, nil
}

func validSerial(s string) (string, error) {
	serial, err := identifier.ValidateSerial(s)
	if err != nil {
		return "", makeErr(ErrInvalidSerial, "%s", err)
	}
	return serial, nil
}

func validCard(c string) (string, error) {
	card, err := identifier.ValidateCard(c)
	if err != nil {
		return "", makeErr(ErrInvalidCard, "%s", err)
	}
	return card, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func isFKViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
