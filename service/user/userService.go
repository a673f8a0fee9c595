package usersvc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"librarycatalog/model"
	"librarycatalog/util/database"
	"librarycatalog/util/identifier"
)

type ErrCode string

const (
	ErrInvalidCard  ErrCode = "INVALID_CARD_NUMBER"
	ErrUserNotFound ErrCode = "USER_NOT_FOUND"
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

type Store interface {
	Begin(ctx context.Context) (database.Tx, error)
}

type Repo interface {
	ByCard(ctx context.Context, card string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	ClearBorrowedBooks(ctx context.Context, tx database.Tx, card string) (int64, error)
	DeleteByCard(ctx context.Context, tx database.Tx, card string) (bool, error)
}

type Service interface {
	GetByCard(ctx context.Context, card string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)

	// Remove deletes the user and, in the same transaction, resets the
	// borrow state on every book the card still holds. Books referencing
	// the card are never left with a partial borrow triple.
	Remove(ctx context.Context, card string) error
}

type service struct {
	db Store
	r  Repo
}

func New(db Store, r Repo) Service { return &service{db: db, r: r} }

func (s *service) GetByCard(ctx context.Context, card string) (*model.User, error) {
	card, err := validCard(card)
	if err != nil {
		return nil, err
	}
	u, err := s.r.ByCard(ctx, card)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrUserNotFound, "user with card %s not found", card)
		}
		return nil, err
	}
	return u, nil
}

func (s *service) List(ctx context.Context) ([]model.User, error) {
	return s.r.List(ctx)
}

func (s *service) Remove(ctx context.Context, card string) (err error) {
	card, err = validCard(card)
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

	if _, err = s.r.ClearBorrowedBooks(ctx, tx, card); err != nil {
		return err
	}
	deleted, err := s.r.DeleteByCard(ctx, tx, card)
	if err != nil {
		return err
	}
	if !deleted {
		err = makeErr(ErrUserNotFound, "user with card %s not found", card)
		return err
	}
	return tx.Commit()
}

func validCard(c string) (string, error) {
	card, err := identifier.ValidateCard(c)
	if err != nil {
		return "", makeErr(ErrInvalidCard, "%s", err)
	}
	return card, nil
}
