package userrepo

import (
	"context"

	"librarycatalog/model"
	"librarycatalog/util/database"
)

type Repo interface {
	ByCard(ctx context.Context, card string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)

	// ClearBorrowedBooks resets the borrow triple on every book currently
	// held by the card. Must run in the same transaction as DeleteByCard:
	// the books check constraint forbids a half-cleared row, so a bare
	// FK SET NULL could never succeed on a borrowed book.
	ClearBorrowedBooks(ctx context.Context, tx database.Tx, card string) (int64, error)
	DeleteByCard(ctx context.Context, tx database.Tx, card string) (bool, error)
}

type repo struct{ db *database.DB }

func New(db *database.DB) Repo { return &repo{db} }

func (r *repo) ByCard(ctx context.Context, card string) (*model.User, error) {
	const q = `
SELECT id, first_name, last_name, card_number
FROM users
WHERE card_number = $1`
	u := &model.User{}
	err := r.db.SQL.QueryRowContext(ctx, q, card).
		Scan(&u.ID, &u.FirstName, &u.LastName, &u.CardNumber)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *repo) List(ctx context.Context) ([]model.User, error) {
	const q = `
SELECT id, first_name, last_name, card_number
FROM users
ORDER BY card_number`
	rows, err := r.db.SQL.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.CardNumber); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *repo) ClearBorrowedBooks(ctx context.Context, tx database.Tx, card string) (int64, error) {
	const q = `
UPDATE books
SET is_borrowed = FALSE,
    borrowed_by = NULL,
    borrowed_at = NULL,
    updated_at  = now()
WHERE borrowed_by = $1`
	res, err := tx.ExecContext(ctx, q, card)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *repo) DeleteByCard(ctx context.Context, tx database.Tx, card string) (bool, error) {
	const q = `DELETE FROM users WHERE card_number = $1`
	res, err := tx.ExecContext(ctx, q, card)
	if err != nil {
		return false, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return aff > 0, nil
}
