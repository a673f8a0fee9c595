package bookrepo

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"librarycatalog/model"
	"librarycatalog/util/database"
)

const bookColumns = `id, serial_number, title, author, is_borrowed, borrowed_at, borrowed_by, created_at, updated_at`

// ListFilter narrows List. Nil pointers mean "no filter". Offset/Limit are
// clamped by the service before they get here.
type ListFilter struct {
	Borrowed     *bool
	BorrowerCard *string
	Offset       int
	Limit        int
}

type Repo interface {
	GetBySerial(ctx context.Context, serial string) (*model.Book, error)

	// GetBySerialForUpdate fetches the row with an exclusive lock held until
	// the enclosing transaction commits or rolls back, so concurrent
	// transitions on one serial serialize.
	GetBySerialForUpdate(ctx context.Context, tx database.Tx, serial string) (*model.Book, error)

	List(ctx context.Context, f ListFilter) ([]model.Book, error)
	Insert(ctx context.Context, b *model.Book) error
	SetBorrowState(ctx context.Context, tx database.Tx, id uuid.UUID, borrowed bool, card *string, at *time.Time) error
	Delete(ctx context.Context, tx database.Tx, id uuid.UUID) error
}

type repo struct{ db *database.DB }

func New(db *database.DB) Repo { return &repo{db} }

func (r *repo) GetBySerial(ctx context.Context, serial string) (*model.Book, error) {
	const q = `
SELECT ` + bookColumns + `
FROM books
WHERE serial_number = $1`
	var b model.Book
	if err := scanBook(r.db.SQL.QueryRowContext(ctx, q, serial), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repo) GetBySerialForUpdate(ctx context.Context, tx database.Tx, serial string) (*model.Book, error) {
	const q = `
SELECT ` + bookColumns + `
FROM books
WHERE serial_number = $1
FOR UPDATE`
	var b model.Book
	if err := scanBook(tx.QueryRowContext(ctx, q, serial), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repo) List(ctx context.Context, f ListFilter) ([]model.Book, error) {
	var (
		conds []string
		args  []any
	)
	if f.Borrowed != nil {
		args = append(args, *f.Borrowed)
		conds = append(conds, "is_borrowed = $"+strconv.Itoa(len(args)))
	}
	if f.BorrowerCard != nil {
		args = append(args, *f.BorrowerCard)
		conds = append(conds, "borrowed_by = $"+strconv.Itoa(len(args)))
	}

	q := `SELECT ` + bookColumns + ` FROM books`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, f.Offset)
	q += " ORDER BY created_at DESC, id DESC OFFSET $" + strconv.Itoa(len(args))
	args = append(args, f.Limit)
	q += " LIMIT $" + strconv.Itoa(len(args))

	rows, err := r.db.SQL.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Book
	for rows.Next() {
		var b model.Book
		if err := scanBook(rows, &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repo) Insert(ctx context.Context, b *model.Book) error {
	const q = `
INSERT INTO books (id, serial_number, title, author)
VALUES ($1,$2,$3,$4)
RETURNING created_at, updated_at`
	return r.db.SQL.QueryRowContext(ctx, q, b.ID, b.SerialNumber, b.Title, b.Author).
		Scan(&b.CreatedAt, &b.UpdatedAt)
}

// SetBorrowState writes the whole borrow triple at once so the row never
// holds a partial state. Callers pass (true, card, at) or (false, nil, nil).
func (r *repo) SetBorrowState(ctx context.Context, tx database.Tx, id uuid.UUID, borrowed bool, card *string, at *time.Time) error {
	const q = `
UPDATE books
SET is_borrowed = $2,
    borrowed_by = $3,
    borrowed_at = $4,
    updated_at  = now()
WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, id, borrowed, card, at)
	return err
}

func (r *repo) Delete(ctx context.Context, tx database.Tx, id uuid.UUID) error {
	const q = `DELETE FROM books WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, id)
	return err
}

func scanBook(row interface{ Scan(dest ...any) error }, b *model.Book) error {
	return row.Scan(
		&b.ID, &b.SerialNumber, &b.Title, &b.Author,
		&b.IsBorrowed, &b.BorrowedAt, &b.BorrowedBy,
		&b.CreatedAt, &b.UpdatedAt,
	)
}
