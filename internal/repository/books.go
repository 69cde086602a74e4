package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/book-review-api/internal/domain"
	"github.com/Clark-Hu/book-review-api/internal/store"
)

// BooksRepository provides persistence helpers for book entities.
type BooksRepository struct {
	db   store.DBTX
	kind domain.Kind
}

const bookColumns = `
    id,
    title,
    subtitle,
    orig_title,
    author,
    translator,
    language,
    pub_house,
    pub_year,
    pub_month,
    binding,
    price,
    pages,
    isbn,
    img_url,
    other,
    rating_total_score,
    rating_number,
    is_deleted,
    edited_time,
    created_at
`

// BookListFilters encapsulates search predicates and pagination.
type BookListFilters struct {
	Predicates []Predicate
	Page       Page
}

// BookListResult returns the paginated payload.
type BookListResult struct {
	Items      []domain.Book
	NextCursor *string
}

// Create inserts a new book row with an empty aggregate.
func (r *BooksRepository) Create(ctx context.Context, f domain.BookFields) (domain.Book, error) {
	query := fmt.Sprintf(`
        INSERT INTO %s (title, subtitle, orig_title, author, translator, language, pub_house,
                           pub_year, pub_month, binding, price, pages, isbn, img_url, other)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING %s
    `, r.kind.Table, bookColumns)

	row := r.db.QueryRow(ctx, query, bookArgs(f)...)
	return scanBook(row)
}

// GetByID fetches a live book.
func (r *BooksRepository) GetByID(ctx context.Context, id int64) (domain.Book, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND NOT is_deleted`, bookColumns, r.kind.Table)
	return r.getOne(ctx, query, id)
}

// GetAnyByID fetches a book regardless of its soft-delete flag.
func (r *BooksRepository) GetAnyByID(ctx context.Context, id int64) (domain.Book, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, bookColumns, r.kind.Table)
	return r.getOne(ctx, query, id)
}

// LockByID fetches a live book and holds a row lock until the surrounding
// transaction ends, serializing aggregate read-modify-write cycles.
func (r *BooksRepository) LockByID(ctx context.Context, id int64) (domain.Book, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND NOT is_deleted FOR UPDATE`, bookColumns, r.kind.Table)
	return r.getOne(ctx, query, id)
}

// LockAnyByID is LockByID without the soft-delete filter.
func (r *BooksRepository) LockAnyByID(ctx context.Context, id int64) (domain.Book, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 FOR UPDATE`, bookColumns, r.kind.Table)
	return r.getOne(ctx, query, id)
}

// GetByISBN fetches the book holding an ISBN, in any state.
func (r *BooksRepository) GetByISBN(ctx context.Context, isbn string) (domain.Book, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE isbn = $1`, bookColumns, r.kind.Table)
	return r.getOne(ctx, query, isbn)
}

func (r *BooksRepository) getOne(ctx context.Context, query string, args ...any) (domain.Book, error) {
	book, err := scanBook(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Book{}, ErrNotFound
		}
		return domain.Book{}, err
	}
	return book, nil
}

// Update replaces the catalog fields of a live book and bumps edited_time.
func (r *BooksRepository) Update(ctx context.Context, id int64, f domain.BookFields) (domain.Book, error) {
	query := fmt.Sprintf(`
        UPDATE %s
        SET title = $2, subtitle = $3, orig_title = $4, author = $5, translator = $6,
            language = $7, pub_house = $8, pub_year = $9, pub_month = $10, binding = $11,
            price = $12, pages = $13, isbn = $14, img_url = $15, other = $16,
            edited_time = now()
        WHERE id = $1 AND NOT is_deleted
        RETURNING %s
    `, r.kind.Table, bookColumns)

	args := append([]any{id}, bookArgs(f)...)
	return r.getOne(ctx, query, args...)
}

// SaveAggregate writes the aggregate triple. The stored mean is a read model
// for filtering; total and number stay authoritative.
func (r *BooksRepository) SaveAggregate(ctx context.Context, id int64, agg *domain.Aggregate) error {
	var total, number, tenths *int
	if agg != nil {
		t, n, m := agg.TotalScore, agg.Number, int(agg.Mean())
		total, number, tenths = &t, &n, &m
	}

	query := fmt.Sprintf(`
        UPDATE %s
        SET rating_total_score = $2,
            rating_number = $3,
            rating = ($4::int)::numeric / 10,
            edited_time = now()
        WHERE id = $1
    `, r.kind.Table)
	tag, err := r.db.Exec(ctx, query, id, total, number, tenths)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete flags a live book as deleted.
func (r *BooksRepository) SoftDelete(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`UPDATE %s SET is_deleted = TRUE, edited_time = now() WHERE id = $1 AND NOT is_deleted`, r.kind.Table)
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// HardDelete removes the row in any state; comments cascade.
func (r *BooksRepository) HardDelete(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.kind.Table)
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns live books that match the provided filters.
func (r *BooksRepository) List(ctx context.Context, filters BookListFilters) (BookListResult, error) {
	limit := filters.Page.limit()

	where := []string{"NOT is_deleted"}
	args := make([]any, 0)
	arg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	for _, p := range filters.Predicates {
		where = append(where, p(arg))
	}
	if filters.Page.Cursor != nil {
		where = append(where, fmt.Sprintf("id < %s", arg(filters.Page.Cursor.ID)))
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(bookColumns)
	queryBuilder.WriteString(" FROM ")
	queryBuilder.WriteString(r.kind.Table)
	queryBuilder.WriteString(" WHERE ")
	queryBuilder.WriteString(strings.Join(where, " AND "))
	queryBuilder.WriteString(" ORDER BY id DESC")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT %d", limit))

	rows, err := r.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return BookListResult{}, err
	}
	defer rows.Close()

	items := make([]domain.Book, 0)
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return BookListResult{}, err
		}
		items = append(items, book)
	}
	if err := rows.Err(); err != nil {
		return BookListResult{}, err
	}

	var lastID int64
	if len(items) > 0 {
		lastID = items[len(items)-1].ID
	}
	next, err := nextCursor(len(items), limit, lastID)
	if err != nil {
		return BookListResult{}, err
	}
	return BookListResult{Items: items, NextCursor: next}, nil
}

func bookArgs(f domain.BookFields) []any {
	author := f.Author
	if author == nil {
		author = []string{}
	}
	translator := f.Translator
	if translator == nil {
		translator = []string{}
	}
	language := f.Language
	if language == "" {
		language = "unknown"
	}
	other := f.Other
	if len(other) == 0 {
		other = []byte(`{}`)
	}
	return []any{
		f.Title, f.Subtitle, f.OrigTitle, author, translator, language, f.PubHouse,
		f.PubYear, f.PubMonth, f.Binding, f.Price, f.Pages, f.ISBN, f.ImgURL, string(other),
	}
}

func scanBook(row pgx.Row) (domain.Book, error) {
	var (
		book   domain.Book
		other  []byte
		total  *int32
		number *int32
	)

	err := row.Scan(
		&book.ID,
		&book.Title,
		&book.Subtitle,
		&book.OrigTitle,
		&book.Author,
		&book.Translator,
		&book.Language,
		&book.PubHouse,
		&book.PubYear,
		&book.PubMonth,
		&book.Binding,
		&book.Price,
		&book.Pages,
		&book.ISBN,
		&book.ImgURL,
		&other,
		&total,
		&number,
		&book.IsDeleted,
		&book.EditedTime,
		&book.CreatedAt,
	)
	if err != nil {
		return domain.Book{}, err
	}

	book.Other = other
	agg, err := aggregateFromColumns(total, number)
	if err != nil {
		return domain.Book{}, fmt.Errorf("book %d: %w", book.ID, err)
	}
	book.Aggregate = agg
	return book, nil
}

func aggregateFromColumns(total, number *int32) (*domain.Aggregate, error) {
	if total == nil && number == nil {
		return nil, nil
	}
	if total == nil || number == nil {
		return nil, fmt.Errorf("rating aggregate half present")
	}
	return &domain.Aggregate{TotalScore: int(*total), Number: int(*number)}, nil
}
