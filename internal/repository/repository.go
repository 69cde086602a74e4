package repository

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/book-review-api/internal/domain"
	"github.com/Clark-Hu/book-review-api/internal/store"
)

// ErrNotFound indicates the requested entity does not exist, or is
// soft-deleted where only live rows qualify.
var ErrNotFound = errors.New("repository: not found")

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Books    *BooksRepository
	Comments *CommentsRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return newRepository(pool)
}

func newRepository(db store.DBTX) *Repository {
	return &Repository{
		Books:    &BooksRepository{db: db, kind: domain.BookKind},
		Comments: &CommentsRepository{db: db, kind: domain.BookKind},
	}
}

// WithTx returns repositories whose queries run inside tx.
func (r *Repository) WithTx(tx store.DBTX) *Repository {
	return newRepository(tx)
}

// Cursor allows stable pagination by descending id.
type Cursor struct {
	ID int64 `json:"id"`
}

// Page bounds a list query.
type Page struct {
	Limit  int
	Cursor *Cursor
}

func (p Page) limit() int {
	switch {
	case p.Limit <= 0:
		return defaultPageSize
	case p.Limit > maxPageSize:
		return maxPageSize
	default:
		return p.Limit
	}
}

func encodeCursor(c Cursor) (string, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(payload), nil
}

// nextCursor returns a token only when the page came back full.
func nextCursor(count, limit int, lastID int64) (*string, error) {
	if count == 0 || count < limit {
		return nil, nil
	}
	token, err := encodeCursor(Cursor{ID: lastID})
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// DecodeCursor parses a cursor token.
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	var cursor Cursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("invalid cursor payload: %w", err)
	}
	if cursor.ID <= 0 {
		return nil, fmt.Errorf("invalid cursor id")
	}
	return &cursor, nil
}
