package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/book-review-api/internal/domain"
	"github.com/Clark-Hu/book-review-api/internal/store"
)

// CommentsRepository persists comments of one resource kind. Every read
// except the *Any variants applies the soft-delete filter.
type CommentsRepository struct {
	db   store.DBTX
	kind domain.Kind
}

// ratings travel as half-point integers; postgres does the decimal scaling.
const commentColumns = `
    id,
    %[1]s,
    user_id,
    (rating * 2)::int,
    content,
    is_deleted,
    edited_time,
    created_at
`

// CommentListResult returns the paginated payload.
type CommentListResult struct {
	Items      []domain.Comment
	NextCursor *string
}

func (r *CommentsRepository) columns() string {
	return fmt.Sprintf(commentColumns, r.kind.ForeignKey)
}

// Kind reports the resource kind this repository serves.
func (r *CommentsRepository) Kind() domain.Kind {
	return r.kind
}

// Insert stores a new live comment.
func (r *CommentsRepository) Insert(ctx context.Context, c domain.Comment) (domain.Comment, error) {
	query := fmt.Sprintf(`
        INSERT INTO %s (%s, user_id, rating, content)
        VALUES ($1, $2, ($3::int)::numeric / 2, $4)
        RETURNING %s
    `, r.kind.CommentTable, r.kind.ForeignKey, r.columns())

	return scanComment(r.db.QueryRow(ctx, query, c.ResourceID, c.UserID, halvesArg(c.Rating), c.Content))
}

// GetByID fetches a live comment belonging to resourceID.
func (r *CommentsRepository) GetByID(ctx context.Context, resourceID, id int64) (domain.Comment, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND %s = $2 AND NOT is_deleted`,
		r.columns(), r.kind.CommentTable, r.kind.ForeignKey)
	return r.getOne(ctx, query, id, resourceID)
}

// LockAnyByID fetches a comment in any state and locks its row.
func (r *CommentsRepository) LockAnyByID(ctx context.Context, resourceID, id int64) (domain.Comment, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND %s = $2 FOR UPDATE`,
		r.columns(), r.kind.CommentTable, r.kind.ForeignKey)
	return r.getOne(ctx, query, id, resourceID)
}

func (r *CommentsRepository) getOne(ctx context.Context, query string, args ...any) (domain.Comment, error) {
	comment, err := scanComment(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Comment{}, ErrNotFound
		}
		return domain.Comment{}, err
	}
	return comment, nil
}

// Update rewrites user, rating and content of a live comment.
func (r *CommentsRepository) Update(ctx context.Context, c domain.Comment) (domain.Comment, error) {
	query := fmt.Sprintf(`
        UPDATE %s
        SET user_id = $2, rating = ($3::int)::numeric / 2, content = $4, edited_time = now()
        WHERE id = $1 AND NOT is_deleted
        RETURNING %s
    `, r.kind.CommentTable, r.columns())

	return r.getOne(ctx, query, c.ID, c.UserID, halvesArg(c.Rating), c.Content)
}

// MarkDeleted soft-deletes a live comment.
func (r *CommentsRepository) MarkDeleted(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`UPDATE %s SET is_deleted = TRUE, edited_time = now() WHERE id = $1 AND NOT is_deleted`, r.kind.CommentTable)
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete physically removes a comment in any state.
func (r *CommentsRepository) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.kind.CommentTable)
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListLive returns live comments of a resource, newest first.
func (r *CommentsRepository) ListLive(ctx context.Context, resourceID int64, page Page) (CommentListResult, error) {
	limit := page.limit()
	args := []any{resourceID}
	cursorClause := ""
	if page.Cursor != nil {
		args = append(args, page.Cursor.ID)
		cursorClause = " AND id < $2"
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND NOT is_deleted%s ORDER BY id DESC LIMIT %d`,
		r.columns(), r.kind.CommentTable, r.kind.ForeignKey, cursorClause, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return CommentListResult{}, err
	}
	defer rows.Close()

	items := make([]domain.Comment, 0)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return CommentListResult{}, err
		}
		items = append(items, comment)
	}
	if err := rows.Err(); err != nil {
		return CommentListResult{}, err
	}

	var lastID int64
	if len(items) > 0 {
		lastID = items[len(items)-1].ID
	}
	next, err := nextCursor(len(items), limit, lastID)
	if err != nil {
		return CommentListResult{}, err
	}
	return CommentListResult{Items: items, NextCursor: next}, nil
}

// LiveRatings returns the rating of every live comment of a resource.
func (r *CommentsRepository) LiveRatings(ctx context.Context, resourceID int64) ([]*domain.Rating, error) {
	query := fmt.Sprintf(`SELECT (rating * 2)::int FROM %s WHERE %s = $1 AND NOT is_deleted ORDER BY id`,
		r.kind.CommentTable, r.kind.ForeignKey)
	rows, err := r.db.Query(ctx, query, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ratings []*domain.Rating
	for rows.Next() {
		var halves *int32
		if err := rows.Scan(&halves); err != nil {
			return nil, err
		}
		ratings = append(ratings, ratingFromHalves(halves))
	}
	return ratings, rows.Err()
}

func halvesArg(r *domain.Rating) *int {
	if r == nil {
		return nil
	}
	h := r.Halves()
	return &h
}

func ratingFromHalves(halves *int32) *domain.Rating {
	if halves == nil {
		return nil
	}
	r := domain.Rating(*halves)
	return &r
}

func scanComment(row pgx.Row) (domain.Comment, error) {
	var (
		comment domain.Comment
		halves  *int32
	)
	err := row.Scan(
		&comment.ID,
		&comment.ResourceID,
		&comment.UserID,
		&halves,
		&comment.Content,
		&comment.IsDeleted,
		&comment.EditedTime,
		&comment.CreatedAt,
	)
	if err != nil {
		return domain.Comment{}, err
	}
	comment.Rating = ratingFromHalves(halves)
	return comment, nil
}
