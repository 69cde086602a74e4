package domain

import "time"

// Comment is a user's comment on a resource, optionally rated.
type Comment struct {
	ID         int64
	ResourceID int64
	UserID     string
	Rating     *Rating
	Content    string
	IsDeleted  bool
	EditedTime time.Time
	CreatedAt  time.Time
}

// Counted reports whether the comment's rating is part of the resource
// aggregate. Soft-deleted comments were already subtracted.
func (c Comment) Counted() bool {
	return !c.IsDeleted && c.Rating != nil
}

// Kind describes where a commentable resource kind and its comments live.
// Table names are compile-time constants, never user input.
type Kind struct {
	Name          string
	Table         string
	CommentTable  string
	ForeignKey    string
	LiveUniqueKey string
}

// BookKind is the only resource kind today.
var BookKind = Kind{
	Name:          "book",
	Table:         "books",
	CommentTable:  "book_comments",
	ForeignKey:    "book_id",
	LiveUniqueKey: "book_comments_live_user_uniq",
}
