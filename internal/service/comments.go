package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Clark-Hu/book-review-api/internal/domain"
	"github.com/Clark-Hu/book-review-api/internal/repository"
)

const maxUserIDLength = 200

// CreateCommentParams carries a new comment. Rating is the decimal literal
// as received, nil when no rating was given.
type CreateCommentParams struct {
	ResourceID int64
	UserID     string
	Rating     *string
	Content    string
}

// RatingChange distinguishes "not provided" from "explicitly cleared".
type RatingChange struct {
	Set   bool
	Value *string
}

// UpdateCommentParams carries a comment update; nil fields stay unchanged.
type UpdateCommentParams struct {
	ResourceID int64
	CommentID  int64
	UserID     *string
	Content    *string
	Rating     RatingChange
}

// CreateComment validates the rating, adds it to the resource aggregate and
// stores the comment, all or nothing.
func (s *Service) CreateComment(ctx context.Context, p CreateCommentParams) (domain.Comment, error) {
	const op = "create_comment"

	rating, err := domain.ParseOptionalRating(p.Rating)
	if err != nil {
		return domain.Comment{}, s.failed(op, err)
	}
	userID, err := validateUserID(p.UserID)
	if err != nil {
		return domain.Comment{}, s.failed(op, err)
	}

	var created domain.Comment
	err = s.mutate(ctx, op, func(repo *repository.Repository) error {
		resource, err := repo.Books.LockByID(ctx, p.ResourceID)
		if err != nil {
			return notFoundAs(err, ErrResourceNotFound)
		}

		if err := saveIfChanged(ctx, repo, resource, domain.OnCommentCreated(resource.Aggregate, rating)); err != nil {
			return err
		}

		created, err = repo.Comments.Insert(ctx, domain.Comment{
			ResourceID: resource.ID,
			UserID:     userID,
			Rating:     rating,
			Content:    p.Content,
		})
		return err
	})
	if err != nil {
		return domain.Comment{}, err
	}
	return created, nil
}

// UpdateComment applies the rating delta of a live comment together with its
// new fields.
func (s *Service) UpdateComment(ctx context.Context, p UpdateCommentParams) (domain.Comment, error) {
	const op = "update_comment"

	var newRating *domain.Rating
	if p.Rating.Set {
		r, err := domain.ParseOptionalRating(p.Rating.Value)
		if err != nil {
			return domain.Comment{}, s.failed(op, err)
		}
		newRating = r
	}
	var userID *string
	if p.UserID != nil {
		id, err := validateUserID(*p.UserID)
		if err != nil {
			return domain.Comment{}, s.failed(op, err)
		}
		userID = &id
	}

	var updated domain.Comment
	err := s.mutate(ctx, op, func(repo *repository.Repository) error {
		resource, err := repo.Books.LockByID(ctx, p.ResourceID)
		if err != nil {
			return notFoundAs(err, ErrResourceNotFound)
		}
		comment, err := repo.Comments.LockAnyByID(ctx, resource.ID, p.CommentID)
		if err != nil {
			return notFoundAs(err, ErrCommentNotFound)
		}
		if comment.IsDeleted {
			return ErrCommentNotFound
		}

		next := comment
		if p.Rating.Set {
			next.Rating = newRating
			agg := domain.OnCommentRatingChanged(resource.Aggregate, comment.Rating, newRating)
			if err := saveIfChanged(ctx, repo, resource, agg); err != nil {
				return err
			}
		}
		if userID != nil {
			next.UserID = *userID
		}
		if p.Content != nil {
			next.Content = *p.Content
		}

		updated, err = repo.Comments.Update(ctx, next)
		return notFoundAs(err, ErrCommentNotFound)
	})
	if err != nil {
		return domain.Comment{}, err
	}
	return updated, nil
}

// SoftDeleteComment removes a live comment from the aggregate and flags it.
// An already soft-deleted comment is reported as not found.
func (s *Service) SoftDeleteComment(ctx context.Context, resourceID, commentID int64) error {
	return s.mutate(ctx, "soft_delete_comment", func(repo *repository.Repository) error {
		resource, err := repo.Books.LockByID(ctx, resourceID)
		if err != nil {
			return notFoundAs(err, ErrResourceNotFound)
		}
		comment, err := repo.Comments.LockAnyByID(ctx, resource.ID, commentID)
		if err != nil {
			return notFoundAs(err, ErrCommentNotFound)
		}
		if comment.IsDeleted {
			return ErrCommentNotFound
		}

		if err := saveIfChanged(ctx, repo, resource, domain.OnCommentRemoved(resource.Aggregate, comment.Rating)); err != nil {
			return err
		}
		return notFoundAs(repo.Comments.MarkDeleted(ctx, comment.ID), ErrCommentNotFound)
	})
}

// HardDeleteComment physically removes a comment in any state, and works on
// soft-deleted resources too. The rating of a soft-deleted comment was
// subtracted when it was flagged, so it is not subtracted again.
func (s *Service) HardDeleteComment(ctx context.Context, resourceID, commentID int64) error {
	return s.mutate(ctx, "hard_delete_comment", func(repo *repository.Repository) error {
		resource, err := repo.Books.LockAnyByID(ctx, resourceID)
		if err != nil {
			return notFoundAs(err, ErrResourceNotFound)
		}
		comment, err := repo.Comments.LockAnyByID(ctx, resource.ID, commentID)
		if err != nil {
			return notFoundAs(err, ErrCommentNotFound)
		}

		if comment.IsDeleted {
			s.logger.Info("hard-deleting soft-deleted comment, aggregate already adjusted",
				"resource_id", resource.ID, "comment_id", comment.ID)
		} else if comment.Counted() {
			if err := saveIfChanged(ctx, repo, resource, domain.OnCommentRemoved(resource.Aggregate, comment.Rating)); err != nil {
				return err
			}
		}
		return notFoundAs(repo.Comments.Delete(ctx, comment.ID), ErrCommentNotFound)
	})
}

// GetComment returns a live comment of a live resource.
func (s *Service) GetComment(ctx context.Context, resourceID, commentID int64) (domain.Comment, error) {
	if _, err := s.repo.Books.GetByID(ctx, resourceID); err != nil {
		return domain.Comment{}, classify(notFoundAs(err, ErrResourceNotFound), s.kind)
	}
	comment, err := s.repo.Comments.GetByID(ctx, resourceID, commentID)
	if err != nil {
		return domain.Comment{}, classify(notFoundAs(err, ErrCommentNotFound), s.kind)
	}
	return comment, nil
}

// ListComments pages through the live comments of a live resource.
func (s *Service) ListComments(ctx context.Context, resourceID int64, page repository.Page) (repository.CommentListResult, error) {
	if _, err := s.repo.Books.GetByID(ctx, resourceID); err != nil {
		return repository.CommentListResult{}, classify(notFoundAs(err, ErrResourceNotFound), s.kind)
	}
	result, err := s.repo.Comments.ListLive(ctx, resourceID, page)
	if err != nil {
		return repository.CommentListResult{}, classify(err, s.kind)
	}
	return result, nil
}

// RecomputeAggregate rebuilds a resource aggregate from its live comments and
// reports whether the stored one had drifted.
func (s *Service) RecomputeAggregate(ctx context.Context, resourceID int64) (*domain.Aggregate, bool, error) {
	var (
		fresh   *domain.Aggregate
		drifted bool
	)
	err := s.mutate(ctx, "recompute_aggregate", func(repo *repository.Repository) error {
		resource, err := repo.Books.LockAnyByID(ctx, resourceID)
		if err != nil {
			return notFoundAs(err, ErrResourceNotFound)
		}
		ratings, err := repo.Comments.LiveRatings(ctx, resource.ID)
		if err != nil {
			return err
		}
		fresh = domain.Recompute(ratings)
		drifted = !aggregateEqual(resource.Aggregate, fresh)
		if drifted {
			s.logger.Warn("aggregate drift repaired", "resource_id", resource.ID,
				"stored", resource.Aggregate, "recomputed", fresh)
			return repo.Books.SaveAggregate(ctx, resource.ID, fresh)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return fresh, drifted, nil
}

func saveIfChanged(ctx context.Context, repo *repository.Repository, resource domain.Book, agg *domain.Aggregate) error {
	if aggregateEqual(resource.Aggregate, agg) {
		return nil
	}
	if agg != nil {
		if err := agg.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrRatingOutOfRange, err)
		}
	}
	return notFoundAs(repo.Books.SaveAggregate(ctx, resource.ID, agg), ErrResourceNotFound)
}

func aggregateEqual(a, b *domain.Aggregate) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func validateUserID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", invalidInput("user_id is required")
	}
	if utf8.RuneCountInString(id) > maxUserIDLength {
		return "", invalidInput("user_id must be at most %d characters", maxUserIDLength)
	}
	return id, nil
}
