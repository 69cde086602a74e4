package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/Clark-Hu/book-review-api/internal/domain"
	"github.com/Clark-Hu/book-review-api/internal/repository"
)

// BookDetail is a live book with its most recent live comments.
type BookDetail struct {
	Book     domain.Book
	Comments []domain.Comment
}

// BookPatch lists catalog fields to overwrite; nil leaves a field as is.
type BookPatch struct {
	Title      *string
	Subtitle   *string
	OrigTitle  *string
	Author     *[]string
	Translator *[]string
	Language   *string
	PubHouse   *string
	PubYear    **int
	PubMonth   **int
	Binding    *string
	Price      *string
	Pages      **int
	ISBN       *string
	ImgURL     *string
	Other      *json.RawMessage
}

// Apply overlays the patch onto f.
func (p BookPatch) Apply(f domain.BookFields) domain.BookFields {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	setString(&f.Title, p.Title)
	setString(&f.Subtitle, p.Subtitle)
	setString(&f.OrigTitle, p.OrigTitle)
	setString(&f.Language, p.Language)
	setString(&f.PubHouse, p.PubHouse)
	setString(&f.Binding, p.Binding)
	setString(&f.Price, p.Price)
	setString(&f.ISBN, p.ISBN)
	setString(&f.ImgURL, p.ImgURL)
	if p.Author != nil {
		f.Author = *p.Author
	}
	if p.Translator != nil {
		f.Translator = *p.Translator
	}
	if p.PubYear != nil {
		f.PubYear = *p.PubYear
	}
	if p.PubMonth != nil {
		f.PubMonth = *p.PubMonth
	}
	if p.Pages != nil {
		f.Pages = *p.Pages
	}
	if p.Other != nil {
		f.Other = *p.Other
	}
	return f
}

// CreateBook stores a new book with an empty aggregate.
func (s *Service) CreateBook(ctx context.Context, fields domain.BookFields) (domain.Book, error) {
	const op = "create_book"

	fields.Title = strings.TrimSpace(fields.Title)
	fields.ISBN = strings.TrimSpace(fields.ISBN)
	if err := validateBookFields(fields); err != nil {
		return domain.Book{}, s.failed(op, err)
	}

	var created domain.Book
	err := s.mutate(ctx, op, func(repo *repository.Repository) error {
		holder, err := repo.Books.GetByISBN(ctx, fields.ISBN)
		switch {
		case err == nil && holder.IsDeleted:
			return ErrISBNHeldByDeleted
		case err == nil:
			return ErrDuplicateISBN
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}
		created, err = repo.Books.Create(ctx, fields)
		return err
	})
	if err != nil {
		return domain.Book{}, err
	}
	return created, nil
}

// GetBook returns a live book and up to one page of its live comments.
func (s *Service) GetBook(ctx context.Context, id int64, commentLimit int) (BookDetail, error) {
	book, err := s.repo.Books.GetByID(ctx, id)
	if err != nil {
		return BookDetail{}, classify(notFoundAs(err, ErrResourceNotFound), s.kind)
	}
	comments, err := s.repo.Comments.ListLive(ctx, id, repository.Page{Limit: commentLimit})
	if err != nil {
		return BookDetail{}, classify(err, s.kind)
	}
	return BookDetail{Book: book, Comments: comments.Items}, nil
}

// ListBooks returns live books matching the filters.
func (s *Service) ListBooks(ctx context.Context, filters repository.BookListFilters) (repository.BookListResult, error) {
	result, err := s.repo.Books.List(ctx, filters)
	if err != nil {
		return repository.BookListResult{}, classify(err, s.kind)
	}
	return result, nil
}

// UpdateBook overwrites catalog fields of a live book. Aggregate fields are
// not reachable from here.
func (s *Service) UpdateBook(ctx context.Context, id int64, patch BookPatch) (domain.Book, error) {
	var updated domain.Book
	err := s.mutate(ctx, "update_book", func(repo *repository.Repository) error {
		current, err := repo.Books.LockByID(ctx, id)
		if err != nil {
			return notFoundAs(err, ErrResourceNotFound)
		}
		fields := patch.Apply(current.Fields())
		if err := validateBookFields(fields); err != nil {
			return err
		}
		if fields.ISBN != current.ISBN {
			holder, err := repo.Books.GetByISBN(ctx, fields.ISBN)
			switch {
			case err == nil && holder.IsDeleted:
				return ErrISBNHeldByDeleted
			case err == nil:
				return ErrDuplicateISBN
			case !errors.Is(err, repository.ErrNotFound):
				return err
			}
		}
		updated, err = repo.Books.Update(ctx, id, fields)
		return notFoundAs(err, ErrResourceNotFound)
	})
	if err != nil {
		return domain.Book{}, err
	}
	return updated, nil
}

// SoftDeleteBook flags a live book. Its comments are left untouched.
func (s *Service) SoftDeleteBook(ctx context.Context, id int64) error {
	return s.mutate(ctx, "soft_delete_book", func(repo *repository.Repository) error {
		return notFoundAs(repo.Books.SoftDelete(ctx, id), ErrResourceNotFound)
	})
}

// HardDeleteBook removes a book in any state together with its comments.
func (s *Service) HardDeleteBook(ctx context.Context, id int64) error {
	return s.mutate(ctx, "hard_delete_book", func(repo *repository.Repository) error {
		return notFoundAs(repo.Books.HardDelete(ctx, id), ErrResourceNotFound)
	})
}

func validateBookFields(f domain.BookFields) error {
	if f.Title == "" {
		return invalidInput("title is required")
	}
	if f.ISBN == "" {
		return invalidInput("isbn is required")
	}
	for _, c := range []struct {
		name  string
		value string
		max   int
	}{
		{"title", f.Title, 200},
		{"subtitle", f.Subtitle, 200},
		{"orig_title", f.OrigTitle, 200},
		{"language", f.Language, 10},
		{"pub_house", f.PubHouse, 200},
		{"binding", f.Binding, 50},
		{"price", f.Price, 20},
		{"isbn", f.ISBN, 20},
		{"img_url", f.ImgURL, 500},
	} {
		if utf8.RuneCountInString(c.value) > c.max {
			return invalidInput("%s must be at most %d characters", c.name, c.max)
		}
	}
	if f.PubYear != nil && *f.PubYear < 0 {
		return invalidInput("pub_year must be non-negative")
	}
	if f.PubMonth != nil && (*f.PubMonth < 1 || *f.PubMonth > 12) {
		return invalidInput("pub_month must be between 1 and 12")
	}
	if f.Pages != nil && *f.Pages < 0 {
		return invalidInput("pages must be non-negative")
	}
	if len(f.Other) > 0 && !json.Valid(f.Other) {
		return invalidInput("other must be valid JSON")
	}
	return nil
}
