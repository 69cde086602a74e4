package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Clark-Hu/book-review-api/internal/domain"
	"github.com/Clark-Hu/book-review-api/internal/repository"
	"github.com/Clark-Hu/book-review-api/internal/service"
)

// bookRequest is shared by POST, PUT and PATCH. Read-only keys are accepted
// so a fetched book can be sent back as is, and then ignored.
type bookRequest struct {
	Title      optional[string]          `json:"title"`
	Subtitle   optional[string]          `json:"subtitle"`
	OrigTitle  optional[string]          `json:"orig_title"`
	Author     optional[[]string]        `json:"author"`
	Translator optional[[]string]        `json:"translator"`
	Language   optional[string]          `json:"language"`
	PubHouse   optional[string]          `json:"pub_house"`
	PubYear    optional[int]             `json:"pub_year"`
	PubMonth   optional[int]             `json:"pub_month"`
	Binding    optional[string]          `json:"binding"`
	Price      optional[string]          `json:"price"`
	Pages      optional[int]             `json:"pages"`
	ISBN       optional[string]          `json:"isbn"`
	ImgURL     optional[string]          `json:"img_url"`
	Other      optional[json.RawMessage] `json:"other"`

	ID           json.RawMessage `json:"id,omitempty"`
	Rating       json.RawMessage `json:"rating,omitempty"`
	RatingNumber json.RawMessage `json:"rating_number,omitempty"`
	IsDeleted    json.RawMessage `json:"is_deleted,omitempty"`
	EditedTime   json.RawMessage `json:"edited_time,omitempty"`
	CreatedAt    json.RawMessage `json:"created_at,omitempty"`
	Comments     json.RawMessage `json:"comments,omitempty"`
}

// patch converts the request; with full set every catalog field is
// overwritten and missing keys become empty.
func (req bookRequest) patch(full bool) service.BookPatch {
	return service.BookPatch{
		Title:      stringField(req.Title, full),
		Subtitle:   stringField(req.Subtitle, full),
		OrigTitle:  stringField(req.OrigTitle, full),
		Author:     valueField(req.Author, full),
		Translator: valueField(req.Translator, full),
		Language:   stringField(req.Language, full),
		PubHouse:   stringField(req.PubHouse, full),
		PubYear:    pointerField(req.PubYear, full),
		PubMonth:   pointerField(req.PubMonth, full),
		Binding:    stringField(req.Binding, full),
		Price:      stringField(req.Price, full),
		Pages:      pointerField(req.Pages, full),
		ISBN:       stringField(req.ISBN, full),
		ImgURL:     stringField(req.ImgURL, full),
		Other:      valueField(req.Other, full),
	}
}

func stringField(o optional[string], full bool) *string {
	return valueField(o, full)
}

func valueField[T any](o optional[T], full bool) *T {
	if !full && !o.Set {
		return nil
	}
	var v T
	if o.Value != nil {
		v = *o.Value
	}
	return &v
}

func pointerField[T any](o optional[T], full bool) **T {
	if !full && !o.Set {
		return nil
	}
	v := o.Value
	return &v
}

type bookResponse struct {
	ID           int64           `json:"id"`
	Title        string          `json:"title"`
	Subtitle     string          `json:"subtitle"`
	OrigTitle    string          `json:"orig_title"`
	Author       []string        `json:"author"`
	Translator   []string        `json:"translator"`
	Language     string          `json:"language"`
	PubHouse     string          `json:"pub_house"`
	PubYear      *int            `json:"pub_year"`
	PubMonth     *int            `json:"pub_month"`
	Binding      string          `json:"binding"`
	Price        string          `json:"price"`
	Pages        *int            `json:"pages"`
	ISBN         string          `json:"isbn"`
	ImgURL       string          `json:"img_url"`
	Other        json.RawMessage `json:"other"`
	Rating       *json.Number    `json:"rating"`
	RatingNumber *int            `json:"rating_number"`
	EditedTime   time.Time       `json:"edited_time"`
	CreatedAt    time.Time       `json:"created_at"`
}

type bookDetailResponse struct {
	bookResponse
	Comments []commentResponse `json:"comments"`
}

type bookListResponse struct {
	Items      []bookResponse `json:"items"`
	NextCursor *string        `json:"nextCursor,omitempty"`
}

type recomputeResponse struct {
	Rating       *json.Number `json:"rating"`
	RatingNumber *int         `json:"rating_number"`
	Drifted      bool         `json:"drifted"`
}

func toBookResponse(b domain.Book) bookResponse {
	resp := bookResponse{
		ID:           b.ID,
		Title:        b.Title,
		Subtitle:     b.Subtitle,
		OrigTitle:    b.OrigTitle,
		Author:       nonNilStrings(b.Author),
		Translator:   nonNilStrings(b.Translator),
		Language:     b.Language,
		PubHouse:     b.PubHouse,
		PubYear:      b.PubYear,
		PubMonth:     b.PubMonth,
		Binding:      b.Binding,
		Price:        b.Price,
		Pages:        b.Pages,
		ISBN:         b.ISBN,
		ImgURL:       b.ImgURL,
		Other:        b.Other,
		Rating:       meanNumber(b.Rating()),
		RatingNumber: b.RatingNumber(),
		EditedTime:   b.EditedTime,
		CreatedAt:    b.CreatedAt,
	}
	if len(resp.Other) == 0 {
		resp.Other = json.RawMessage(`{}`)
	}
	return resp
}

func meanNumber(mean *domain.Tenths) *json.Number {
	if mean == nil {
		return nil
	}
	n := json.Number(mean.String())
	return &n
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

// buildBookFilters resolves query parameters through the filter table.
// Unknown keys are ignored.
func buildBookFilters(query url.Values) ([]repository.Predicate, error) {
	var predicates []repository.Predicate
	for name, values := range query {
		key, ok := repository.ParseBookFilterKey(name)
		if !ok || len(values) == 0 {
			continue
		}
		predicate, err := repository.BuildBookPredicate(key, values[0])
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, predicate)
	}
	return predicates, nil
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	page, err := s.pageFromQuery(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	predicates, err := buildBookFilters(r.URL.Query())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	result, err := s.svc.ListBooks(r.Context(), repository.BookListFilters{Predicates: predicates, Page: page})
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	items := make([]bookResponse, 0, len(result.Items))
	for _, book := range result.Items {
		items = append(items, toBookResponse(book))
	}
	s.respondJSON(w, http.StatusOK, bookListResponse{Items: items, NextCursor: result.NextCursor})
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	book, err := s.svc.CreateBook(r.Context(), req.patch(true).Apply(domain.BookFields{}))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/books/%d", book.ID))
	s.respondJSON(w, http.StatusCreated, toBookResponse(book))
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "bookID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	detail, err := s.svc.GetBook(r.Context(), id, s.cfg.PageSizeMax)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	comments := make([]commentResponse, 0, len(detail.Comments))
	for _, c := range detail.Comments {
		comments = append(comments, toCommentResponse(c))
	}
	s.respondJSON(w, http.StatusOK, bookDetailResponse{
		bookResponse: toBookResponse(detail.Book),
		Comments:     comments,
	})
}

func (s *Server) handleReplaceBook(w http.ResponseWriter, r *http.Request) {
	s.updateBook(w, r, true)
}

func (s *Server) handlePatchBook(w http.ResponseWriter, r *http.Request) {
	s.updateBook(w, r, false)
}

func (s *Server) updateBook(w http.ResponseWriter, r *http.Request, full bool) {
	id, err := idParam(r, "bookID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	var req bookRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	book, err := s.svc.UpdateBook(r.Context(), id, req.patch(full))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toBookResponse(book))
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "bookID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	if hardDelete(r) {
		if err := s.svc.HardDeleteBook(r.Context(), id); err != nil {
			s.respondServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := s.svc.SoftDeleteBook(r.Context(), id); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, deleteResponse{Hard: false})
}

func (s *Server) handleRecomputeRating(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "bookID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	agg, drifted, err := s.svc.RecomputeAggregate(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	recomputed := domain.Resource{ID: id, Aggregate: agg}
	s.respondJSON(w, http.StatusOK, recomputeResponse{
		Rating:       meanNumber(recomputed.Rating()),
		RatingNumber: recomputed.RatingNumber(),
		Drifted:      drifted,
	})
}
