package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Clark-Hu/book-review-api/internal/domain"
	"github.com/Clark-Hu/book-review-api/internal/service"
)

type commentRequest struct {
	UserID  optional[string] `json:"user_id"`
	Rating  ratingLiteral    `json:"rating"`
	Content optional[string] `json:"content"`

	ID         json.RawMessage `json:"id,omitempty"`
	BookID     json.RawMessage `json:"book_id,omitempty"`
	IsDeleted  json.RawMessage `json:"is_deleted,omitempty"`
	EditedTime json.RawMessage `json:"edited_time,omitempty"`
	CreatedAt  json.RawMessage `json:"created_at,omitempty"`
}

type commentResponse struct {
	ID         int64        `json:"id"`
	BookID     int64        `json:"book_id"`
	UserID     string       `json:"user_id"`
	Rating     *json.Number `json:"rating"`
	Content    string       `json:"content"`
	EditedTime time.Time    `json:"edited_time"`
	CreatedAt  time.Time    `json:"created_at"`
}

type commentListResponse struct {
	Items      []commentResponse `json:"items"`
	NextCursor *string           `json:"nextCursor,omitempty"`
}

type deleteResponse struct {
	Hard bool `json:"hard"`
}

func toCommentResponse(c domain.Comment) commentResponse {
	resp := commentResponse{
		ID:         c.ID,
		BookID:     c.ResourceID,
		UserID:     c.UserID,
		Content:    c.Content,
		EditedTime: c.EditedTime,
		CreatedAt:  c.CreatedAt,
	}
	if c.Rating != nil {
		n := json.Number(c.Rating.String())
		resp.Rating = &n
	}
	return resp
}

func commentIDs(r *http.Request) (int64, int64, error) {
	bookID, err := idParam(r, "bookID")
	if err != nil {
		return 0, 0, err
	}
	commentID, err := idParam(r, "commentID")
	if err != nil {
		return 0, 0, err
	}
	return bookID, commentID, nil
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	bookID, err := idParam(r, "bookID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	page, err := s.pageFromQuery(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	result, err := s.svc.ListComments(r.Context(), bookID, page)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	items := make([]commentResponse, 0, len(result.Items))
	for _, c := range result.Items {
		items = append(items, toCommentResponse(c))
	}
	s.respondJSON(w, http.StatusOK, commentListResponse{Items: items, NextCursor: result.NextCursor})
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	bookID, err := idParam(r, "bookID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	var req commentRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	params := service.CreateCommentParams{
		ResourceID: bookID,
		Rating:     literalOf(req.Rating),
	}
	if req.UserID.Value != nil {
		params.UserID = *req.UserID.Value
	}
	if req.Content.Value != nil {
		params.Content = *req.Content.Value
	}

	comment, err := s.svc.CreateComment(r.Context(), params)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/books/%d/comments/%d", bookID, comment.ID))
	s.respondJSON(w, http.StatusCreated, toCommentResponse(comment))
}

func (s *Server) handleGetComment(w http.ResponseWriter, r *http.Request) {
	bookID, commentID, err := commentIDs(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	comment, err := s.svc.GetComment(r.Context(), bookID, commentID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toCommentResponse(comment))
}

func (s *Server) handleReplaceComment(w http.ResponseWriter, r *http.Request) {
	s.updateComment(w, r, true)
}

func (s *Server) handlePatchComment(w http.ResponseWriter, r *http.Request) {
	s.updateComment(w, r, false)
}

// updateComment leaves the rating untouched when the key is missing, for PUT
// as well as PATCH; an explicit null clears it.
func (s *Server) updateComment(w http.ResponseWriter, r *http.Request, full bool) {
	bookID, commentID, err := commentIDs(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	var req commentRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	comment, err := s.svc.UpdateComment(r.Context(), service.UpdateCommentParams{
		ResourceID: bookID,
		CommentID:  commentID,
		UserID:     optionalString(req.UserID, full),
		Content:    stringField(req.Content, full),
		Rating:     service.RatingChange{Set: req.Rating.Set, Value: literalOf(req.Rating)},
	})
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toCommentResponse(comment))
}

// optionalString leaves user_id alone on PATCH when absent or null. PUT turns
// it into an empty value, which is rejected as missing.
func optionalString(o optional[string], full bool) *string {
	if o.Value != nil {
		return o.Value
	}
	if full {
		empty := ""
		return &empty
	}
	return nil
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	bookID, commentID, err := commentIDs(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	if hardDelete(r) {
		if err := s.svc.HardDeleteComment(r.Context(), bookID, commentID); err != nil {
			s.respondServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := s.svc.SoftDeleteComment(r.Context(), bookID, commentID); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, deleteResponse{Hard: false})
}
