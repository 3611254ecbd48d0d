package handlers

import (
	"net/http"

	"github.com/isdelr/adboard-be/internal/services"
)

// CommentHandler handles HTTP requests for comments on ads.
type CommentHandler struct {
	service services.CommentServiceProvider
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(service services.CommentServiceProvider) *CommentHandler {
	return &CommentHandler{service: service}
}

// CommentPayload is the body of comment create and update requests.
type CommentPayload struct {
	Text string `json:"text" validate:"required,min=8,max=64"`
}

// GetAll lists the comments of an ad.
func (h *CommentHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	adID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	comments, err := h.service.List(r.Context(), adID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// Create adds a comment to an ad.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := actor(w, r)
	if !ok {
		return
	}
	adID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var payload CommentPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	comment, err := h.service.Create(r.Context(), adID, payload.Text, user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

// Update changes the text of a comment.
func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := actor(w, r)
	if !ok {
		return
	}
	adID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	commentID, ok := pathID(w, r, "commentId")
	if !ok {
		return
	}
	var payload CommentPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	comment, err := h.service.Update(r.Context(), adID, commentID, payload.Text, user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

// Delete removes a comment.
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := actor(w, r)
	if !ok {
		return
	}
	adID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	commentID, ok := pathID(w, r, "commentId")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), adID, commentID, user); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
