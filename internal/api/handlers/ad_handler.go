package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/isdelr/adboard-be/internal/models"
	"github.com/isdelr/adboard-be/internal/services"
)

// AdHandler handles HTTP requests related to ads.
type AdHandler struct {
	service        services.AdServiceProvider
	maxUploadBytes int64
}

// NewAdHandler creates a new AdHandler.
func NewAdHandler(service services.AdServiceProvider, maxUploadBytes int64) *AdHandler {
	return &AdHandler{service: service, maxUploadBytes: maxUploadBytes}
}

// AdPayload holds the editable fields of an ad.
type AdPayload struct {
	Title       string `json:"title" validate:"required,min=4,max=32"`
	Price       int64  `json:"price" validate:"min=0,max=10000000"`
	Description string `json:"description" validate:"required,min=8,max=64"`
}

func (p AdPayload) fields() models.AdFields {
	return models.AdFields{Title: p.Title, Price: p.Price, Description: p.Description}
}

// GetAll handles the request to list every ad.
func (h *AdHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	ads, err := h.service.ListAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ads)
}

// Create handles a multipart request with a "properties" JSON part and an
// "image" file part.
func (h *AdHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := actor(w, r)
	if !ok {
		return
	}
	if !parseMultipart(w, r, h.maxUploadBytes) {
		return
	}

	props, err := readProperties(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid properties")
		return
	}
	var payload AdPayload
	if err := json.Unmarshal(props, &payload); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid properties")
		return
	}
	if err := validate.Struct(payload); err != nil {
		writeMessage(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	image, err := formImage(r, "image")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid image")
		return
	}

	ad, err := h.service.Create(r.Context(), payload.fields(), image, user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ad)
}

// Get handles the request to get a single ad with its author's details.
func (h *AdHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ad, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ad)
}

// Update handles the request to change an ad's title, price and description.
func (h *AdHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var payload AdPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	ad, err := h.service.Update(r.Context(), id, payload.fields(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ad)
}

// Delete handles the request to delete an ad.
func (h *AdHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id, user); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetMine handles the request to list the caller's ads.
func (h *AdHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	user, ok := actor(w, r)
	if !ok {
		return
	}
	ads, err := h.service.ListMine(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ads)
}

// UpdateImage handles the request to replace an ad's image.
func (h *AdHandler) UpdateImage(w http.ResponseWriter, r *http.Request) {
	user, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if !parseMultipart(w, r, h.maxUploadBytes) {
		return
	}
	image, err := formImage(r, "image")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid image")
		return
	}

	if err := h.service.ReplaceImage(r.Context(), id, image, user); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetImage serves the raw image of an ad.
func (h *AdHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	data, err := h.service.FetchImage(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(data) == 0 {
		writeMessage(w, http.StatusNotFound, "Image not found")
		return
	}
	writeImage(w, data)
}

// readProperties returns the "properties" part, sent either as a plain form
// value or as a file part with application/json content.
func readProperties(r *http.Request) ([]byte, error) {
	if v := r.FormValue("properties"); v != "" {
		return []byte(v), nil
	}
	file, _, err := r.FormFile("properties")
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}
