package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chamber/internal/media"
)

type MediaHandler struct {
	store *media.DiskStore
}

func NewMediaHandler(store *media.DiskStore) *MediaHandler {
	return &MediaHandler{store: store}
}

// Serve handles GET /api/media/{kind}/{filename} for finalized payloads.
// Receivers that joined after the broadcast fetch the blob here.
func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	filename := chi.URLParam(r, "filename")

	path, err := h.store.Open(kind, filename)
	if err != nil {
		writeError(w, http.StatusNotFound, "media not found")
		return
	}
	http.ServeFile(w, r, path)
}
