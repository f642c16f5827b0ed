package handlers

import (
	"net/http"

	"github.com/lahnaomar31/ubo-relay-char/internal/api/middleware"
	"github.com/lahnaomar31/ubo-relay-char/internal/metrics"
)

// maxUploadSize bounds a single uploaded file (8 MiB).
const maxUploadSize = 8 << 20

// UploadResponse carries the public URL of the stored file.
type UploadResponse struct {
	URL string `json:"url"`
}

// Upload accepts a multipart file, stores it in blob storage and returns
// its public URL. The URL is what ends up in a message's image field.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "user not connected")
		return
	}

	if h.blobs == nil {
		h.Error(w, http.StatusServiceUnavailable, "file storage not configured")
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.Error(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		h.Error(w, http.StatusRequestEntityTooLarge, "file too large (max 8 MiB)")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	url, err := h.blobs.Upload(r.Context(), header.Filename, contentType, file)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "file upload failed")
		return
	}

	metrics.Uploads.Inc()
	h.JSON(w, http.StatusOK, UploadResponse{URL: url})
}
