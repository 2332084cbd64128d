package api

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/menutalk/kiku/internal/errors"
	"github.com/menutalk/kiku/internal/services/imagesearch"
)

// ImageSearchRequest asks for one representative photo
type ImageSearchRequest struct {
	Query string `json:"query"`
}

type ImageSearchResponse struct {
	ImageURL string `json:"imageUrl"`
	Query    string `json:"query"`
}

// HandleImageSearch returns the first image result for a dish name. A
// search that finds nothing is a 404, not a failure.
func (s *Server) HandleImageSearch(w http.ResponseWriter, r *http.Request) {
	var req ImageSearchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, r, errors.NewValidationError("query is required", "MISSING_QUERY", "Provide a dish name to search for."))
		return
	}

	if s.images == nil {
		writeError(w, r, errors.NewNotFoundError("image search is not configured", "IMAGE_SEARCH_DISABLED", ""))
		return
	}

	url, err := s.images.Search(r.Context(), query)
	if stderrors.Is(err, imagesearch.ErrNoImage) {
		writeError(w, r, errors.NewNotFoundError("no image found", "NO_IMAGE_FOUND", "The dish will be shown without a photo."))
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ImageSearchResponse{ImageURL: url, Query: query})
}
