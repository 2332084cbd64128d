package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/menutalk/kiku/internal/config"
	"github.com/menutalk/kiku/internal/errors"
	"github.com/menutalk/kiku/internal/imaging"
	"github.com/menutalk/kiku/internal/menu"
	"github.com/menutalk/kiku/internal/middleware"
	reporting "github.com/menutalk/kiku/internal/sentry"
	"github.com/menutalk/kiku/internal/services/imagesearch"
	"github.com/menutalk/kiku/internal/services/model"
	"github.com/menutalk/kiku/internal/services/translate"
	"github.com/menutalk/kiku/internal/session"
)

// multipartMemory is how much of an upload is kept in memory before
// spilling to temp files.
const multipartMemory = 32 << 20

// uploadLimit caps the whole request body of image uploads.
const uploadLimit = 100 << 20

type Server struct {
	cfg        *config.Config
	sessions   *session.Service
	translator session.Translator
	images     imagesearch.Searcher
}

// NewServer wires the handlers. images may be nil when image search is
// not configured.
func NewServer(cfg *config.Config, sessions *session.Service, translator session.Translator, images imagesearch.Searcher) *Server {
	return &Server{
		cfg:        cfg,
		sessions:   sessions,
		translator: translator,
		images:     images,
	}
}

// RegisterRoutes mounts every API route on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/allergens", s.HandleAllergens)
		r.Post("/detect-language", s.HandleDetectLanguage)
		r.Post("/translate", s.HandleTranslate)
		r.Post("/image-search", s.HandleImageSearch)

		r.Post("/sessions", s.HandleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Use(middleware.SessionAuth(s.cfg.SessionSecret))

			r.Get("/", s.HandleGetSession)
			r.Delete("/", s.HandleDeleteSession)
			r.Post("/menu", s.HandleExtractMenu)
			r.Post("/menu/next", s.HandleLoadNext)
			r.Get("/progress", s.HandleProgress)
			r.Put("/dishes/{dishId}/quantity", s.HandleSetQuantity)
			r.Post("/order", s.HandlePlaceOrder)
			r.Post("/order/reset", s.HandleResetOrder)
			r.Get("/order/totals", s.HandleTotals)
			r.Post("/order/phrase", s.HandleTranslateOrder)
			r.Put("/allergies", s.HandleSetAllergies)
			r.Get("/suggestions", s.HandleSuggestions)
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}

// writeError renders err and reports it when it is not an expected outcome.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	reporting.CaptureError(r.Context(), err)
	errors.WriteJSON(w, err)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.NewValidationError("invalid request body", "INVALID_BODY", "Send a JSON body.")
	}
	return nil
}

// readImages collects the uploaded files from a multipart form. Both
// "images[]" and "images" field names are accepted.
func readImages(w http.ResponseWriter, r *http.Request) ([]model.Attachment, error) {
	r.Body = http.MaxBytesReader(w, r.Body, uploadLimit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, errors.NewValidationError("invalid multipart upload", "INVALID_UPLOAD", "Send the photos as multipart/form-data.")
	}

	files := r.MultipartForm.File["images[]"]
	if len(files) == 0 {
		files = r.MultipartForm.File["images"]
	}

	out := make([]model.Attachment, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, errors.NewValidationError("unreadable upload", "INVALID_UPLOAD", "Try attaching the photo again.")
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, errors.NewValidationError("unreadable upload", "INVALID_UPLOAD", "Try attaching the photo again.")
		}
		out = append(out, model.Attachment{Data: data, MIMEType: fh.Header.Get("Content-Type")})
	}
	return out, nil
}

func (s *Server) HandleAllergens(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, menu.Allergens)
}

type DetectLanguageResponse struct {
	DetectedLanguage string `json:"detectedLanguage"`
}

func (s *Server) HandleDetectLanguage(w http.ResponseWriter, r *http.Request) {
	images, err := readImages(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	for i, img := range images {
		data, mime, err := imaging.Shrink(img.Data, imaging.DetectMIME(img.Data, img.MIMEType), s.cfg.Images.MaxBytes)
		if err != nil {
			writeError(w, r, err)
			return
		}
		images[i] = model.Attachment{Data: data, MIMEType: mime}
	}

	lang, err := s.translator.DetectLanguage(r.Context(), images)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DetectLanguageResponse{DetectedLanguage: lang})
}

type TranslateRequest struct {
	Phrases      []string `json:"phrases"`
	LanguageHint string   `json:"languageHint"`
}

type TranslateResponse struct {
	TranslatedPhrases []translate.Phrase `json:"translatedPhrases"`
}

func (s *Server) HandleTranslate(w http.ResponseWriter, r *http.Request) {
	var req TranslateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	phrases, err := s.translator.Translate(r.Context(), req.Phrases, req.LanguageHint)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TranslateResponse{TranslatedPhrases: phrases})
}
