package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/menutalk/kiku/internal/errors"
	"github.com/menutalk/kiku/internal/middleware"
)

type CreateSessionRequest struct {
	DisplayLanguage string `json:"displayLanguage"`
}

type CreateSessionResponse struct {
	SessionID       string `json:"sessionId"`
	Token           string `json:"token"`
	DisplayLanguage string `json:"displayLanguage"`
}

// HandleCreateSession starts a session and returns its bearer token. The
// body is optional.
func (s *Server) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}

	sess, err := s.sessions.Create(r.Context(), req.DisplayLanguage)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, err := middleware.IssueSessionToken(s.cfg.SessionSecret, sess.ID, s.cfg.Session.TTL)
	if err != nil {
		writeError(w, r, errors.NewInternalError("failed to issue session token", "TOKEN_ERROR", err))
		return
	}

	writeJSON(w, http.StatusCreated, CreateSessionResponse{
		SessionID:       sess.ID,
		Token:           token,
		DisplayLanguage: sess.DisplayLanguage,
	})
}

// sessionID is the authenticated id; SessionAuth already matched it to the path.
func sessionID(r *http.Request) string {
	if id, ok := middleware.GetSessionID(r.Context()); ok {
		return id
	}
	return chi.URLParam(r, "id")
}

func (s *Server) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.sessions.Get(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), sessionID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleExtractMenu reads the uploaded menu photos and returns the first batch.
func (s *Server) HandleExtractMenu(w http.ResponseWriter, r *http.Request) {
	images, err := readImages(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	page, err := s.sessions.Extract(r.Context(), sessionID(r), images, r.FormValue("translatedLanguage"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) HandleLoadNext(w http.ResponseWriter, r *http.Request) {
	page, err := s.sessions.LoadNext(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) HandleProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := s.sessions.Progress(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

type SetQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (s *Server) HandleSetQuantity(w http.ResponseWriter, r *http.Request) {
	var req SetQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Quantity == nil {
		writeError(w, r, errors.NewValidationError("quantity is required", "MISSING_QUANTITY", `Send {"quantity": n}.`))
		return
	}

	view, err := s.sessions.SetQuantity(r.Context(), sessionID(r), chi.URLParam(r, "dishId"), *req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) HandleResetOrder(w http.ResponseWriter, r *http.Request) {
	view, err := s.sessions.ResetAll(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) HandleTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := s.sessions.Totals(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// HandlePlaceOrder answers 204 when nothing was ordered.
func (s *Server) HandlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.sessions.PlaceOrder(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if order == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) HandleTranslateOrder(w http.ResponseWriter, r *http.Request) {
	phrases, err := s.sessions.TranslateOrder(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, phrases)
}

type SetAllergiesRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) HandleSetAllergies(w http.ResponseWriter, r *http.Request) {
	var req SetAllergiesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	view, err := s.sessions.SetAllergies(r.Context(), sessionID(r), req.IDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	phrases, err := s.sessions.Suggestions(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, phrases)
}
