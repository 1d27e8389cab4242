package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/session"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Responder writes JSON and HTML responses for one handler group
type Responder struct {
	renderer *Renderer
	log      zerolog.Logger
}

// NewResponder creates a responder. renderer may be nil for JSON-only handlers.
func NewResponder(renderer *Renderer, log zerolog.Logger) *Responder {
	return &Responder{renderer: renderer, log: log}
}

// ErrorBody is the JSON shape of every failed request
type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// WantsJSON reports whether the client expects a JSON response
func WantsJSON(r *http.Request) bool {
	return session.WantsJSON(r)
}

// JSON writes data as a JSON response
func (s *Responder) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// Error classifies err and writes {success:false, error, code}. Unexpected
// errors are logged and reported with a generic message.
func (s *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	info := s.classify(r, err)
	s.JSON(w, info.Status, ErrorBody{Success: false, Error: publicMessage(err, info), Code: info.Code})
}

// PlainError classifies err and writes its message as text/plain
func (s *Responder) PlainError(w http.ResponseWriter, r *http.Request, err error) {
	info := s.classify(r, err)
	http.Error(w, publicMessage(err, info), info.Status)
}

// HTML renders page. When rendering fails the client gets a plain 500.
func (s *Responder) HTML(w http.ResponseWriter, r *http.Request, status int, page string, data Page) {
	if data.Username == "" {
		data.Username, _ = session.UserFrom(r.Context())
	}
	if s.renderer == nil {
		s.log.Error().Str("page", page).Msg("No renderer configured")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if err := s.renderer.Render(w, status, page, data); err != nil {
		s.log.Error().Err(err).Str("page", page).Str("request_id", middleware.GetReqID(r.Context())).Msg("Failed to render page")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// HTMLError re-renders page with the classified error message
func (s *Responder) HTMLError(w http.ResponseWriter, r *http.Request, page string, data Page, err error) {
	info := s.classify(r, err)
	data.Error = publicMessage(err, info)
	s.HTML(w, r, info.Status, page, data)
}

// Respond writes data as JSON when the client asked for it, otherwise renders page
func (s *Responder) Respond(w http.ResponseWriter, r *http.Request, page string, data interface{}) {
	if WantsJSON(r) {
		s.JSON(w, http.StatusOK, data)
		return
	}
	s.HTML(w, r, http.StatusOK, page, Page{Data: data})
}

func (s *Responder) classify(r *http.Request, err error) domain.ErrorInfo {
	info := domain.Describe(err)
	if !domain.IsExpected(err) {
		username, _ := session.UserFrom(r.Context())
		s.log.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("username", username).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("Request failed")
	}
	return info
}

// publicMessage is the text shown to the client. Validation failures carry
// their specific reason, everything else the generic message for its code.
func publicMessage(err error, info domain.ErrorInfo) string {
	if !errors.Is(err, domain.ErrValidation) {
		return info.Message
	}
	msg := err.Error()
	prefix := domain.ErrValidation.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return info.Message
}
