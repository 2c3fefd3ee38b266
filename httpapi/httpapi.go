// Package httpapi exposes the Orchestrator over HTTP: one route per
// pipeline entry point (start a session, post a message, read status,
// delete a session). Routing and URL-param extraction are chi's; the
// orchestrator itself has no HTTP awareness.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kadirpekel/studioforge/errs"
	"github.com/kadirpekel/studioforge/orchestrator"
)

// Server wraps an Orchestrator with its HTTP surface.
type Server struct {
	orc *orchestrator.Orchestrator
	log *slog.Logger
}

// New builds a chi router bound to orc.
func New(orc *orchestrator.Orchestrator, log *slog.Logger) http.Handler {
	s := &Server{orc: orc, log: log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.startWorkflow)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Post("/messages", s.processMessage)
		})
	})
	return r
}

type startRequest struct {
	SessionID   string `json:"session_id"`
	UserRequest string `json:"user_request"`
}

func (s *Server) startWorkflow(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.New(errs.UserInputError, "httpapi.start", "decoding request body", err))
		return
	}
	result, err := s.orc.StartWorkflow(r.Context(), req.SessionID, req.UserRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type messageRequest struct {
	Text   string   `json:"text"`
	Images []string `json:"images,omitempty"`
}

func (s *Server) processMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.New(errs.UserInputError, "httpapi.message", "decoding request body", err))
		return
	}
	result, err := s.orc.ProcessMessage(r.Context(), sessionID, req.Text, req.Images)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, err := s.orc.GetSession(sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	deleted, err := s.orc.DeleteSession(sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"deleted": deleted})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the errs.Kind taxonomy to an HTTP status and returns
// only the user-safe message, never the wrapped cause.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var e *errs.Error
	if errors.As(err, &e) {
		switch e.Kind {
		case errs.UserInputError:
			status = http.StatusBadRequest
		case errs.ResourceError:
			status = http.StatusNotFound
		case errs.AdapterTransient:
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, map[string]string{"error": errs.UserSafeMessage(err)})
}
