package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"waterqual/internal/analytics"
	"waterqual/internal/auth"
	"waterqual/internal/model"
	"waterqual/internal/pipeline"
	"waterqual/internal/store"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

type predictRequest struct {
	Region string             `json:"region"`
	State  string             `json:"state"`
	Sample map[string]float64 `json:"sample"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"model_available": s.predictor.Available(),
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := s.auth.Register(req.Username, req.Email, req.Password)
	switch {
	case err == nil:
		if s.metrics != nil {
			s.metrics.RegistrationsInc()
		}
		writeJSON(w, http.StatusCreated, u)
	case errors.Is(err, store.ErrDuplicateUsername):
		writeError(w, http.StatusConflict, "username already exists")
	case errors.Is(err, store.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrEmptyField):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg("registration failed")
		writeError(w, http.StatusInternalServerError, "registration failed")
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// The reserved admin identity is checked before the user table and
	// never appears in it.
	if s.auth.IsAdmin(req.Username, req.Password) {
		sess, err := s.sessions.Create("admin", req.Username, true)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "login failed")
			return
		}
		writeJSON(w, http.StatusOK, loginResponse{sess.Token, sess.UserID, sess.Username, true})
		return
	}

	u, err := s.auth.Authenticate(req.Username, req.Password)
	if err != nil {
		if s.metrics != nil {
			s.metrics.AuthFailuresInc()
		}
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	sess, err := s.sessions.Create(u.UserID, u.Username, false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{sess.Token, sess.UserID, sess.Username, false})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)
	s.sessions.Delete(sess.Token)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)
	if sess.IsAdmin {
		writeError(w, http.StatusForbidden, "admin cannot submit samples")
		return
	}

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := s.pipeline.Evaluate(r.Context(), sess.UserID, req.Region, req.State, req.Sample)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, outcome)
	case errors.Is(err, pipeline.ErrInvalidSample),
		errors.Is(err, model.ErrInvalidFeatureSet):
		writeError(w, http.StatusBadRequest, "sample must contain all nine parameters as non-negative numbers")
	case errors.Is(err, pipeline.ErrMissingLocation):
		writeError(w, http.StatusBadRequest, "region and state are required")
	case errors.Is(err, pipeline.ErrUnknownUser):
		writeError(w, http.StatusForbidden, "unknown user")
	default:
		log.Error().Err(err).Msg("prediction request failed")
		writeError(w, http.StatusInternalServerError, "prediction failed")
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)

	preds, err := s.store.PredictionsByUser(sess.UserID)
	if err != nil {
		// Display-only read path degrades to an empty set.
		log.Warn().Err(err).Str("user_id", sess.UserID).Msg("history read failed")
		preds = nil
	}
	if preds == nil {
		preds = []store.Prediction{}
	}
	writeJSON(w, http.StatusOK, preds)
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	meta := s.predictor.Metadata()
	if meta == nil {
		writeJSON(w, http.StatusOK, map[string]any{"available": false, "mode": "fallback"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"available": true, "metadata": meta})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.collectStats())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	table := mux.Vars(r)["table"]

	var export func(*store.Store, io.Writer) error
	switch table {
	case "users":
		export = (*store.Store).ExportUsersCSV
	case "predictions":
		export = (*store.Store).ExportPredictionsCSV
	default:
		writeError(w, http.StatusNotFound, "unknown table")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", table))

	err := export(s.store, w)
	if err != nil {
		// Export writes headers first; all we can do is log.
		log.Error().Err(err).Str("table", table).Msg("export failed")
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.ImportPredictionsCSV(r.Body)
	if err != nil {
		log.Error().Err(err).Msg("import failed")
		writeError(w, http.StatusBadRequest, "import failed; file must match the export layout")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": n})
}

func (s *Server) collectStats() analytics.Stats {
	users, err := s.store.Users()
	if err != nil {
		log.Warn().Err(err).Msg("user table read failed, reporting empty set")
	}
	preds, err := s.store.AllPredictions()
	if err != nil {
		log.Warn().Err(err).Msg("prediction table read failed, reporting empty set")
	}
	return analytics.Compute(users, preds)
}

// sessionKey is the context key carrying the request's session.
type sessionKey struct{}

func sessionFrom(r *http.Request) (Session, bool) {
	s, ok := r.Context().Value(sessionKey{}).(Session)
	return s, ok
}

func contextWithSession(r *http.Request, s Session) context.Context {
	return context.WithValue(r.Context(), sessionKey{}, s)
}

func (s *Server) lookupSession(r *http.Request) (Session, bool) {
	token := r.Header.Get("Authorization")
	token = strings.TrimPrefix(token, "Bearer ")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return Session{}, false
	}
	return s.sessions.Get(token)
}

func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.lookupSession(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}
		next(w, r.WithContext(contextWithSession(r, sess)))
	}
}

func (s *Server) withAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.lookupSession(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}
		if !sess.IsAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r.WithContext(contextWithSession(r, sess)))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("response encode failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
