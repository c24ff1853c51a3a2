package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/chris/wingman/internal/db"
	"github.com/chris/wingman/internal/ingest"
	"github.com/chris/wingman/internal/llm"
)

// maxBody bounds request bodies, including imported conversation files.
const maxBody = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fail maps a pipeline error onto a status code.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "Profile not found")
	case errors.Is(err, db.ErrProtectedRecord):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, llm.ErrNotConfigured):
		writeError(w, http.StatusBadRequest, "No API key configured for the generation backend")
	case errors.Is(err, ingest.ErrEmptyMessage),
		errors.Is(err, ingest.ErrEmptyConversation),
		errors.Is(err, ingest.ErrMissingIdentity):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error(op, "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decode reads a JSON body into v, answering 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func repliesJSON(replies [3]string) map[string]string {
	return map[string]string{
		"reply_1": replies[0],
		"reply_2": replies[1],
		"reply_3": replies[2],
	}
}
