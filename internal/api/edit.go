package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/wander-labs/wander/internal/editor"
)

func (s *Server) editItinerary(w http.ResponseWriter, r *http.Request) {
	var req editor.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONStatus(w, map[string]any{"success": false, "error": "invalid request body"}, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.EditRequest) == "" {
		writeJSONStatus(w, map[string]any{"success": false, "error": "edit_request is required"}, http.StatusBadRequest)
		return
	}

	result, err := s.editor.Process(r.Context(), req)
	if err != nil {
		writeJSONStatus(w, map[string]any{"success": false, "error": err.Error()}, http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, map[string]any{"success": true, "result": result}, http.StatusOK)
}
