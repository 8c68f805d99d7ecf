package api

import (
	"encoding/json"
	"net/http"

	"github.com/dialbridge/dialbridge/internal/metrics"
)

// handleConnectionDetails mints a fresh room credential for the caller and,
// when phoneNumber is present, starts the SIP dial-out into that room.
// Failures return 500 with a plain text message the client shows directly.
// The response carries a short-lived token, so caching is disabled.
func (s *Server) handleConnectionDetails(w http.ResponseWriter, r *http.Request) {
	phoneNumber := r.URL.Query().Get("phoneNumber")

	details, err := s.issuer.IssueConnection(r.Context(), phoneNumber)
	if err != nil {
		s.logger.Error("connection details request failed",
			"dialed", phoneNumber != "",
			"error", err,
		)
		s.metrics.ConnectionsIssued.WithLabelValues(metrics.ResultError).Inc()
		if phoneNumber != "" {
			s.metrics.DialOuts.WithLabelValues(metrics.ResultError).Inc()
		}
		writePlainError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.metrics.ConnectionsIssued.WithLabelValues(metrics.ResultOK).Inc()
	if phoneNumber != "" {
		s.metrics.DialOuts.WithLabelValues(metrics.ResultOK).Inc()
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, details)
}

// deleteRoomRequest is the body of POST /delete-room.
type deleteRoomRequest struct {
	RoomName string `json:"roomName"`
}

// handleDeleteRoom deletes the named room. Deleting a room that no longer
// exists reports success, so clients can fire this on hangup without
// coordinating with other teardown paths.
func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	var req deleteRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoomName == "" {
		writeJSONError(w, http.StatusBadRequest, "Room name is required")
		return
	}

	if err := s.cleaner.Run(r.Context(), req.RoomName); err != nil {
		s.metrics.RoomDeletions.WithLabelValues(metrics.ResultError).Inc()
		writeJSONError(w, http.StatusInternalServerError, "Failed to delete room")
		return
	}

	s.metrics.RoomDeletions.WithLabelValues(metrics.ResultOK).Inc()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Room deleted successfully",
	})
}
