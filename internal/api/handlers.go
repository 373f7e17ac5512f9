package api

import (
	"log/slog"
	"net/http"

	"github.com/Luks-code/luna-sub000/internal/store"
)

// Server holds the wired collaborators behind the HTTP surface.
type Server struct {
	store store.Store
}

// NewServer creates the HTTP handler layer over the given store.
func NewServer(st store.Store) *Server {
	return &Server{store: st}
}

// Handler returns the routed HTTP handler. The Twilio webhook is attached
// by the caller because only the Twilio transport has one.
func (s *Server) Handler() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /complaints", s.handleListComplaints)
	mux.HandleFunc("GET /complaints/{id}", s.handleComplaintByID)
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, successResponse("healthy"))
}

// handleListComplaints returns the complaints registered for a phone
// number, newest first. The phone query parameter is required: listings
// are always scoped to one reporter.
func (s *Server) handleListComplaints(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		writeJSONResponse(w, http.StatusBadRequest, errorResponse("phone query parameter is required"))
		return
	}

	complaints, err := s.store.FindComplaintsByPhone(phone)
	if err != nil {
		slog.Error("Server.handleListComplaints: store query failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, errorResponse("failed to list complaints"))
		return
	}
	writeJSONResponse(w, http.StatusOK, successResponse(complaints))
}

// handleComplaintByID returns one complaint if it belongs to the given
// phone. An unknown id and someone else's id both answer 404.
func (s *Server) handleComplaintByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		writeJSONResponse(w, http.StatusBadRequest, errorResponse("phone query parameter is required"))
		return
	}

	complaint, err := s.store.FindComplaintByID(id, phone)
	if err != nil {
		slog.Error("Server.handleComplaintByID: store query failed", "error", err, "id", id)
		writeJSONResponse(w, http.StatusInternalServerError, errorResponse("failed to fetch complaint"))
		return
	}
	if complaint == nil {
		writeJSONResponse(w, http.StatusNotFound, errorResponse("complaint not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, successResponse(complaint))
}
