package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"postfeed/auth"
	"postfeed/errs"
)

// registerProfileRoutes is a helper for registering the profile procedures.
func (s *Server) registerProfileRoutes(r *mux.Router) {
	r.HandleFunc("/profile.get", s.requireAuth(s.handleGetProfile)).Methods("POST")
}

// handleGetProfile handles the procedure "profile.get".
// It returns the profile together with its number of posts.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ProfileID string `json:"profileId"`
	}
	if err := decode(w, r, &input); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	profile, err := s.prs.ByID(r.Context(), auth.GetCaller(r.Context()), input.ProfileID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, profile)
}
