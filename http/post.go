package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"postfeed/auth"
	"postfeed/domain"
	"postfeed/errs"
)

// registerPostRoutes is a helper for registering all post procedures.
func (s *Server) registerPostRoutes(r *mux.Router) {
	r.HandleFunc("/post.create", s.requireAuth(s.handleCreatePost)).Methods("POST")
	r.HandleFunc("/post.get", s.requireAuth(s.handleGetPost)).Methods("POST")
	r.HandleFunc("/post.delete", s.requireAuth(s.handleDeletePost)).Methods("POST")
}

// handleCreatePost handles the procedure "post.create".
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var input domain.NewPost
	if err := decode(w, r, &input); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	caller := auth.GetCaller(r.Context())
	post, err := s.ps.Create(r.Context(), caller, &input)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, post.Summary(caller.ProfileID))
}

// handleGetPost handles the procedure "post.get".
// It returns a single post as the caller sees it and counts the view.
func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	var input domain.PostRef
	if err := decode(w, r, &input); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	summary, err := s.ps.View(r.Context(), auth.GetCaller(r.Context()), input.PostID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, summary)
}

// handleDeletePost handles the procedure "post.delete".
// Only the author of a post can delete it.
func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	var input domain.PostRef
	if err := decode(w, r, &input); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	if err := s.ps.Delete(r.Context(), auth.GetCaller(r.Context()), input.PostID); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, map[string]bool{"success": true})
}
