package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"postfeed/auth"
	"postfeed/domain"
	"postfeed/errs"
)

// registerLikeRoutes is a helper for registering the like and bookmark toggles.
func (s *Server) registerLikeRoutes(r *mux.Router) {
	r.HandleFunc("/post.toggleLike", s.requireAuth(s.handleToggleLike)).Methods("POST")
	r.HandleFunc("/post.toggleBookmark", s.requireAuth(s.handleToggleBookmark)).Methods("POST")
}

// handleToggleLike handles the procedure "post.toggleLike".
// It likes the post if the caller hasn't yet, and unlikes it otherwise.
func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	var input domain.PostRef
	if err := decode(w, r, &input); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	liked, err := s.ls.Toggle(r.Context(), auth.GetCaller(r.Context()), input.PostID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, map[string]bool{"isLiked": liked})
}

// handleToggleBookmark handles the procedure "post.toggleBookmark".
func (s *Server) handleToggleBookmark(w http.ResponseWriter, r *http.Request) {
	var input domain.PostRef
	if err := decode(w, r, &input); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	bookmarked, err := s.bs.Toggle(r.Context(), auth.GetCaller(r.Context()), input.PostID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, map[string]bool{"isBookmarked": bookmarked})
}
