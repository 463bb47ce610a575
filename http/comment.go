package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"postfeed/auth"
	"postfeed/domain"
	"postfeed/errs"
)

// registerCommentRoutes is a helper for registering the comment procedures.
func (s *Server) registerCommentRoutes(r *mux.Router) {
	r.HandleFunc("/post.comments.list", s.requireAuth(s.handleListComments)).Methods("POST")
	r.HandleFunc("/post.comments.add", s.requireAuth(s.handleAddComment)).Methods("POST")
}

// handleListComments handles the procedure "post.comments.list".
func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	var input domain.PostRef
	if err := decode(w, r, &input); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	comments, err := s.cs.ByPost(r.Context(), auth.GetCaller(r.Context()), input.PostID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, comments)
}

// handleAddComment handles the procedure "post.comments.add".
func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var input domain.NewComment
	if err := decode(w, r, &input); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	comment, err := s.cs.Create(r.Context(), auth.GetCaller(r.Context()), &input)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, comment)
}
