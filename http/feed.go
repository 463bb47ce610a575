package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"postfeed/auth"
	"postfeed/domain"
	"postfeed/errs"
)

// registerFeedRoutes is a helper for registering the feed procedure.
func (s *Server) registerFeedRoutes(r *mux.Router) {
	r.HandleFunc("/feed.list", s.requireAuth(s.handleFeedList)).Methods("POST")
}

// handleFeedList handles the procedure "feed.list".
// It returns one page of posts matching the filter, and the cursor of the next page.
func (s *Server) handleFeedList(w http.ResponseWriter, r *http.Request) {
	var filter domain.FeedFilter
	if err := decode(w, r, &filter); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	page, err := s.fs.List(r.Context(), auth.GetCaller(r.Context()), &filter)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, page)
}
