package http

import (
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"postfeed/errs"
)

// registerOAuthRoutes is a helper for registering the oauth redirects. Unlike
// the procedures these are plain GET requests made by the browser.
func (s *Server) registerOAuthRoutes(r *mux.Router) {
	r.HandleFunc("/oauth/{provider}/login", s.handleOAuthLogin).Methods("GET")
	r.HandleFunc("/oauth/{provider}/callback", s.handleOAuthCallback).Methods("GET")
}

// handleOAuthLogin handles the route "GET /oauth/:provider/login".
// It remembers a fresh state token and redirects to the provider's consent page.
func (s *Server) handleOAuthLogin(w http.ResponseWriter, r *http.Request) {
	provider, ok := s.providers[mux.Vars(r)["provider"]]
	if !ok {
		errs.ReturnError(w, r, errs.Errorf(errs.ENOTFOUND, "Unknown sign in provider."))
		return
	}

	state, err := s.sessions.NewState(w, r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusFound)
}

// handleOAuthCallback handles the route "GET /oauth/:provider/callback".
// It checks the state token, fetches the user's identity from the provider,
// connects it to an account and signs that account in. Either way the browser
// ends up back at the client, failures carry an error message in the query.
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider, ok := s.providers[mux.Vars(r)["provider"]]
	if !ok {
		errs.ReturnError(w, r, errs.Errorf(errs.ENOTFOUND, "Unknown sign in provider."))
		return
	}

	query := r.URL.Query()
	if err := s.sessions.CheckState(w, r, query.Get("state")); err != nil {
		s.redirectToClient(w, r, err)
		return
	}

	identity, err := provider.Exchange(r.Context(), query.Get("code"))
	if err != nil {
		s.redirectToClient(w, r, err)
		return
	}

	account, err := s.oas.Connect(r.Context(), identity)
	if err != nil {
		s.redirectToClient(w, r, err)
		return
	}

	if err := s.sessions.Issue(w, r, account); err != nil {
		s.redirectToClient(w, r, err)
		return
	}
	s.redirectToClient(w, r, nil)
}

// redirectToClient sends the browser back to the client app.
func (s *Server) redirectToClient(w http.ResponseWriter, r *http.Request, err error) {
	target := s.cfg.ClientURL
	if target == "" {
		target = "/"
	}
	if err != nil {
		if errs.ErrorCode(err) == errs.EINTERNAL {
			errs.LogError(r, err)
		}
		target += "?" + url.Values{"error": {errs.ErrorMessage(err)}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusFound)
}
