package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"postfeed/auth"
	"postfeed/domain"
	"postfeed/errs"
)

// registerAuthRoutes is a helper for registering all auth procedures.
func (s *Server) registerAuthRoutes(r *mux.Router) {
	r.HandleFunc("/auth.signup", s.handleSignup).Methods("POST")
	r.HandleFunc("/auth.login", s.handleLogin).Methods("POST")
	r.HandleFunc("/auth.emailExists", s.handleEmailExists).Methods("POST")
	r.HandleFunc("/auth.session", s.handleSession).Methods("POST")
	r.HandleFunc("/auth.constraints", s.handleConstraints).Methods("POST")
	r.HandleFunc("/auth.providers", s.handleProviders).Methods("POST")
	r.HandleFunc("/auth.logout", s.requireAuth(s.handleLogout)).Methods("POST")
}

// handleSignup handles the procedure "auth.signup".
// It creates a new user with its profile and signs the user in.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var input domain.Signup
	if err := decode(w, r, &input); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	account, err := s.us.Signup(r.Context(), &input)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	// The account exists at this point, a failing cookie only means the
	// user has to log in by hand.
	if err := s.sessions.Issue(w, r, account); err != nil {
		errs.LogError(r, err)
	}
	respond(w, r, account)
}

// handleLogin handles the procedure "auth.login".
// It checks the credentials and signs the user in.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var input domain.Login
	if err := decode(w, r, &input); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	account, err := s.us.Login(r.Context(), &input)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	if err := s.sessions.Issue(w, r, account); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, account)
}

// handleEmailExists handles the procedure "auth.emailExists".
func (s *Server) handleEmailExists(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email string `json:"email"`
	}
	if err := decode(w, r, &input); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	exists, err := s.us.EmailExists(r.Context(), input.Email)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, map[string]bool{"exists": exists})
}

// handleSession handles the procedure "auth.session".
// It returns the caller of the request, or null if there is none.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	respond(w, r, auth.GetCaller(r.Context()))
}

// handleConstraints handles the procedure "auth.constraints".
// It returns the field constraints the server validates input against.
func (s *Server) handleConstraints(w http.ResponseWriter, r *http.Request) {
	respond(w, r, domain.ConstraintList())
}

// handleProviders handles the procedure "auth.providers".
// It returns the names of the oauth providers users can sign in with.
func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	respond(w, r, auth.ProviderNames(s.providers))
}

// handleLogout handles the procedure "auth.logout".
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Clear(w, r); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, map[string]bool{"success": true})
}
