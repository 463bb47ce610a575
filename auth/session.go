package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"postfeed/domain"
	"postfeed/errs"
)

const (
	sessionName   = "postfeed_session"
	stateName     = "postfeed_oauth_state"
	sessionMaxAge = 30 * 24 * 60 * 60
	stateMaxAge   = 10 * 60
)

// Sessions issues and reads the signed session cookies. The cookie only holds
// the caller identity, so there is no server side session state.
type Sessions struct {
	store *sessions.CookieStore
	state *sessions.CookieStore
}

// NewSessions returns Sessions signing its cookies with hashKey. Cookies are
// marked Secure when secure is true, which should be the case in production.
func NewSessions(hashKey []byte, secure bool) *Sessions {
	return &Sessions{
		store: newCookieStore(hashKey, sessionMaxAge, secure),
		state: newCookieStore(hashKey, stateMaxAge, secure),
	}
}

func newCookieStore(hashKey []byte, maxAge int, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(hashKey)
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(maxAge)
	return store
}

// Issue signs the account in by writing a session cookie for it.
func (s *Sessions) Issue(w http.ResponseWriter, r *http.Request, account *domain.Account) error {
	// A cookie that fails to decode still yields a fresh session, which gets overwritten.
	session, _ := s.store.Get(r, sessionName)
	session.Values["user_id"] = account.ID
	session.Values["email"] = account.Email
	session.Values["profile_id"] = account.ProfileID
	session.Options.MaxAge = sessionMaxAge
	return session.Save(r, w)
}

// Caller returns the caller of the session cookie sent with r, or nil if the
// request has no valid session.
func (s *Sessions) Caller(r *http.Request) *domain.Caller {
	session, err := s.store.Get(r, sessionName)
	if err != nil || session.IsNew {
		return nil
	}
	caller := &domain.Caller{}
	caller.UserID, _ = session.Values["user_id"].(string)
	caller.Email, _ = session.Values["email"].(string)
	caller.ProfileID, _ = session.Values["profile_id"].(string)
	if !caller.Valid() {
		return nil
	}
	return caller
}

// Clear signs the caller out by expiring the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.store.Get(r, sessionName)
	session.Values = make(map[interface{}]interface{})
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// Load is a middleware that puts the caller of the request's session into
// the request context. Requests without a session pass through untouched.
func (s *Sessions) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if caller := s.Caller(r); caller != nil {
			r = r.WithContext(SetCaller(r.Context(), caller))
		}
		next.ServeHTTP(w, r)
	})
}

// NewState generates an oauth state token and remembers it in a short lived
// cookie, to be checked by CheckState once the provider redirects back.
func (s *Sessions) NewState(w http.ResponseWriter, r *http.Request) (string, error) {
	key := securecookie.GenerateRandomKey(32)
	if key == nil {
		return "", errors.New("auth: generating oauth state failed")
	}
	state := base64.RawURLEncoding.EncodeToString(key)
	session, _ := s.state.Get(r, stateName)
	session.Values["state"] = state
	session.Options.MaxAge = stateMaxAge
	if err := session.Save(r, w); err != nil {
		return "", err
	}
	return state, nil
}

// CheckState compares got with the state remembered by NewState. The state
// cookie is consumed either way.
func (s *Sessions) CheckState(w http.ResponseWriter, r *http.Request, got string) error {
	session, err := s.state.Get(r, stateName)
	want, _ := session.Values["state"].(string)
	session.Values = make(map[interface{}]interface{})
	session.Options.MaxAge = -1
	if saveErr := session.Save(r, w); saveErr != nil {
		return saveErr
	}
	if err != nil || want == "" || got == "" || subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
		return errs.Errorf(errs.EUNAUTHENTICATED, "The sign in request expired, please try again.")
	}
	return nil
}
