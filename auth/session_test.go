package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postfeed/domain"
	"postfeed/errs"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

// replay returns a request carrying the cookies set on rec.
func replay(rec *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/rpc/auth.session", nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestSessions_IssueAndClear(t *testing.T) {
	s := NewSessions(testKey, false)
	acc := &domain.Account{ID: "u1", Email: "me@example.com", ProfileID: "p1"}

	rec := httptest.NewRecorder()
	require.NoError(t, s.Issue(rec, httptest.NewRequest(http.MethodPost, "/", nil), acc))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	caller := s.Caller(replay(rec))
	require.NotNil(t, caller)
	assert.Equal(t, &domain.Caller{UserID: "u1", Email: "me@example.com", ProfileID: "p1"}, caller)

	cleared := httptest.NewRecorder()
	require.NoError(t, s.Clear(cleared, replay(rec)))
	assert.True(t, cleared.Result().Cookies()[0].MaxAge < 0)
}

func TestSessions_Caller(t *testing.T) {
	s := NewSessions(testKey, false)

	t.Run("no cookie", func(t *testing.T) {
		assert.Nil(t, s.Caller(httptest.NewRequest(http.MethodPost, "/", nil)))
	})

	t.Run("cookie signed with another key", func(t *testing.T) {
		other := NewSessions([]byte("another-key-another-key-another!!"), false)
		rec := httptest.NewRecorder()
		require.NoError(t, other.Issue(rec, httptest.NewRequest(http.MethodPost, "/", nil), &domain.Account{ID: "u1", ProfileID: "p1"}))
		assert.Nil(t, s.Caller(replay(rec)))
	})

	t.Run("tampered cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.AddCookie(&http.Cookie{Name: sessionName, Value: "garbage"})
		assert.Nil(t, s.Caller(r))
	})
}

func TestSessions_Load(t *testing.T) {
	s := NewSessions(testKey, false)
	var got *domain.Caller
	h := s.Load(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetCaller(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Nil(t, got)

	rec := httptest.NewRecorder()
	require.NoError(t, s.Issue(rec, httptest.NewRequest(http.MethodPost, "/", nil), &domain.Account{ID: "u1", ProfileID: "p1"}))
	h.ServeHTTP(httptest.NewRecorder(), replay(rec))
	require.NotNil(t, got)
	assert.Equal(t, "p1", got.ProfileID)
}

func TestSessions_State(t *testing.T) {
	s := NewSessions(testKey, false)

	rec := httptest.NewRecorder()
	state, err := s.NewState(rec, httptest.NewRequest(http.MethodGet, "/oauth/github/login", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, state)

	t.Run("matching state", func(t *testing.T) {
		assert.NoError(t, s.CheckState(httptest.NewRecorder(), replay(rec), state))
	})

	t.Run("wrong state", func(t *testing.T) {
		err := s.CheckState(httptest.NewRecorder(), replay(rec), state+"x")
		assert.Equal(t, errs.EUNAUTHENTICATED, errs.ErrorCode(err))
	})

	t.Run("no state cookie", func(t *testing.T) {
		err := s.CheckState(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), state)
		assert.Equal(t, errs.EUNAUTHENTICATED, errs.ErrorCode(err))
	})
}
