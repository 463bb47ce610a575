package http

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postfeed/auth"
	"postfeed/domain"
	"postfeed/errs"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

var me = &domain.Account{ID: "u1", Email: "me@example.com", ProfileID: "me"}

type fakeUsers struct{}

func (fakeUsers) Signup(ctx context.Context, input *domain.Signup) (*domain.Account, error) {
	if input.Email == "taken@example.com" {
		return nil, errs.Errorf(errs.ECONFLICT, "Email address is already taken.").Field("email", "Email address is already taken.")
	}
	return &domain.Account{ID: "u2", Email: input.Email, ProfileID: "p2"}, nil
}

func (fakeUsers) Login(ctx context.Context, input *domain.Login) (*domain.Account, error) {
	if input.Password != "secret123" {
		return nil, errs.Errorf(errs.EUNAUTHENTICATED, "Invalid email or password.")
	}
	return me, nil
}

func (fakeUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	return email == me.Email, nil
}

type fakeOAuth struct{}

func (fakeOAuth) Connect(ctx context.Context, identity *domain.OAuthIdentity) (*domain.Account, error) {
	return me, nil
}

type fakeFeed struct {
	got    *domain.FeedFilter
	caller *domain.Caller
}

func (f *fakeFeed) List(ctx context.Context, caller *domain.Caller, filter *domain.FeedFilter) (*domain.FeedPage, error) {
	f.got, f.caller = filter, caller
	next := "p2"
	return &domain.FeedPage{Posts: []domain.PostSummary{{ID: "p3"}, {ID: "p2"}}, NextCursor: &next}, nil
}

type fakeToggle map[string]bool

func (f fakeToggle) Toggle(ctx context.Context, caller *domain.Caller, postID string) (bool, error) {
	if postID == "missing" {
		return false, errs.Errorf(errs.ENOTFOUND, "The post does not exist.")
	}
	f[postID] = !f[postID]
	return f[postID], nil
}

type fakePosts struct {
	images []string
}

func (f *fakePosts) Create(ctx context.Context, caller *domain.Caller, input *domain.NewPost) (*domain.Post, error) {
	return &domain.Post{ID: "new", ProfileID: caller.ProfileID, Content: input.Content}, nil
}

func (f *fakePosts) View(ctx context.Context, caller *domain.Caller, postID string) (*domain.PostSummary, error) {
	return &domain.PostSummary{ID: postID, Views: 1}, nil
}

func (f *fakePosts) Owned(ctx context.Context, caller *domain.Caller, postID string) (*domain.Post, error) {
	if postID != "mine" {
		return nil, errs.Errorf(errs.EUNAUTHORIZED, "You can only change your own posts.")
	}
	return &domain.Post{ID: postID, ProfileID: caller.ProfileID}, nil
}

func (f *fakePosts) SetImages(ctx context.Context, caller *domain.Caller, postID string, urls []string) (*domain.PostSummary, error) {
	f.images = urls
	return &domain.PostSummary{ID: postID, ImageURLs: urls, LikeCount: 7, IsLiked: true, IsOwner: true}, nil
}

func (f *fakePosts) Delete(ctx context.Context, caller *domain.Caller, postID string) error {
	_, err := f.Owned(ctx, caller, postID)
	return err
}

type fakeComments struct{}

func (fakeComments) ByPost(ctx context.Context, caller *domain.Caller, postID string) ([]domain.Comment, error) {
	return []domain.Comment{{ID: "c1", PostID: postID, Content: "hi"}}, nil
}

func (fakeComments) Create(ctx context.Context, caller *domain.Caller, input *domain.NewComment) (*domain.Comment, error) {
	return &domain.Comment{ID: "c2", PostID: input.PostID, Content: input.Content}, nil
}

type fakeProfiles struct{}

func (fakeProfiles) ByID(ctx context.Context, caller *domain.Caller, id string) (*domain.Profile, error) {
	return &domain.Profile{ID: id, Username: "ada", PostCount: 2}, nil
}

// fakeImages keeps the urls of stored images. Creating the file named
// reject fails.
type fakeImages struct {
	stored  map[string]bool
	deleted []string
	reject  string
}

func (f *fakeImages) Create(img *domain.Image) error {
	if img.Filename == f.reject {
		return errs.Errorf(errs.EINVALID, "Image %s has an invalid content type.", img.Filename)
	}
	img.URL = "/images/post/" + img.OwnerID + "/" + img.Filename
	f.stored[img.URL] = true
	return nil
}

func (f *fakeImages) ByOwner(ownerType, ownerID string) ([]domain.Image, error) {
	prefix := "/images/" + ownerType + "/" + ownerID + "/"
	var imgs []domain.Image
	for u := range f.stored {
		if strings.HasPrefix(u, prefix) {
			imgs = append(imgs, domain.Image{OwnerType: ownerType, OwnerID: ownerID, Filename: strings.TrimPrefix(u, prefix), URL: u})
		}
	}
	return imgs, nil
}

func (f *fakeImages) Delete(img *domain.Image) error {
	delete(f.stored, img.URL)
	f.deleted = append(f.deleted, img.URL)
	return nil
}

func (f *fakeImages) DeleteAll(ownerType, ownerID string) error {
	imgs, _ := f.ByOwner(ownerType, ownerID)
	for i := range imgs {
		delete(f.stored, imgs[i].URL)
	}
	return nil
}

type testServer struct {
	*Server
	feed   *fakeFeed
	posts  *fakePosts
	images *fakeImages
}

func newTestServer(t *testing.T, cfg Config) *testServer {
	ts := &testServer{feed: &fakeFeed{}, posts: &fakePosts{}, images: &fakeImages{stored: make(map[string]bool)}}
	if cfg.ImagesDir == "" {
		cfg.ImagesDir = t.TempDir()
	}
	ts.Server = NewServer(cfg, Services{
		User:     fakeUsers{},
		OAuth:    fakeOAuth{},
		Profile:  fakeProfiles{},
		Post:     ts.posts,
		Feed:     ts.feed,
		Like:     fakeToggle{},
		Bookmark: fakeToggle{},
		Comment:  fakeComments{},
		Image:    ts.images,
	}, auth.NewSessions(testKey, false), auth.NewProviders("http://api.example", map[string]auth.Credentials{
		domain.ProviderGithub: {ClientID: "id", ClientSecret: "secret"},
	}))
	return ts
}

// call runs a procedure, signed in as me when signedIn is true.
func (ts *testServer) call(t *testing.T, procedure string, body string, signedIn bool) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/rpc/"+procedure, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	if signedIn {
		rec := httptest.NewRecorder()
		require.NoError(t, ts.sessions.Issue(rec, httptest.NewRequest(http.MethodPost, "/", nil), me))
		for _, c := range rec.Result().Cookies() {
			r.AddCookie(c)
		}
	}
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, r)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	var body struct {
		Error errs.Error `json:"error"`
	}
	decodeBody(t, rec, &body)
	return body.Error.Code
}

func TestAuthProcedures(t *testing.T) {
	ts := newTestServer(t, Config{})

	t.Run("signup issues a session", func(t *testing.T) {
		rec := ts.call(t, "auth.signup", `{"email":"new@example.com","password":"secret123"}`, false)
		require.Equal(t, http.StatusOK, rec.Code)
		var acc domain.Account
		decodeBody(t, rec, &acc)
		assert.Equal(t, "p2", acc.ProfileID)

		r := httptest.NewRequest(http.MethodPost, "/rpc/auth.session", nil)
		for _, c := range rec.Result().Cookies() {
			r.AddCookie(c)
		}
		session := httptest.NewRecorder()
		ts.ServeHTTP(session, r)
		var caller domain.Caller
		decodeBody(t, session, &caller)
		assert.Equal(t, "u2", caller.UserID)
		assert.Equal(t, "p2", caller.ProfileID)
	})

	t.Run("signup conflict", func(t *testing.T) {
		rec := ts.call(t, "auth.signup", `{"email":"taken@example.com"}`, false)
		assert.Equal(t, http.StatusConflict, rec.Code)
		var body struct {
			Error errs.Error `json:"error"`
		}
		decodeBody(t, rec, &body)
		assert.Equal(t, errs.ECONFLICT, body.Error.Code)
		assert.Contains(t, body.Error.Fields, "email")
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("login", func(t *testing.T) {
		rec := ts.call(t, "auth.login", `{"email":"me@example.com","password":"secret123"}`, false)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, rec.Result().Cookies(), 1)

		rec = ts.call(t, "auth.login", `{"email":"me@example.com","password":"wrong"}`, false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, errs.EUNAUTHENTICATED, errorCode(t, rec))
	})

	t.Run("email exists", func(t *testing.T) {
		rec := ts.call(t, "auth.emailExists", `{"email":"me@example.com"}`, false)
		var body map[string]bool
		decodeBody(t, rec, &body)
		assert.True(t, body["exists"])
	})

	t.Run("anonymous session", func(t *testing.T) {
		rec := ts.call(t, "auth.session", ``, false)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
	})

	t.Run("constraints and providers", func(t *testing.T) {
		var constraints []domain.Constraint
		decodeBody(t, ts.call(t, "auth.constraints", ``, false), &constraints)
		assert.NotEmpty(t, constraints)

		var providers []string
		decodeBody(t, ts.call(t, "auth.providers", ``, false), &providers)
		assert.Equal(t, []string{"github"}, providers)
	})

	t.Run("logout", func(t *testing.T) {
		rec := ts.call(t, "auth.logout", ``, true)
		assert.Equal(t, http.StatusOK, rec.Code)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.True(t, cookies[0].MaxAge < 0)
	})
}

func TestProtectedProcedures(t *testing.T) {
	ts := newTestServer(t, Config{})
	for _, procedure := range []string{
		"feed.list", "post.create", "post.get", "post.delete", "post.toggleLike",
		"post.toggleBookmark", "post.comments.list", "post.comments.add",
		"post.uploadImages", "profile.get", "auth.logout",
	} {
		rec := ts.call(t, procedure, `{}`, false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, procedure)
		assert.Equal(t, errs.EUNAUTHENTICATED, errorCode(t, rec), procedure)
	}
}

func TestFeedList(t *testing.T) {
	ts := newTestServer(t, Config{})

	rec := ts.call(t, "feed.list", `{"limit":2,"cursor":"p4","orderBy":"trending","onlyBookmarked":true}`, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var page struct {
		Posts      []domain.PostSummary `json:"posts"`
		NextCursor *string              `json:"nextCursor"`
	}
	decodeBody(t, rec, &page)
	require.Len(t, page.Posts, 2)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, "p2", *page.NextCursor)

	assert.Equal(t, &domain.FeedFilter{Limit: 2, Cursor: "p4", OrderBy: "trending", OnlyBookmarked: true}, ts.feed.got)
	assert.Equal(t, "me", ts.feed.caller.ProfileID)
}

func TestToggleProcedures(t *testing.T) {
	ts := newTestServer(t, Config{})

	for _, want := range []bool{true, false} {
		var body map[string]bool
		decodeBody(t, ts.call(t, "post.toggleLike", `{"postId":"X"}`, true), &body)
		assert.Equal(t, want, body["isLiked"])
	}

	var body map[string]bool
	decodeBody(t, ts.call(t, "post.toggleBookmark", `{"postId":"X"}`, true), &body)
	assert.True(t, body["isBookmarked"])

	rec := ts.call(t, "post.toggleLike", `{"postId":"missing"}`, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostProcedures(t *testing.T) {
	ts := newTestServer(t, Config{})

	t.Run("create", func(t *testing.T) {
		var summary domain.PostSummary
		decodeBody(t, ts.call(t, "post.create", `{"content":"hello"}`, true), &summary)
		assert.Equal(t, "hello", summary.Content)
		assert.True(t, summary.IsOwner)
		assert.NotNil(t, summary.ImageURLs)
	})

	t.Run("get", func(t *testing.T) {
		var summary domain.PostSummary
		decodeBody(t, ts.call(t, "post.get", `{"postId":"p1"}`, true), &summary)
		assert.Equal(t, "p1", summary.ID)
	})

	t.Run("delete", func(t *testing.T) {
		var body map[string]bool
		decodeBody(t, ts.call(t, "post.delete", `{"postId":"mine"}`, true), &body)
		assert.True(t, body["success"])

		rec := ts.call(t, "post.delete", `{"postId":"theirs"}`, true)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, errs.EUNAUTHORIZED, errorCode(t, rec))
	})

	t.Run("comments", func(t *testing.T) {
		var comments []domain.Comment
		decodeBody(t, ts.call(t, "post.comments.list", `{"postId":"p1"}`, true), &comments)
		require.Len(t, comments, 1)

		var comment domain.Comment
		decodeBody(t, ts.call(t, "post.comments.add", `{"postId":"p1","content":"nice"}`, true), &comment)
		assert.Equal(t, "nice", comment.Content)
	})

	t.Run("profile", func(t *testing.T) {
		var profile domain.Profile
		decodeBody(t, ts.call(t, "profile.get", `{"profileId":"p9"}`, true), &profile)
		assert.Equal(t, int64(2), profile.PostCount)
	})

	t.Run("invalid json", func(t *testing.T) {
		rec := ts.call(t, "post.create", `{"content":`, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, errs.EINVALID, errorCode(t, rec))
	})

	t.Run("unknown procedure", func(t *testing.T) {
		rec := ts.call(t, "post.edit", `{}`, true)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func pngBytes(t *testing.T) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func uploadRequest(t *testing.T, postID string, files int) *http.Request {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("postId", postID))
	for i := 0; i < files; i++ {
		fw, err := mw.CreateFormFile("images", "pic"+string(rune('a'+i))+".png")
		require.NoError(t, err)
		_, err = fw.Write(pngBytes(t))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	r := httptest.NewRequest(http.MethodPost, "/rpc/post.uploadImages", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestUploadPostImages(t *testing.T) {
	ts := newTestServer(t, Config{})
	send := func(r *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		require.NoError(t, ts.sessions.Issue(rec, httptest.NewRequest(http.MethodPost, "/", nil), me))
		for _, c := range rec.Result().Cookies() {
			r.AddCookie(c)
		}
		out := httptest.NewRecorder()
		ts.ServeHTTP(out, r)
		return out
	}

	t.Run("replaces the previous images", func(t *testing.T) {
		ts.images.stored = map[string]bool{"/images/post/mine/old.png": true}
		ts.images.deleted = nil

		rec := send(uploadRequest(t, "mine", 2))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var summary domain.PostSummary
		decodeBody(t, rec, &summary)
		assert.Equal(t, []string{"/images/post/mine/pica.png", "/images/post/mine/picb.png"}, summary.ImageURLs)
		assert.Equal(t, summary.ImageURLs, ts.posts.images)
		// The summary comes from the post service with its counts intact.
		assert.Equal(t, int64(7), summary.LikeCount)
		assert.True(t, summary.IsLiked)

		assert.Equal(t, []string{"/images/post/mine/old.png"}, ts.images.deleted)
		assert.Equal(t, map[string]bool{
			"/images/post/mine/pica.png": true,
			"/images/post/mine/picb.png": true,
		}, ts.images.stored)
	})

	t.Run("failed upload keeps the previous images", func(t *testing.T) {
		ts.images.stored = map[string]bool{"/images/post/mine/old.png": true}
		ts.images.deleted = nil
		ts.images.reject = "picb.png"
		defer func() { ts.images.reject = "" }()
		ts.posts.images = []string{"/images/post/mine/old.png"}

		rec := send(uploadRequest(t, "mine", 2))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, []string{"/images/post/mine/pica.png"}, ts.images.deleted)
		assert.Equal(t, map[string]bool{"/images/post/mine/old.png": true}, ts.images.stored)
		assert.Equal(t, []string{"/images/post/mine/old.png"}, ts.posts.images)
	})

	t.Run("too many images", func(t *testing.T) {
		rec := send(uploadRequest(t, "mine", 5))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("someone else's post", func(t *testing.T) {
		rec := send(uploadRequest(t, "theirs", 1))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestImageFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "post", "p1"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "post", "p1", "a.png"), pngBytes(t), 0644))
	ts := newTestServer(t, Config{ImagesDir: dir})

	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images/post/p1/a.png", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	ts.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images/post/p1/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOAuthRoutes(t *testing.T) {
	ts := newTestServer(t, Config{ClientURL: "http://client.example"})

	t.Run("login redirects to the provider", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ts.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth/github/login", nil))
		assert.Equal(t, http.StatusFound, rec.Code)
		u, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "github.com", u.Host)
		assert.NotEmpty(t, u.Query().Get("state"))
	})

	t.Run("unknown provider", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ts.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth/google/login", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("callback with a forged state", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ts.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth/github/callback?state=forged&code=abc", nil))
		assert.Equal(t, http.StatusFound, rec.Code)
		u, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "client.example", u.Host)
		assert.NotEmpty(t, u.Query().Get("error"))
	})
}

func TestCSRF(t *testing.T) {
	ts := newTestServer(t, Config{CSRFKey: "0123456789abcdef0123456789abcdef"})

	rec := ts.call(t, "auth.session", ``, false)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	token := rec.Header().Get("X-CSRF-Token")
	assert.Empty(t, token)

	// Safe requests hand out the token.
	get := httptest.NewRecorder()
	ts.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/rpc/auth.session", nil))
	token = get.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, token)

	r := httptest.NewRequest(http.MethodPost, "/rpc/auth.session", nil)
	r.Header.Set("X-CSRF-Token", token)
	for _, c := range get.Result().Cookies() {
		r.AddCookie(c)
	}
	ok := httptest.NewRecorder()
	ts.ServeHTTP(ok, r)
	assert.Equal(t, http.StatusOK, ok.Code)
}
