package http

import (
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"

	"postfeed/auth"
	"postfeed/domain"
	"postfeed/errs"
)

// Services holds the domain services the http layer hands requests over to.
type Services struct {
	User     domain.UserService
	OAuth    domain.OAuthService
	Profile  domain.ProfileService
	Post     domain.PostService
	Feed     domain.FeedService
	Like     domain.LikeService
	Bookmark domain.BookmarkService
	Comment  domain.CommentService
	Image    domain.ImageService
}

// Config configures a Server.
type Config struct {
	IsProd bool
	// ClientURL is where oauth logins redirect to once they are done.
	ClientURL string
	// CSRFKey enables csrf protection when set. It must be 32 bytes long.
	CSRFKey string
	// ImagesDir is the directory uploaded images are served from.
	ImagesDir string
}

// Server provides the http surface of the app: the rpc procedures, the oauth
// redirects and the uploaded images. It derives the caller of every request
// from its session before handing things over to one of the domain services.
type Server struct {
	router    *mux.Router
	handler   http.Handler
	cfg       Config
	sessions  *auth.Sessions
	providers map[string]*auth.Provider

	us  domain.UserService
	oas domain.OAuthService
	prs domain.ProfileService
	ps  domain.PostService
	fs  domain.FeedService
	ls  domain.LikeService
	bs  domain.BookmarkService
	cs  domain.CommentService
	is  domain.ImageService
}

// NewServer returns a new instance of the server, registers all routes and
// gives their handlers access to the services passed in.
func NewServer(cfg Config, services Services, sessions *auth.Sessions, providers map[string]*auth.Provider) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		cfg:       cfg,
		sessions:  sessions,
		providers: providers,
		us:        services.User,
		oas:       services.OAuth,
		prs:       services.Profile,
		ps:        services.Post,
		fs:        services.Feed,
		ls:        services.Like,
		bs:        services.Bookmark,
		cs:        services.Comment,
		is:        services.Image,
	}

	// Every procedure is a POST to /rpc/<name> with a json body.
	rpc := s.router.PathPrefix("/rpc").Subrouter()
	rpc.Use(setContentTypeJSON)
	s.registerAuthRoutes(rpc)
	s.registerFeedRoutes(rpc)
	s.registerPostRoutes(rpc)
	s.registerLikeRoutes(rpc)
	s.registerCommentRoutes(rpc)
	s.registerImageRoutes(rpc)
	s.registerProfileRoutes(rpc)
	rpc.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errs.ReturnError(w, r, errs.Errorf(errs.ENOTFOUND, "Unknown procedure."))
	})

	s.registerOAuthRoutes(s.router)
	s.registerImageFiles(s.router)

	// Middleware that needs to run on every request, matched or not.
	s.handler = sessions.Load(s.router)
	if cfg.CSRFKey != "" {
		s.handler = s.csrfProtect(s.handler)
	}
	s.handler = logTiming(s.handler)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Run starts to listen and serve on the specified port.
func (s *Server) Run(port int) {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("[http] listening on %s", srv.Addr)
	log.Fatal(srv.ListenAndServe())
}

// csrfProtect wraps next with gorilla/csrf. The token of every response is
// sent in the X-CSRF-Token header, the client echoes it on unsafe requests.
func (s *Server) csrfProtect(next http.Handler) http.Handler {
	opts := []csrf.Option{
		csrf.Secure(s.cfg.IsProd),
		csrf.Path("/"),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			errs.ReturnError(w, r, errs.Errorf(errs.EUNAUTHORIZED, "Invalid CSRF token, please reload the page."))
		})),
	}
	if u, err := url.Parse(s.cfg.ClientURL); err == nil && u.Host != "" {
		opts = append(opts, csrf.TrustedOrigins([]string{u.Host}))
	}
	protect := csrf.Protect([]byte(s.cfg.CSRFKey), opts...)
	exposed := protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CSRF-Token", csrf.Token(r))
		next.ServeHTTP(w, r)
	}))
	if s.cfg.IsProd {
		return exposed
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exposed.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

// The setContentTypeJSON middleware sets the content type to "application/json".
func setContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// logTiming logs how long each procedure took.
func logTiming(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if strings.HasPrefix(r.URL.Path, "/rpc/") {
			log.Printf("[rpc] %s took %s", strings.TrimPrefix(r.URL.Path, "/rpc/"), time.Since(start))
		}
	})
}

// requireAuth rejects requests that carry no session.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if auth.GetCaller(r.Context()) == nil {
			errs.ReturnError(w, r, errs.Errorf(errs.EUNAUTHENTICATED, "You must be signed in to do that."))
			return
		}
		next(w, r)
	}
}
