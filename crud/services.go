package crud

import (
	"gorm.io/gorm"

	"postfeed/domain"
	"postfeed/storage"
)

// A ServicesConfig is any function that takes in a pointer to a Services
// object and returns an error. Each one wraps the constructor of a crud
// service, so that main.go can pick the services it needs as functional options.
type ServicesConfig func(*Services) error

// Services is a container object holding pointers to all the crud services.
// The crud services all share the database connection provided by Services.
type Services struct {
	db       *gorm.DB
	User     *UserService
	OAuth    *OAuthService
	Profile  *ProfileService
	Post     *PostService
	Feed     *FeedService
	Like     *LikeService
	Bookmark *BookmarkService
	Comment  *CommentService
	Image    domain.ImageService
}

// NewServices returns a new Services object, containing any crud services
// it's told to create by one of the passed in ServicesConfig functions.
// It shares the passed in database connection with any crud service it creates.
func NewServices(db *gorm.DB, cfgs ...ServicesConfig) (*Services, error) {
	s := Services{
		db: db,
	}
	for _, cfg := range cfgs {
		if err := cfg(&s); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// WithUser wraps the constructor of UserService, NewUserService.
func WithUser(pepper string) ServicesConfig {
	return func(s *Services) error {
		s.User = NewUserService(s.db, pepper)
		return nil
	}
}

// WithOAuth wraps the constructor of OAuthService, NewOAuthService.
func WithOAuth() ServicesConfig {
	return func(s *Services) error {
		s.OAuth = NewOAuthService(s.db)
		return nil
	}
}

// WithProfile wraps the constructor of ProfileService, NewProfileService.
func WithProfile() ServicesConfig {
	return func(s *Services) error {
		s.Profile = NewProfileService(s.db)
		return nil
	}
}

// WithImage creates the image storage below root. It must come before WithPost,
// so that deleted posts take their images with them.
func WithImage(root string) ServicesConfig {
	return func(s *Services) error {
		s.Image = storage.NewImageService(root)
		return nil
	}
}

// WithPost wraps the constructor of PostService, NewPostService.
func WithPost() ServicesConfig {
	return func(s *Services) error {
		s.Post = NewPostService(s.db, s.Image)
		return nil
	}
}

// WithFeed wraps the constructor of FeedService, NewFeedService.
func WithFeed() ServicesConfig {
	return func(s *Services) error {
		s.Feed = NewFeedService(s.db)
		return nil
	}
}

// WithLike wraps the constructor of LikeService, NewLikeService.
func WithLike() ServicesConfig {
	return func(s *Services) error {
		s.Like = NewLikeService(s.db)
		return nil
	}
}

// WithBookmark wraps the constructor of BookmarkService, NewBookmarkService.
func WithBookmark() ServicesConfig {
	return func(s *Services) error {
		s.Bookmark = NewBookmarkService(s.db)
		return nil
	}
}

// WithComment wraps the constructor of CommentService, NewCommentService.
func WithComment() ServicesConfig {
	return func(s *Services) error {
		s.Comment = NewCommentService(s.db)
		return nil
	}
}
