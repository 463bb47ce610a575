package crud

import (
	"context"

	"gorm.io/gorm"

	"postfeed/domain"
)

// LikeService manages Likes.
// It implements the domain.LikeService interface.
type LikeService struct {
	likeValidator
}

// likeValidator runs validations on incoming like toggles.
// On success, it passes them on to toggleDB.
type likeValidator struct {
	toggleDB
}

// NewLikeService returns an instance of LikeService.
func NewLikeService(db *gorm.DB) *LikeService {
	return &LikeService{
		likeValidator{
			toggleDB: &toggleGorm{
				db: db,
				row: func(profileID, postID string) interface{} {
					return &domain.Like{ProfileID: profileID, PostID: postID}
				},
			},
		},
	}
}

// Ensure the LikeService struct properly implements the domain.LikeService interface.
var _ domain.LikeService = &LikeService{}

// Toggle likes the post, or takes the like back if the caller already liked it.
// It reports whether the post is liked afterwards.
func (lv *likeValidator) Toggle(ctx context.Context, caller *domain.Caller, postID string) (bool, error) {
	if err := validateToggle(caller, postID); err != nil {
		return false, err
	}
	return lv.toggleDB.Toggle(ctx, caller.ProfileID, postID)
}

// BookmarkService manages Bookmarks.
// It implements the domain.BookmarkService interface.
type BookmarkService struct {
	bookmarkValidator
}

type bookmarkValidator struct {
	toggleDB
}

// NewBookmarkService returns an instance of BookmarkService.
func NewBookmarkService(db *gorm.DB) *BookmarkService {
	return &BookmarkService{
		bookmarkValidator{
			toggleDB: &toggleGorm{
				db: db,
				row: func(profileID, postID string) interface{} {
					return &domain.Bookmark{ProfileID: profileID, PostID: postID}
				},
			},
		},
	}
}

var _ domain.BookmarkService = &BookmarkService{}

// Toggle bookmarks the post, or removes the bookmark if there is one.
// It reports whether the post is bookmarked afterwards.
func (bv *bookmarkValidator) Toggle(ctx context.Context, caller *domain.Caller, postID string) (bool, error) {
	if err := validateToggle(caller, postID); err != nil {
		return false, err
	}
	return bv.toggleDB.Toggle(ctx, caller.ProfileID, postID)
}

func validateToggle(caller *domain.Caller, postID string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	return validateInput(&domain.PostRef{PostID: postID})
}
