package crud

import (
	"context"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"postfeed/domain"
	"postfeed/errs"
)

// PostService manages Posts.
// It implements the domain.PostService interface.
type PostService struct {
	postValidator
}

// postValidator runs validations on incoming Post data.
// On success, it passes the data on to postDB.
// Otherwise, it returns the error of the validation that has failed.
type postValidator struct {
	images domain.ImageService
	postDB
}

type postDB interface {
	ByID(ctx context.Context, id string) (*domain.Post, error)
	Create(ctx context.Context, post *domain.Post, hashtags []string) error
	View(ctx context.Context, id, viewerID string) (*domain.Post, error)
	Aggregated(ctx context.Context, id, viewerID string) (*domain.Post, error)
	UpdateImageURLs(ctx context.Context, post *domain.Post) error
	Delete(ctx context.Context, id string) error
}

// postGorm runs CRUD operations on the database using incoming Post data.
// It assumes that data has been validated.
type postGorm struct {
	db *gorm.DB
}

// NewPostService returns an instance of PostService. Stored images of deleted
// posts are removed through images, which may be nil.
func NewPostService(db *gorm.DB, images domain.ImageService) *PostService {
	return &PostService{
		postValidator{
			images: images,
			postDB: &postGorm{
				db: db,
			},
		},
	}
}

// Ensure the PostService struct properly implements the domain.PostService interface.
var _ domain.PostService = &PostService{}

// Create sanitizes and validates the content, then stores the post together
// with links to the hashtags it mentions.
func (pv *postValidator) Create(ctx context.Context, caller *domain.Caller, input *domain.NewPost) (*domain.Post, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	post := &domain.Post{
		ProfileID: caller.ProfileID,
		Content:   input.Content,
		Published: true,
	}
	err := runPostValFns(post,
		pv.contentSanitize,
		pv.contentValid)
	if err != nil {
		return nil, err
	}
	if err := pv.postDB.Create(ctx, post, extractHashtags(post.Content)); err != nil {
		return nil, err
	}
	return post, nil
}

// View returns a post as seen by the caller and counts the view.
func (pv *postValidator) View(ctx context.Context, caller *domain.Caller, postID string) (*domain.PostSummary, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := validateInput(&domain.PostRef{PostID: postID}); err != nil {
		return nil, err
	}
	post, err := pv.postDB.View(ctx, postID, caller.ProfileID)
	if err != nil {
		return nil, err
	}
	summary := post.Summary(caller.ProfileID)
	return &summary, nil
}

// Owned returns the post if it exists and the caller authored it.
func (pv *postValidator) Owned(ctx context.Context, caller *domain.Caller, postID string) (*domain.Post, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := validateInput(&domain.PostRef{PostID: postID}); err != nil {
		return nil, err
	}
	post, err := pv.postDB.ByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.ProfileID != caller.ProfileID {
		return nil, errs.Errorf(errs.EUNAUTHORIZED, "You can only change your own posts.")
	}
	return post, nil
}

// SetImages replaces the image urls of a post the caller authored.
func (pv *postValidator) SetImages(ctx context.Context, caller *domain.Caller, postID string, urls []string) (*domain.PostSummary, error) {
	post, err := pv.Owned(ctx, caller, postID)
	if err != nil {
		return nil, err
	}
	if len(urls) > domain.MaxPostImages {
		return nil, errs.Errorf(errs.EINVALID, "Too many images, not more than %d allowed.", domain.MaxPostImages).
			Field("images", "Posts can have at most 4 images.")
	}
	post.ImageURLs = urls
	if err := pv.postDB.UpdateImageURLs(ctx, post); err != nil {
		return nil, err
	}
	post, err = pv.postDB.Aggregated(ctx, post.ID, caller.ProfileID)
	if err != nil {
		return nil, err
	}
	summary := post.Summary(caller.ProfileID)
	return &summary, nil
}

// Delete removes a post the caller authored, along with its likes, bookmarks,
// comments and stored images.
func (pv *postValidator) Delete(ctx context.Context, caller *domain.Caller, postID string) error {
	post, err := pv.Owned(ctx, caller, postID)
	if err != nil {
		return err
	}
	if err := pv.postDB.Delete(ctx, post.ID); err != nil {
		return err
	}
	if pv.images != nil {
		if err := pv.images.DeleteAll(domain.OwnerTypePost, post.ID); err != nil {
			log.Printf("[crud] removing images of post %s: %s", post.ID, err)
		}
	}
	return nil
}

// runPostValFns runs any number of functions of type postValFn on the passed in Post object.
// If none of them returns an error, it returns nil. Otherwise, it returns the respective error.
func runPostValFns(post *domain.Post, fns ...postValFn) error {
	for _, fn := range fns {
		if err := fn(post); err != nil {
			return err
		}
	}
	return nil
}

// A postValFn is any function that takes in a pointer to a domain.Post object and returns an error.
type postValFn = func(post *domain.Post) error

// contentSanitize strips markup and surrounding whitespace from the content.
func (pv *postValidator) contentSanitize(post *domain.Post) error {
	post.Content = sanitize(post.Content)
	return nil
}

// contentValid checks the sanitized content against the post constraints.
func (pv *postValidator) contentValid(post *domain.Post) error {
	return validateInput(&domain.NewPost{Content: post.Content})
}

// ByID retrieves a Post database record by ID.
func (pg *postGorm) ByID(ctx context.Context, id string) (*domain.Post, error) {
	var post domain.Post
	err := pg.db.WithContext(ctx).Preload("Profile").Take(&post, "id = ?", id).Error
	if err != nil {
		if errs.ErrorCode(translate(err)) == errs.ENOTFOUND {
			return nil, postNotFound()
		}
		return nil, err
	}
	return &post, nil
}

// Create stores the post and links it to its hashtags, creating the ones
// that don't exist yet. On success the author's profile is loaded.
func (pg *postGorm) Create(ctx context.Context, post *domain.Post, hashtags []string) error {
	err := pg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range hashtags {
			tag := domain.Hashtag{Name: name}
			err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tag).Error
			if err != nil {
				return err
			}
			if tag.ID == 0 {
				if err := tx.Take(&tag, "name = ?", name).Error; err != nil {
					return err
				}
			}
			post.Hashtags = append(post.Hashtags, tag)
		}
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		var profile domain.Profile
		if err := tx.Take(&profile, "id = ?", post.ProfileID).Error; err != nil {
			return err
		}
		post.Profile = &profile
		return nil
	})
	return translate(err)
}

// View increments the view count of a post and returns it with its aggregates.
func (pg *postGorm) View(ctx context.Context, id, viewerID string) (*domain.Post, error) {
	db := pg.db.WithContext(ctx)
	res := db.Model(&domain.Post{}).Where("id = ?", id).UpdateColumn("views", gorm.Expr("views + 1"))
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, postNotFound()
	}
	return pg.Aggregated(ctx, id, viewerID)
}

// Aggregated returns a post with its counts and the viewer's like and
// bookmark state.
func (pg *postGorm) Aggregated(ctx context.Context, id, viewerID string) (*domain.Post, error) {
	var post domain.Post
	err := withAggregates(pg.db.WithContext(ctx).Model(&domain.Post{}), viewerID).
		Preload("Profile").
		Where("posts.id = ?", id).
		Take(&post).Error
	if err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

// UpdateImageURLs saves the image urls of the post.
func (pg *postGorm) UpdateImageURLs(ctx context.Context, post *domain.Post) error {
	return translate(pg.db.WithContext(ctx).Model(post).Select("ImageURLs").Updates(post).Error)
}

// Delete removes the post. Likes, bookmarks and comments go with it through
// their foreign keys, hashtag links are cleared explicitly.
func (pg *postGorm) Delete(ctx context.Context, id string) error {
	err := pg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Post{ID: id}).Association("Hashtags").Clear(); err != nil {
			return err
		}
		res := tx.Delete(&domain.Post{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return postNotFound()
		}
		return nil
	})
	return translate(err)
}
