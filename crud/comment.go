package crud

import (
	"context"

	"gorm.io/gorm"

	"postfeed/domain"
)

// CommentService manages Comments.
// It implements the domain.CommentService interface.
type CommentService struct {
	commentValidator
}

type commentValidator struct {
	commentDB
}

type commentDB interface {
	ByPost(ctx context.Context, postID string) ([]domain.Comment, error)
	Create(ctx context.Context, comment *domain.Comment) error
}

type commentGorm struct {
	db *gorm.DB
}

// NewCommentService returns an instance of CommentService.
func NewCommentService(db *gorm.DB) *CommentService {
	return &CommentService{
		commentValidator{
			commentDB: &commentGorm{
				db: db,
			},
		},
	}
}

var _ domain.CommentService = &CommentService{}

// ByPost returns the comments of a post, newest first.
func (cv *commentValidator) ByPost(ctx context.Context, caller *domain.Caller, postID string) ([]domain.Comment, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := validateInput(&domain.PostRef{PostID: postID}); err != nil {
		return nil, err
	}
	return cv.commentDB.ByPost(ctx, postID)
}

// Create adds a comment by the caller to a post.
func (cv *commentValidator) Create(ctx context.Context, caller *domain.Caller, input *domain.NewComment) (*domain.Comment, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	input.Content = sanitize(input.Content)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	comment := &domain.Comment{
		PostID:    input.PostID,
		ProfileID: caller.ProfileID,
		Content:   input.Content,
	}
	if err := cv.commentDB.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// ByPost retrieves the comments of a post along with their authors.
func (cg *commentGorm) ByPost(ctx context.Context, postID string) ([]domain.Comment, error) {
	db := cg.db.WithContext(ctx)
	found, err := exists(db.Model(&domain.Post{}).Where("id = ?", postID))
	if err != nil {
		return nil, translate(err)
	}
	if !found {
		return nil, postNotFound()
	}
	comments := []domain.Comment{}
	err = db.Preload("Profile").
		Where("post_id = ?", postID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&comments).Error
	if err != nil {
		return nil, translate(err)
	}
	for i := range comments {
		comments[i].Author = comments[i].Profile.Preview()
	}
	return comments, nil
}

// Create stores the comment if its post exists and loads its author.
func (cg *commentGorm) Create(ctx context.Context, comment *domain.Comment) error {
	err := cg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := exists(tx.Model(&domain.Post{}).Where("id = ?", comment.PostID))
		if err != nil {
			return err
		}
		if !found {
			return postNotFound()
		}
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		var profile domain.Profile
		if err := tx.Take(&profile, "id = ?", comment.ProfileID).Error; err != nil {
			return err
		}
		comment.Profile = &profile
		comment.Author = profile.Preview()
		return nil
	})
	return translate(err)
}
