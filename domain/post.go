package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post is a short text authored by a Profile, optionally carrying up to
// MaxPostImages images. Likes, bookmarks, comments and hashtag links go away
// together with the post.
type Post struct {
	ID        string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ProfileID string     `json:"profileId" gorm:"notNull;type:varchar(36);index"`
	Profile   *Profile   `json:"-" gorm:"constraint:OnDelete:CASCADE;"`
	Content   string     `json:"content" gorm:"notNull;type:text"`
	ImageURLs []string   `json:"imageUrls" gorm:"serializer:json;type:text"`
	Views     int64      `json:"views" gorm:"notNull;default:0;index"`
	Published bool       `json:"published" gorm:"notNull;default:true"`
	Hashtags  []Hashtag  `json:"-" gorm:"many2many:post_hashtags;constraint:OnDelete:CASCADE;"`
	Likes     []Like     `json:"-" gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE;"`
	Bookmarks []Bookmark `json:"-" gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE;"`
	Comments  []Comment  `json:"-" gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE;"`
	CreatedAt time.Time  `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time  `json:"updatedAt"`

	// Read only aggregates, selected by the feed query.
	LikeCount    int64 `json:"-" gorm:"->;-:migration"`
	CommentCount int64 `json:"-" gorm:"->;-:migration"`
	IsLiked      bool  `json:"-" gorm:"->;-:migration"`
	IsBookmarked bool  `json:"-" gorm:"->;-:migration"`
}

// BeforeCreate assigns a fresh uuid to posts created without an ID.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Summary projects the post for the viewing profile.
func (p *Post) Summary(viewerID string) PostSummary {
	urls := p.ImageURLs
	if urls == nil {
		urls = []string{}
	}
	return PostSummary{
		ID:           p.ID,
		Content:      p.Content,
		ImageURLs:    urls,
		Views:        p.Views,
		CreatedAt:    p.CreatedAt,
		Profile:      p.Profile.Preview(),
		LikeCount:    p.LikeCount,
		CommentCount: p.CommentCount,
		IsLiked:      p.IsLiked,
		IsBookmarked: p.IsBookmarked,
		IsOwner:      viewerID != "" && viewerID == p.ProfileID,
	}
}

// PostSummary is the shape a post takes in the feed.
type PostSummary struct {
	ID           string         `json:"id"`
	Content      string         `json:"content"`
	ImageURLs    []string       `json:"imageUrls"`
	Views        int64          `json:"views"`
	CreatedAt    time.Time      `json:"createdAt"`
	Profile      ProfilePreview `json:"profile"`
	LikeCount    int64          `json:"likes"`
	CommentCount int64          `json:"comments"`
	IsLiked      bool           `json:"isLiked"`
	IsBookmarked bool           `json:"isBookmarked"`
	IsOwner      bool           `json:"isOwner"`
}

// Hashtag is a lower case tag, stored without its leading #, linked to every
// post mentioning it.
type Hashtag struct {
	ID        int       `json:"id"`
	Name      string    `json:"name" gorm:"notNull;uniqueIndex:idx_hashtags_name"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewPost is the input of post.create.
type NewPost struct {
	Content string `json:"content" validate:"constraint=content"`
}

// PostRef identifies a single post in a request.
type PostRef struct {
	PostID string `json:"postId" validate:"required"`
}

// PostService is a set of methods to manipulate and work with the Post model.
type PostService interface {
	Create(ctx context.Context, caller *Caller, input *NewPost) (*Post, error)
	// View returns the post and counts the view.
	View(ctx context.Context, caller *Caller, postID string) (*PostSummary, error)
	// Owned returns the post if the caller authored it.
	Owned(ctx context.Context, caller *Caller, postID string) (*Post, error)
	// SetImages replaces the image urls of a post the caller authored and
	// returns the updated post as the caller sees it.
	SetImages(ctx context.Context, caller *Caller, postID string, urls []string) (*PostSummary, error)
	Delete(ctx context.Context, caller *Caller, postID string) error
}
