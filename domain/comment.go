package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is a reply of a Profile to a Post.
type Comment struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	PostID    string    `json:"postId" gorm:"notNull;type:varchar(36);index"`
	ProfileID string    `json:"-" gorm:"notNull;type:varchar(36);index"`
	Profile   *Profile  `json:"-" gorm:"constraint:OnDelete:CASCADE;"`
	Content   string    `json:"content" gorm:"notNull;type:text"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`

	Author ProfilePreview `json:"profile" gorm:"-"`
}

// BeforeCreate assigns a fresh uuid to comments created without an ID.
func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// NewComment is the input of post.comments.add.
type NewComment struct {
	PostID  string `json:"postId" validate:"required"`
	Content string `json:"content" validate:"constraint=comment"`
}

// CommentService is a set of methods to read and write comments.
type CommentService interface {
	// ByPost returns the comments of a post, newest first.
	ByPost(ctx context.Context, caller *Caller, postID string) ([]Comment, error)
	Create(ctx context.Context, caller *Caller, input *NewComment) (*Comment, error)
}
