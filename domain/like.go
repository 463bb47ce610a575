package domain

import (
	"context"
	"time"
)

// Like represents a many-to-many relationship between a Profile and a Post.
// A profile likes a post at most once: the pair is the primary key.
type Like struct {
	ProfileID string    `json:"profileId" gorm:"primaryKey;type:varchar(36)"`
	PostID    string    `json:"postId" gorm:"primaryKey;type:varchar(36);index"`
	Profile   *Profile  `json:"-" gorm:"constraint:OnDelete:CASCADE;"`
	CreatedAt time.Time `json:"createdAt"`
}

// Bookmark is a private save of a Post by a Profile. Like a Like, the pair is
// the primary key.
type Bookmark struct {
	ProfileID string    `json:"profileId" gorm:"primaryKey;type:varchar(36)"`
	PostID    string    `json:"postId" gorm:"primaryKey;type:varchar(36);index"`
	Profile   *Profile  `json:"-" gorm:"constraint:OnDelete:CASCADE;"`
	CreatedAt time.Time `json:"createdAt"`
}

// LikeService toggles likes. Toggle reports whether the post is liked by the
// caller afterwards.
type LikeService interface {
	Toggle(ctx context.Context, caller *Caller, postID string) (bool, error)
}

// BookmarkService toggles bookmarks. Toggle reports whether the post is
// bookmarked by the caller afterwards.
type BookmarkService interface {
	Toggle(ctx context.Context, caller *Caller, postID string) (bool, error)
}
