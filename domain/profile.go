package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile is the public face of a User. Posts, likes, bookmarks and comments
// all reference the author's Profile rather than the User.
type Profile struct {
	ID         string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string     `json:"-" gorm:"notNull;type:varchar(36);uniqueIndex:idx_profiles_user_id"`
	Username   string     `json:"username" gorm:"notNull;uniqueIndex:idx_profiles_username"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	Location   string     `json:"location"`
	Bio        string     `json:"bio"`
	BirthDate  *time.Time `json:"birthDate"`
	AvatarURL  string     `json:"avatarUrl"`
	IsVerified bool       `json:"isVerified" gorm:"default:false"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`

	// Filled in by ProfileService.ByID, not stored.
	PostCount int64 `json:"postCount" gorm:"-"`
}

// BeforeCreate assigns a fresh uuid to profiles created without an ID.
func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// ProfilePreview is the subset of a Profile embedded in posts and comments.
type ProfilePreview struct {
	ID         string `json:"id"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Username   string `json:"username"`
	AvatarURL  string `json:"avatarUrl"`
	IsVerified bool   `json:"isVerified"`
}

// Preview returns the ProfilePreview of a Profile.
func (p *Profile) Preview() ProfilePreview {
	if p == nil {
		return ProfilePreview{}
	}
	return ProfilePreview{
		ID:         p.ID,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Username:   p.Username,
		AvatarURL:  p.AvatarURL,
		IsVerified: p.IsVerified,
	}
}

// ProfileService is a set of methods to read profile data.
type ProfileService interface {
	ByID(ctx context.Context, caller *Caller, id string) (*Profile, error)
}
