package domain

import (
	"context"
	"time"
)

// Supported oauth providers.
const (
	ProviderGithub  = "github"
	ProviderGoogle  = "google"
	ProviderDiscord = "discord"
)

// OAuth links a User to an account at an oauth provider. A provider account can
// only ever be linked to a single user.
type OAuth struct {
	ID             int       `json:"id"`
	UserID         string    `json:"user_id" gorm:"notNull;type:varchar(36);index"`
	Provider       string    `json:"provider" gorm:"notNull;uniqueIndex:idx_oauths_provider_account"`
	ProviderUserID string    `json:"provider_user_id" gorm:"notNull;uniqueIndex:idx_oauths_provider_account"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// OAuthIdentity is what an oauth provider tells us about the user who just
// signed in with it.
type OAuthIdentity struct {
	Provider       string
	ProviderUserID string
	Email          string
	Username       string
	FirstName      string
	LastName       string
	AvatarURL      string
}

// OAuthService is a set of methods to sign users in through oauth providers.
type OAuthService interface {
	// Connect returns the account linked to the identity, linking or creating one if needed.
	Connect(ctx context.Context, identity *OAuthIdentity) (*Account, error)
}
