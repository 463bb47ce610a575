package crud

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postfeed/domain"
	"postfeed/errs"
)

type mockOAuthDB struct {
	got *domain.OAuthIdentity
}

func (m *mockOAuthDB) Connect(ctx context.Context, identity *domain.OAuthIdentity) (*domain.Account, error) {
	m.got = identity
	return &domain.Account{ID: "u1", Email: identity.Email, ProfileID: "p1"}, nil
}

func TestDeriveUsername(t *testing.T) {
	tests := []struct {
		username, email, want string
	}{
		{"octocat", "octo@example.com", "octocat"},
		{"Ada Lovelace!", "ada@example.com", "AdaLovelace"},
		{"", "grace.hopper@example.com", "gracehopper"},
		{"", "x@example.com", "x__"},
		{"a_very_long_username_indeed", "", "a_very_long_use"},
	}
	for _, tt := range tests {
		got := deriveUsername(tt.username, tt.email)
		assert.Equal(t, tt.want, got)
		assert.Empty(t, domain.Constraints["username"].Check(got), got)
	}
}

func TestOAuthService_Connect(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes the identity", func(t *testing.T) {
		db := &mockOAuthDB{}
		svc := &OAuthService{oauthValidator{oauthDB: db}}

		acc, err := svc.Connect(ctx, &domain.OAuthIdentity{
			Provider:       domain.ProviderGithub,
			ProviderUserID: "42",
			Email:          " Octo@Example.com",
			Username:       "octo-cat",
		})
		require.NoError(t, err)
		assert.Equal(t, "octo@example.com", acc.Email)
		assert.Equal(t, "octocat", db.got.Username)
		assert.Equal(t, "octocat", db.got.FirstName)
		assert.NotEmpty(t, db.got.LastName)
	})

	t.Run("rejects incomplete identities", func(t *testing.T) {
		svc := &OAuthService{oauthValidator{oauthDB: &mockOAuthDB{}}}
		tests := []*domain.OAuthIdentity{
			{Provider: "myspace", ProviderUserID: "1", Email: "a@b.co"},
			{Provider: domain.ProviderGoogle, Email: "a@b.co"},
			{Provider: domain.ProviderDiscord, ProviderUserID: "1"},
		}
		for _, identity := range tests {
			_, err := svc.Connect(ctx, identity)
			assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))
		}
	})
}
