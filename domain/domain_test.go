package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstraintCheck(t *testing.T) {
	tests := []struct {
		field string
		value string
		ok    bool
	}{
		{"username", "ab", false},
		{"username", "abc", true},
		{"username", "abcdefghijklmnop", false},
		{"username", "bad name", false},
		{"username", "good_name_1", true},
		{"password", "1234567", false},
		{"password", "12345678", true},
		{"bio", "", true},
		{"content", "", false},
		{"content", string(make([]rune, 280)), true},
		{"comment", "héllo", true},
	}
	for _, tt := range tests {
		c, ok := Constraints[tt.field]
		require.True(t, ok, tt.field)
		msg := c.Check(tt.value)
		if tt.ok {
			assert.Empty(t, msg, "%s=%q", tt.field, tt.value)
		} else {
			assert.NotEmpty(t, msg, "%s=%q", tt.field, tt.value)
		}
	}
}

func TestConstraintList(t *testing.T) {
	list := ConstraintList()
	require.Len(t, list, len(Constraints))
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].Field, list[i].Field)
	}
}

func TestFeedFilterNormalize(t *testing.T) {
	f := FeedFilter{}
	f.Normalize()
	assert.Equal(t, DefaultFeedLimit, f.Limit)
	assert.Equal(t, OrderLatest, f.OrderBy)

	f = FeedFilter{Limit: 3, OrderBy: OrderTrending}
	f.Normalize()
	assert.Equal(t, 3, f.Limit)
	assert.Equal(t, OrderTrending, f.OrderBy)
}

func TestPostSummary(t *testing.T) {
	p := Post{
		ID:        "p1",
		ProfileID: "me",
		Content:   "hello",
		Profile:   &Profile{ID: "me", Username: "me"},
		LikeCount: 2,
		IsLiked:   true,
		CreatedAt: time.Now(),
	}

	s := p.Summary("me")
	assert.True(t, s.IsOwner)
	assert.True(t, s.IsLiked)
	assert.Equal(t, int64(2), s.LikeCount)
	assert.Equal(t, "me", s.Profile.Username)
	assert.NotNil(t, s.ImageURLs)

	assert.False(t, p.Summary("other").IsOwner)
	assert.False(t, p.Summary("").IsOwner)
}

func TestImagePath(t *testing.T) {
	img := Image{OwnerType: OwnerTypePost, OwnerID: "abc", Filename: "x.png"}
	assert.Equal(t, "post/abc/x.png", img.RelativePath())
	assert.Equal(t, "/images/post/abc/x.png", img.Path())
}
