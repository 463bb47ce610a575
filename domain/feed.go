package domain

import "context"

// Feed orderings.
const (
	OrderLatest   = "latest"
	OrderTrending = "trending"
)

const (
	DefaultFeedLimit = 10
	MaxFeedLimit     = 50
)

// FeedFilter is the input of feed.list. A zero Limit means DefaultFeedLimit,
// an empty OrderBy means OrderLatest and an empty Cursor starts at the top.
type FeedFilter struct {
	Limit          int    `json:"limit" validate:"min=1,max=50"`
	Cursor         string `json:"cursor"`
	ProfileID      string `json:"profileId"`
	OnlyBookmarked bool   `json:"onlyBookmarked"`
	Hashtag        string `json:"hashtag"`
	OrderBy        string `json:"orderBy" validate:"oneof=latest trending"`
}

// Normalize fills in defaults for omitted fields.
func (f *FeedFilter) Normalize() {
	if f.Limit == 0 {
		f.Limit = DefaultFeedLimit
	}
	if f.OrderBy == "" {
		f.OrderBy = OrderLatest
	}
}

// FeedPage is one page of the feed. NextCursor is nil on the last page.
type FeedPage struct {
	Posts      []PostSummary `json:"posts"`
	NextCursor *string       `json:"nextCursor"`
}

// FeedService pages through posts.
type FeedService interface {
	List(ctx context.Context, caller *Caller, filter *FeedFilter) (*FeedPage, error)
}
