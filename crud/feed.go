package crud

import (
	"context"

	"gorm.io/gorm"

	"postfeed/domain"
	"postfeed/errs"
)

// FeedService pages through posts with an opaque cursor. A cursor is the id of
// the last post of the previous page: the next page continues right after that
// post in the requested ordering.
// It implements the domain.FeedService interface.
type FeedService struct {
	feedValidator
}

type feedValidator struct {
	feedDB
}

// feedDB is the store behind the FeedService.
type feedDB interface {
	// Anchor returns the post a cursor points at.
	Anchor(ctx context.Context, id string) (*domain.Post, error)
	// Page returns up to q.filter.Limit+1 posts following q.anchor.
	Page(ctx context.Context, q *feedQuery) ([]domain.Post, error)
}

// feedQuery is a validated feed request.
type feedQuery struct {
	filter   *domain.FeedFilter
	viewerID string
	anchor   *domain.Post
}

type feedGorm struct {
	db *gorm.DB
}

// NewFeedService returns an instance of FeedService.
func NewFeedService(db *gorm.DB) *FeedService {
	return &FeedService{
		feedValidator{
			feedDB: &feedGorm{
				db: db,
			},
		},
	}
}

var _ domain.FeedService = &FeedService{}

// List returns one page of the feed. One post more than requested is fetched:
// if it exists, it is dropped and the last returned post becomes the cursor of
// the next page.
func (fv *feedValidator) List(ctx context.Context, caller *domain.Caller, filter *domain.FeedFilter) (*domain.FeedPage, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	filter.Normalize()
	filter.Hashtag = normalizeHashtag(filter.Hashtag)
	if err := validateInput(filter); err != nil {
		return nil, err
	}

	q := feedQuery{filter: filter, viewerID: caller.ProfileID}
	if filter.Cursor != "" {
		anchor, err := fv.feedDB.Anchor(ctx, filter.Cursor)
		if errs.ErrorCode(err) == errs.ENOTFOUND {
			return nil, errs.Errorf(errs.EINVALID, "The cursor does not point at an existing post.").
				Field("cursor", "Unknown cursor.")
		} else if err != nil {
			return nil, err
		}
		q.anchor = anchor
	}

	posts, err := fv.feedDB.Page(ctx, &q)
	if err != nil {
		return nil, err
	}
	page := &domain.FeedPage{}
	if len(posts) > filter.Limit {
		posts = posts[:filter.Limit]
		next := posts[len(posts)-1].ID
		page.NextCursor = &next
	}
	page.Posts = make([]domain.PostSummary, 0, len(posts))
	for i := range posts {
		page.Posts = append(page.Posts, posts[i].Summary(caller.ProfileID))
	}
	return page, nil
}

// orderColumns returns the sort columns of an ordering, most significant
// first. All of them sort descending and the id breaks every tie, so the
// ordering is total.
func orderColumns(orderBy string) []string {
	if orderBy == domain.OrderTrending {
		return []string{"posts.views", "posts.created_at", "posts.id"}
	}
	return []string{"posts.created_at", "posts.id"}
}

// orderValues returns the values of a post in the columns of orderColumns.
func orderValues(orderBy string, p *domain.Post) []interface{} {
	if orderBy == domain.OrderTrending {
		return []interface{}{p.Views, p.CreatedAt, p.ID}
	}
	return []interface{}{p.CreatedAt, p.ID}
}

// keyset returns the condition selecting the posts that come after anchor in
// the ordering, as a row value comparison.
func keyset(orderBy string, anchor *domain.Post) (string, []interface{}) {
	cols := orderColumns(orderBy)
	lhs, rhs := "(", "("
	for i, c := range cols {
		if i > 0 {
			lhs += ", "
			rhs += ", "
		}
		lhs += c
		rhs += "?"
	}
	return lhs + ") < " + rhs + ")", orderValues(orderBy, anchor)
}

// withAggregates selects the post columns along with the like and comment
// counts and whether the viewer liked or bookmarked the post.
func withAggregates(db *gorm.DB, viewerID string) *gorm.DB {
	return db.Select("posts.*, "+
		"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS like_count, "+
		"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comment_count, "+
		"EXISTS (SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.profile_id = ?) AS is_liked, "+
		"EXISTS (SELECT 1 FROM bookmarks WHERE bookmarks.post_id = posts.id AND bookmarks.profile_id = ?) AS is_bookmarked",
		viewerID, viewerID)
}

// Anchor retrieves the sort values of the post a cursor points at.
func (fg *feedGorm) Anchor(ctx context.Context, id string) (*domain.Post, error) {
	var post domain.Post
	err := fg.db.WithContext(ctx).
		Select("id", "views", "created_at").
		Take(&post, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

// Page runs the feed query and loads the author of every post.
func (fg *feedGorm) Page(ctx context.Context, q *feedQuery) ([]domain.Post, error) {
	var posts []domain.Post
	err := fg.scope(fg.db.WithContext(ctx), q).Preload("Profile").Find(&posts).Error
	if err != nil {
		return nil, translate(err)
	}
	return posts, nil
}

// scope builds the feed query on db.
func (fg *feedGorm) scope(db *gorm.DB, q *feedQuery) *gorm.DB {
	f := q.filter
	db = withAggregates(db.Model(&domain.Post{}), q.viewerID).
		Where("posts.published = ?", true)
	if f.ProfileID != "" {
		db = db.Where("posts.profile_id = ?", f.ProfileID)
	}
	if f.OnlyBookmarked {
		db = db.Where("EXISTS (SELECT 1 FROM bookmarks WHERE bookmarks.post_id = posts.id AND bookmarks.profile_id = ?)", q.viewerID)
	}
	if f.Hashtag != "" {
		db = db.Where("EXISTS (SELECT 1 FROM post_hashtags JOIN hashtags ON hashtags.id = post_hashtags.hashtag_id "+
			"WHERE post_hashtags.post_id = posts.id AND hashtags.name = ?)", f.Hashtag)
	}
	if q.anchor != nil {
		cond, args := keyset(f.OrderBy, q.anchor)
		db = db.Where(cond, args...)
	}
	for _, c := range orderColumns(f.OrderBy) {
		db = db.Order(c + " DESC")
	}
	return db.Limit(f.Limit + 1)
}
