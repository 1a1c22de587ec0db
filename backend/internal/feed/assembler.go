// Package feed assembles reverse-chronological post feeds from the follow
// graph and decorates each post with author and engagement data.
package feed

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"scholargraph/backend/internal/constants"
	"scholargraph/backend/internal/domain"
	"scholargraph/backend/internal/metrics"
)

// Source is the slice of the graph accessor the assembler reads
type Source interface {
	FolloweeIDs(ctx context.Context, userID string) ([]string, error)
	PostsByAuthors(ctx context.Context, q domain.PostQuery) ([]domain.Post, error)
	PostEngagement(ctx context.Context, postID, viewerID string) (domain.Engagement, error)
	UsersByIDs(ctx context.Context, ids []string) (map[string]domain.User, error)
}

// Page is one keyset page of a feed
type Page struct {
	Items      []domain.PostWithEngagement `json:"items"`
	NextCursor string                      `json:"next_cursor,omitempty"`
}

// Assembler builds feeds. Counts are read fresh on every call.
type Assembler struct {
	source Source
	logger *zap.Logger
	fanOut int
}

// NewAssembler creates an assembler. fanOut bounds concurrent engagement
// lookups per page; values below 1 use the default.
func NewAssembler(source Source, logger *zap.Logger, fanOut int) *Assembler {
	if fanOut < 1 {
		fanOut = constants.DefaultFanOut
	}
	return &Assembler{source: source, logger: logger, fanOut: fanOut}
}

// ClampLimit applies the feed page bounds. Zero selects the default.
func ClampLimit(limit int) int {
	switch {
	case limit == 0:
		return constants.DefaultFeedLimit
	case limit < constants.MinFeedLimit:
		return constants.MinFeedLimit
	case limit > constants.MaxFeedLimit:
		return constants.MaxFeedLimit
	}
	return limit
}

// GetFeed returns posts by the user's followees, newest first, offset paged
func (a *Assembler) GetFeed(ctx context.Context, userID string, skip, limit int) ([]domain.PostWithEngagement, error) {
	page, err := a.feed(ctx, userID, domain.PostQuery{Skip: max(skip, 0), Limit: ClampLimit(limit)})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// GetFeedPage returns one keyset page. A nil cursor starts from the newest post.
func (a *Assembler) GetFeedPage(ctx context.Context, userID string, cursor *domain.Cursor, limit int) (Page, error) {
	return a.feed(ctx, userID, domain.PostQuery{Limit: ClampLimit(limit), Before: cursor})
}

func (a *Assembler) feed(ctx context.Context, userID string, q domain.PostQuery) (Page, error) {
	start := time.Now()
	defer func() { metrics.FeedDuration.Observe(metrics.Since(start)) }()

	followees, err := a.source.FolloweeIDs(ctx, userID)
	if err != nil {
		return Page{}, fmt.Errorf("load followees: %w", err)
	}
	if len(followees) == 0 {
		metrics.FeedItems.Observe(0)
		return Page{Items: []domain.PostWithEngagement{}}, nil
	}

	q.AuthorIDs = followees
	posts, err := a.source.PostsByAuthors(ctx, q)
	if err != nil {
		return Page{}, fmt.Errorf("load feed posts: %w", err)
	}

	items, err := a.Decorate(ctx, userID, posts)
	if err != nil {
		return Page{}, err
	}
	metrics.FeedItems.Observe(float64(len(items)))

	page := Page{Items: items}
	if len(posts) > 0 && len(posts) == q.Limit {
		page.NextCursor = domain.CursorAfter(posts[len(posts)-1]).Encode()
	}

	a.logger.Debug("Feed assembled",
		zap.String("user_id", userID),
		zap.Int("followees", len(followees)),
		zap.Int("items", len(items)),
		zap.Duration("latency", time.Since(start)),
	)
	return page, nil
}

// UserPosts lists one author's posts, newest first, with engagement relative to viewerID
func (a *Assembler) UserPosts(ctx context.Context, authorID, viewerID string, skip, limit int) ([]domain.PostWithEngagement, error) {
	if limit == 0 {
		limit = constants.DefaultUserPostsLimit
	}
	posts, err := a.source.PostsByAuthors(ctx, domain.PostQuery{
		AuthorIDs: []string{authorID},
		Skip:      max(skip, 0),
		Limit:     ClampLimit(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("load posts of %s: %w", authorID, err)
	}
	return a.Decorate(ctx, viewerID, posts)
}

// Decorate attaches author display data and viewer-relative engagement to
// posts, preserving their order.
func (a *Assembler) Decorate(ctx context.Context, viewerID string, posts []domain.Post) ([]domain.PostWithEngagement, error) {
	items := make([]domain.PostWithEngagement, len(posts))
	if len(posts) == 0 {
		return items, nil
	}

	authorIDs := make([]string, 0, len(posts))
	seen := make(map[string]struct{}, len(posts))
	for _, p := range posts {
		if _, ok := seen[p.AuthorID]; ok {
			continue
		}
		seen[p.AuthorID] = struct{}{}
		authorIDs = append(authorIDs, p.AuthorID)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.fanOut)

	var authors map[string]domain.User
	g.Go(func() error {
		var err error
		authors, err = a.source.UsersByIDs(gctx, authorIDs)
		if err != nil {
			return fmt.Errorf("load authors: %w", err)
		}
		return nil
	})

	for i := range posts {
		idx := i
		g.Go(func() error {
			eng, err := a.source.PostEngagement(gctx, posts[idx].ID, viewerID)
			if err != nil {
				return fmt.Errorf("load engagement for post %s: %w", posts[idx].ID, err)
			}
			items[idx].Engagement = eng
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, p := range posts {
		items[i].Post = p
		if author, ok := authors[p.AuthorID]; ok && author.FullName != "" {
			items[i].AuthorName = author.FullName
			items[i].AuthorProfileImage = author.ProfileImageURL
		} else {
			items[i].AuthorName = constants.UnknownAuthorName
			if ok {
				items[i].AuthorProfileImage = author.ProfileImageURL
			}
		}
	}
	return items, nil
}
