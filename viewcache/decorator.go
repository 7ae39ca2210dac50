package viewcache

import (
	"context"

	"github.com/goliatone/go-forum-cache/cache"
	"github.com/goliatone/go-forum-cache/forum"
	"github.com/goliatone/go-forum-cache/views"
)

// Source builds projections from the source of truth.
type Source interface {
	PostByID(ctx context.Context, id int64) (forum.PostDetail, error)
	AllPosts(ctx context.Context) (forum.PostList, error)
	PostsInSubreddit(ctx context.Context, subredditID int64) (forum.PostList, error)
	SubredditByID(ctx context.Context, id int64) (forum.SubredditView, error)
	AllSubreddits(ctx context.Context) (forum.SubredditList, error)
	Profile(ctx context.Context, username string) (forum.ProfileView, error)
}

// Interface assertions
var (
	_ Source = (*views.Builder)(nil)
	_ Source = (*CachedViews)(nil)
)

// CachedViews decorates a Source with read-through caching. Every method
// returns exactly what the Source would have returned at some point since
// the last invalidation of its key.
type CachedViews struct {
	base  Source
	cache *cache.Service
}

// New wraps base with the given cache service.
func New(base Source, cacheService *cache.Service) *CachedViews {
	return &CachedViews{base: base, cache: cacheService}
}

func (c *CachedViews) PostByID(ctx context.Context, id int64) (forum.PostDetail, error) {
	return cache.GetOrFetch(ctx, c.cache, cache.ViewPost, id, func(ctx context.Context) (forum.PostDetail, error) {
		return c.base.PostByID(ctx, id)
	})
}

func (c *CachedViews) AllPosts(ctx context.Context) (forum.PostList, error) {
	return cache.GetOrFetch(ctx, c.cache, cache.ViewAllPosts, nil, func(ctx context.Context) (forum.PostList, error) {
		return c.base.AllPosts(ctx)
	})
}

func (c *CachedViews) PostsInSubreddit(ctx context.Context, subredditID int64) (forum.PostList, error) {
	return cache.GetOrFetch(ctx, c.cache, cache.ViewPostsInSubreddit, subredditID, func(ctx context.Context) (forum.PostList, error) {
		return c.base.PostsInSubreddit(ctx, subredditID)
	})
}

func (c *CachedViews) SubredditByID(ctx context.Context, id int64) (forum.SubredditView, error) {
	return cache.GetOrFetch(ctx, c.cache, cache.ViewSubreddit, id, func(ctx context.Context) (forum.SubredditView, error) {
		return c.base.SubredditByID(ctx, id)
	})
}

func (c *CachedViews) AllSubreddits(ctx context.Context) (forum.SubredditList, error) {
	return cache.GetOrFetch(ctx, c.cache, cache.ViewAllSubreddits, nil, func(ctx context.Context) (forum.SubredditList, error) {
		return c.base.AllSubreddits(ctx)
	})
}

func (c *CachedViews) Profile(ctx context.Context, username string) (forum.ProfileView, error) {
	return cache.GetOrFetch(ctx, c.cache, cache.ViewProfile, username, func(ctx context.Context) (forum.ProfileView, error) {
		return c.base.Profile(ctx, username)
	})
}
