// Package viewcache provides the cached view decorator and the write-path
// invalidator for the forum's read models.
//
// # Overview
//
// CachedViews wraps a Source (normally *views.Builder) and serves each view
// through a read-through cache. Invalidator turns a committed write, described
// as a Mutation, into the exact set of keys whose views derive from what the
// write touched, and deletes them in one backend call.
//
// # Basic Usage
//
//	svc, _ := cache.NewServiceFromConfig(cache.DefaultConfig())
//	cached := viewcache.New(views.NewBuilder(store.New(db)), svc)
//	invalidator := viewcache.NewInvalidator(svc, logger, metrics)
//
//	post, err := cached.PostByID(ctx, 42)
//
//	// after UPDATE posts SET votes = votes + 1 WHERE id = 42 commits:
//	invalidator.Invalidate(ctx, viewcache.Mutation{
//		Kind:        viewcache.PostVoted,
//		PostID:      42,
//		SubredditID: post.SubredditID,
//		Owner:       post.User.Username,
//	})
//
// # Caching Behavior
//
//  1. Compute the key from the view kind and its id or username
//  2. If cache hit, decode and return
//  3. If cache miss, build from the Source
//  4. Store the result with the default TTL
//  5. Return the result
//
// Errors from the Source, NotFound included, are returned and never stored.
//
// # Invalidation
//
// Invalidation runs after the write commits and before the response is sent.
// Each mutation kind maps to a fixed table of keys; see KeysFor. There is no
// versioning and no prefix scan: every affected key is named explicitly.
// The TTL bounds staleness only when a backend delete fails.
package viewcache
