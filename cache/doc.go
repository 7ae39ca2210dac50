// Package cache provides the key registry, backend contract and read-through
// helper behind the forum's cached views.
//
// # Overview
//
// Every cacheable projection has a ViewKind. KeyRegistry turns a kind and its
// discriminator (an id or a username) into a stable key:
//
//	post:{id}
//	posts:all
//	posts:subreddit:{id}
//	subreddit:{id}
//	subreddits:all
//	profile:{username}
//
// A Backend stores encoded bytes under those keys with a TTL. Service bundles
// a Backend with a Codec, a KeyRegistry and the default TTL.
//
// # Basic Usage
//
//	svc, err := cache.NewServiceFromConfig(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//
//	view, err := cache.GetOrFetch(ctx, svc, cache.ViewPost, postID, func(ctx context.Context) (PostView, error) {
//		return builder.PostByID(ctx, postID)
//	})
//
// After a write, delete every key whose view derives from the mutated row:
//
//	keys := svc.Keys()
//	_ = svc.Invalidate(ctx, keys.Post(postID), keys.AllPosts(), keys.Profile(author))
//
// # Failure Semantics
//
// The cache is an optimisation. A failed Get is a miss, a failed Set still
// returns the freshly built view, and errors from the fetch function are
// returned without being stored, so absence is never cached.
//
// # Namespaces
//
// NewKeyRegistry(ns) prefixes every key with "ns:". The zero KeyRegistry uses
// no prefix.
package cache
