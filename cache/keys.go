package cache

import (
	"fmt"
	"strings"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = ":"

// ViewKind identifies one cacheable projection.
type ViewKind int

const (
	ViewPost ViewKind = iota + 1
	ViewAllPosts
	ViewPostsInSubreddit
	ViewSubreddit
	ViewAllSubreddits
	ViewProfile
)

var viewKindNames = map[ViewKind]string{
	ViewPost:             "post",
	ViewAllPosts:         "posts_all",
	ViewPostsInSubreddit: "posts_in_subreddit",
	ViewSubreddit:        "subreddit",
	ViewAllSubreddits:    "subreddits_all",
	ViewProfile:          "profile",
}

// Kinds returns every known view kind in declaration order.
func Kinds() []ViewKind {
	return []ViewKind{
		ViewPost,
		ViewAllPosts,
		ViewPostsInSubreddit,
		ViewSubreddit,
		ViewAllSubreddits,
		ViewProfile,
	}
}

// String returns a label suitable for logs and metrics.
func (k ViewKind) String() string {
	if name, ok := viewKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("view_kind(%d)", int(k))
}

// Singleton reports whether the kind has exactly one key.
func (k ViewKind) Singleton() bool {
	return k == ViewAllPosts || k == ViewAllSubreddits
}

// KeyRegistry maps view kinds to cache keys.
//
// Keys are a pure function of (namespace, kind, discriminator): two distinct
// inputs never produce the same key, and the same input always produces the
// same key. The zero value is ready to use and yields un-prefixed keys.
type KeyRegistry struct {
	namespace string
}

// NewKeyRegistry returns a registry that prefixes every key with namespace.
// An empty namespace yields the bare keys (post:1, posts:all, ...).
func NewKeyRegistry(namespace string) KeyRegistry {
	return KeyRegistry{namespace: strings.TrimSuffix(namespace, KeySeparator)}
}

// Namespace returns the configured prefix, without separator.
func (r KeyRegistry) Namespace() string {
	return r.namespace
}

// KeyFor returns the cache key for kind. Singleton kinds ignore discriminator.
// It panics on an unknown kind, which is always a programming error.
func (r KeyRegistry) KeyFor(kind ViewKind, discriminator any) string {
	var key string
	switch kind {
	case ViewPost:
		key = "post" + KeySeparator + formatDiscriminator(discriminator)
	case ViewAllPosts:
		key = "posts" + KeySeparator + "all"
	case ViewPostsInSubreddit:
		key = "posts" + KeySeparator + "subreddit" + KeySeparator + formatDiscriminator(discriminator)
	case ViewSubreddit:
		key = "subreddit" + KeySeparator + formatDiscriminator(discriminator)
	case ViewAllSubreddits:
		key = "subreddits" + KeySeparator + "all"
	case ViewProfile:
		key = "profile" + KeySeparator + formatDiscriminator(discriminator)
	default:
		panic(fmt.Sprintf("cache: unknown view kind %d", int(kind)))
	}

	if r.namespace == "" {
		return key
	}
	return r.namespace + KeySeparator + key
}

// Post is the key of the post detail view.
func (r KeyRegistry) Post(id int64) string { return r.KeyFor(ViewPost, id) }

// AllPosts is the key of the global post listing.
func (r KeyRegistry) AllPosts() string { return r.KeyFor(ViewAllPosts, nil) }

// PostsInSubreddit is the key of one subreddit's post listing.
func (r KeyRegistry) PostsInSubreddit(subredditID int64) string {
	return r.KeyFor(ViewPostsInSubreddit, subredditID)
}

// Subreddit is the key of the subreddit detail view.
func (r KeyRegistry) Subreddit(id int64) string { return r.KeyFor(ViewSubreddit, id) }

// AllSubreddits is the key of the subreddit listing.
func (r KeyRegistry) AllSubreddits() string { return r.KeyFor(ViewAllSubreddits, nil) }

// Profile is the key of a user's profile view.
func (r KeyRegistry) Profile(username string) string { return r.KeyFor(ViewProfile, username) }

// KindOf recovers the view kind encoded in key. The second return value is
// false for keys outside this registry's namespace or shape.
func (r KeyRegistry) KindOf(key string) (ViewKind, bool) {
	if r.namespace != "" {
		prefix := r.namespace + KeySeparator
		if !strings.HasPrefix(key, prefix) {
			return 0, false
		}
		key = strings.TrimPrefix(key, prefix)
	}

	switch {
	case key == "posts"+KeySeparator+"all":
		return ViewAllPosts, true
	case key == "subreddits"+KeySeparator+"all":
		return ViewAllSubreddits, true
	case strings.HasPrefix(key, "posts"+KeySeparator+"subreddit"+KeySeparator):
		return ViewPostsInSubreddit, true
	case strings.HasPrefix(key, "post"+KeySeparator):
		return ViewPost, true
	case strings.HasPrefix(key, "subreddit"+KeySeparator):
		return ViewSubreddit, true
	case strings.HasPrefix(key, "profile"+KeySeparator):
		return ViewProfile, true
	}
	return 0, false
}

var discriminatorEscaper = strings.NewReplacer("%", "%25", KeySeparator, "%3A")

// formatDiscriminator renders ids and usernames. Usernames are the only
// free-form discriminator, so the separator is escaped to keep keys injective.
func formatDiscriminator(v any) string {
	switch d := v.(type) {
	case nil:
		return "nil"
	case string:
		return discriminatorEscaper.Replace(d)
	case fmt.Stringer:
		return discriminatorEscaper.Replace(d.String())
	default:
		return fmt.Sprintf("%v", d)
	}
}
