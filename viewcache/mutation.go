package viewcache

import (
	"fmt"

	"github.com/goliatone/go-forum-cache/cache"
)

// MutationKind names a write that can make cached views stale.
type MutationKind int

const (
	UserRegistered MutationKind = iota + 1
	SubredditCreated
	SubredditEdited
	SubredditJoined
	SubredditDeleted
	PostCreated
	PostEdited
	PostVoted
	PostDeleted
	CommentAdded
	CommentEdited
	CommentVoted
	CommentDeleted
)

var mutationKindNames = map[MutationKind]string{
	UserRegistered:   "user_registered",
	SubredditCreated: "subreddit_created",
	SubredditEdited:  "subreddit_edited",
	SubredditJoined:  "subreddit_joined",
	SubredditDeleted: "subreddit_deleted",
	PostCreated:      "post_created",
	PostEdited:       "post_edited",
	PostVoted:        "post_voted",
	PostDeleted:      "post_deleted",
	CommentAdded:     "comment_added",
	CommentEdited:    "comment_edited",
	CommentVoted:     "comment_voted",
	CommentDeleted:   "comment_deleted",
}

func (k MutationKind) String() string {
	if name, ok := mutationKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("mutation_kind(%d)", int(k))
}

// Mutation describes one committed write and the entities it touched.
//
// Owner is the user whose profile lists the mutated entity: the creator of a
// subreddit or post, the author of a comment, the joiner of a subreddit. A
// vote by someone else still names the owner. Affected lists further profiles
// reached through membership or cascades, and PostIDs lists the posts removed
// together with a subreddit. MovedFrom is the previous subreddit of a post
// that an edit moved.
type Mutation struct {
	Kind        MutationKind
	SubredditID int64
	MovedFrom   int64
	PostID      int64
	Owner       string
	Affected    []string
	PostIDs     []int64
}

// KeysFor returns every cache key whose view derives from the entities m
// touched, without duplicates, in a deterministic order.
func KeysFor(keys cache.KeyRegistry, m Mutation) []string {
	set := newKeySet()

	switch m.Kind {
	case UserRegistered:
		// a profile that was never served was never cached

	case SubredditCreated:
		set.add(keys.AllSubreddits())
		set.profiles(keys, m.Owner)

	case SubredditEdited:
		set.add(keys.Subreddit(m.SubredditID), keys.AllSubreddits())
		set.profiles(keys, m.Owner)
		set.profiles(keys, m.Affected...)

	case SubredditJoined:
		set.add(keys.Subreddit(m.SubredditID), keys.AllSubreddits())
		set.profiles(keys, m.Owner)

	case SubredditDeleted:
		set.add(
			keys.Subreddit(m.SubredditID),
			keys.AllSubreddits(),
			keys.PostsInSubreddit(m.SubredditID),
			keys.AllPosts(),
		)
		for _, id := range m.PostIDs {
			set.add(keys.Post(id))
		}
		set.profiles(keys, m.Owner)
		set.profiles(keys, m.Affected...)

	case PostCreated:
		set.add(keys.AllPosts(), keys.PostsInSubreddit(m.SubredditID))
		set.profiles(keys, m.Owner)

	case PostEdited, PostVoted:
		set.add(keys.Post(m.PostID), keys.AllPosts(), keys.PostsInSubreddit(m.SubredditID))
		if m.MovedFrom != 0 && m.MovedFrom != m.SubredditID {
			set.add(keys.PostsInSubreddit(m.MovedFrom))
		}
		set.profiles(keys, m.Owner)

	case PostDeleted:
		set.add(keys.Post(m.PostID), keys.AllPosts(), keys.PostsInSubreddit(m.SubredditID))
		set.profiles(keys, m.Owner)
		set.profiles(keys, m.Affected...)

	case CommentAdded, CommentEdited, CommentVoted:
		set.add(keys.Post(m.PostID))
		set.profiles(keys, m.Owner)

	case CommentDeleted:
		set.add(keys.Post(m.PostID))
		set.profiles(keys, m.Owner)
		set.profiles(keys, m.Affected...)
	}

	return set.list()
}

type keySet struct {
	seen  map[string]struct{}
	order []string
}

func newKeySet() *keySet {
	return &keySet{seen: make(map[string]struct{})}
}

func (s *keySet) add(keys ...string) {
	for _, k := range keys {
		if _, ok := s.seen[k]; ok {
			continue
		}
		s.seen[k] = struct{}{}
		s.order = append(s.order, k)
	}
}

func (s *keySet) profiles(keys cache.KeyRegistry, usernames ...string) {
	for _, u := range usernames {
		if u != "" {
			s.add(keys.Profile(u))
		}
	}
}

func (s *keySet) list() []string {
	return s.order
}
