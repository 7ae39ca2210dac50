package cache

import (
	"strings"
	"testing"
)

func TestKeyRegistry_KeyFor(t *testing.T) {
	var keys KeyRegistry

	tests := []struct {
		name          string
		kind          ViewKind
		discriminator any
		want          string
	}{
		{name: "post", kind: ViewPost, discriminator: int64(42), want: "post:42"},
		{name: "all posts ignores discriminator", kind: ViewAllPosts, discriminator: int64(9), want: "posts:all"},
		{name: "all posts nil discriminator", kind: ViewAllPosts, discriminator: nil, want: "posts:all"},
		{name: "posts in subreddit", kind: ViewPostsInSubreddit, discriminator: int64(5), want: "posts:subreddit:5"},
		{name: "subreddit", kind: ViewSubreddit, discriminator: int64(5), want: "subreddit:5"},
		{name: "all subreddits", kind: ViewAllSubreddits, discriminator: "ignored", want: "subreddits:all"},
		{name: "profile", kind: ViewProfile, discriminator: "alice", want: "profile:alice"},
		{name: "profile escapes separator", kind: ViewProfile, discriminator: "a:b", want: "profile:a%3Ab"},
		{name: "profile escapes percent", kind: ViewProfile, discriminator: "a%3Ab", want: "profile:a%253Ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := keys.KeyFor(tt.kind, tt.discriminator); got != tt.want {
				t.Errorf("KeyFor(%s, %v) = %q, want %q", tt.kind, tt.discriminator, got, tt.want)
			}
		})
	}
}

func TestKeyRegistry_Helpers(t *testing.T) {
	keys := KeyRegistry{}

	pairs := map[string]string{
		keys.Post(1):             "post:1",
		keys.AllPosts():          "posts:all",
		keys.PostsInSubreddit(2): "posts:subreddit:2",
		keys.Subreddit(3):        "subreddit:3",
		keys.AllSubreddits():     "subreddits:all",
		keys.Profile("bob"):      "profile:bob",
	}
	for got, want := range pairs {
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestKeyRegistry_Injective(t *testing.T) {
	keys := NewKeyRegistry("")
	seen := make(map[string]string)

	record := func(label, key string) {
		if prev, ok := seen[key]; ok {
			t.Fatalf("key %q produced by both %s and %s", key, prev, label)
		}
		seen[key] = label
	}

	for id := int64(1); id <= 50; id++ {
		record("post", keys.Post(id))
		record("posts_in_subreddit", keys.PostsInSubreddit(id))
		record("subreddit", keys.Subreddit(id))
	}
	record("posts_all", keys.AllPosts())
	record("subreddits_all", keys.AllSubreddits())
	for _, name := range []string{"alice", "bob", "all", "1", "subreddit:1", "x:y", "x%3Ay"} {
		record("profile "+name, keys.Profile(name))
	}
}

func TestKeyRegistry_Stable(t *testing.T) {
	a := NewKeyRegistry("forum")
	b := NewKeyRegistry("forum")

	for _, kind := range Kinds() {
		if a.KeyFor(kind, int64(7)) != b.KeyFor(kind, int64(7)) {
			t.Errorf("kind %s not stable across registries", kind)
		}
	}
}

func TestKeyRegistry_Namespace(t *testing.T) {
	keys := NewKeyRegistry("tenant-a:")

	if keys.Namespace() != "tenant-a" {
		t.Fatalf("expected trailing separator trimmed, got %q", keys.Namespace())
	}
	if got := keys.Post(1); got != "tenant-a:post:1" {
		t.Errorf("expected namespaced key, got %q", got)
	}
	if got := NewKeyRegistry("tenant-b").Post(1); got == keys.Post(1) {
		t.Errorf("namespaces must not collide, both produced %q", got)
	}
}

func TestKeyRegistry_KindOf(t *testing.T) {
	for _, ns := range []string{"", "forum"} {
		keys := NewKeyRegistry(ns)
		for _, kind := range Kinds() {
			key := keys.KeyFor(kind, int64(3))
			if kind == ViewProfile {
				key = keys.Profile("carol")
			}
			got, ok := keys.KindOf(key)
			if !ok || got != kind {
				t.Errorf("ns=%q KindOf(%q) = %s,%v want %s", ns, key, got, ok, kind)
			}
		}
	}

	if _, ok := NewKeyRegistry("forum").KindOf("post:1"); ok {
		t.Error("expected key outside namespace to be rejected")
	}
	if _, ok := (KeyRegistry{}).KindOf("session:1"); ok {
		t.Error("expected unknown shape to be rejected")
	}
}

func TestKeyRegistry_UnknownKindPanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic for unknown kind")
		}
		if msg, _ := r.(string); !strings.Contains(msg, "unknown view kind") {
			t.Errorf("unexpected panic value %v", r)
		}
	}()
	KeyRegistry{}.KeyFor(ViewKind(99), 1)
}

func TestViewKind_String(t *testing.T) {
	if ViewPostsInSubreddit.String() != "posts_in_subreddit" {
		t.Errorf("unexpected label %q", ViewPostsInSubreddit.String())
	}
	if ViewKind(0).String() != "view_kind(0)" {
		t.Errorf("unexpected label for zero kind %q", ViewKind(0).String())
	}
	if !ViewAllPosts.Singleton() || ViewPost.Singleton() {
		t.Error("singleton classification is wrong")
	}
}
