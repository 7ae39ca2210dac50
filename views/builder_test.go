package views_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-forum-cache/forum"
	"github.com/goliatone/go-forum-cache/pkg/testsupport"
	"github.com/goliatone/go-forum-cache/store"
	"github.com/goliatone/go-forum-cache/views"
)

func newBuilder(t *testing.T) *views.Builder {
	t.Helper()
	db := testsupport.NewTestDB(t)
	var fx testsupport.Fixtures
	testsupport.LoadFixtureJSON(t, "../pkg/testsupport/testdata/forum.json", &fx)
	testsupport.Seed(t, db, fx)
	return views.NewBuilder(store.New(db))
}

func TestBuilder_PostByID(t *testing.T) {
	ctx := context.Background()
	b := newBuilder(t)

	post, err := b.PostByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Generics", post.Title)
	assert.Equal(t, forum.UserView{ID: 1, Username: "alice"}, post.User)
	require.Len(t, post.Comments, 2)
	assert.Equal(t, "bob", post.Comments[0].User.Username)
	require.NotNil(t, post.Comments[1].ParentID)
	assert.Equal(t, int64(1), *post.Comments[1].ParentID)
	assert.Nil(t, post.ModifiedOn)

	empty, err := b.PostByID(ctx, 2)
	require.NoError(t, err)
	assert.NotNil(t, empty.Comments)
	assert.Empty(t, empty.Comments)

	_, err = b.PostByID(ctx, 99)
	assert.ErrorIs(t, err, forum.ErrNotFound)
}

func TestBuilder_PostLists(t *testing.T) {
	ctx := context.Background()
	b := newBuilder(t)

	all, err := b.AllPosts(ctx)
	require.NoError(t, err)
	require.Len(t, all.Posts, 2)
	assert.Equal(t, int64(2), all.Posts[0].ID, "newest first")

	inSub, err := b.PostsInSubreddit(ctx, 1)
	require.NoError(t, err)
	require.Len(t, inSub.Posts, 1)
	assert.Equal(t, int64(1), inSub.Posts[0].ID)

	_, err = b.PostsInSubreddit(ctx, 99)
	assert.ErrorIs(t, err, forum.ErrNotFound)
}

func TestBuilder_Subreddits(t *testing.T) {
	ctx := context.Background()
	b := newBuilder(t)

	sub, err := b.SubredditByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "golang", sub.Name)
	assert.Equal(t, "alice", sub.User.Username)
	require.Len(t, sub.Members, 2)
	assert.Equal(t, "alice", sub.Members[0].Username)
	assert.Equal(t, "bob", sub.Members[1].Username)

	list, err := b.AllSubreddits(ctx)
	require.NoError(t, err)
	require.Len(t, list.Subreddits, 2)
	assert.Equal(t, "golang", list.Subreddits[0].Name)
	assert.Len(t, list.Subreddits[1].Members, 1)

	_, err = b.SubredditByID(ctx, 99)
	assert.ErrorIs(t, err, forum.ErrNotFound)
}

func TestBuilder_Profile(t *testing.T) {
	ctx := context.Background()
	b := newBuilder(t)

	bob, err := b.Profile(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", bob.Email)
	require.Len(t, bob.CreatedSubreddits, 1)
	assert.Equal(t, "databases", bob.CreatedSubreddits[0].Name)
	require.Len(t, bob.JoinedSubreddits, 1, "a created subreddit is not listed as joined")
	assert.Equal(t, "golang", bob.JoinedSubreddits[0].Name)
	require.Len(t, bob.Posts, 1)
	require.Len(t, bob.Comments, 1)

	alice, err := b.Profile(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, alice.JoinedSubreddits)
	assert.NotNil(t, alice.JoinedSubreddits)

	_, err = b.Profile(ctx, "nobody")
	assert.ErrorIs(t, err, forum.ErrNotFound)
}
