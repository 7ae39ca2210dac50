package httpapi_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-forum-cache/cache"
	"github.com/goliatone/go-forum-cache/forum"
	"github.com/goliatone/go-forum-cache/internal/auth"
	"github.com/goliatone/go-forum-cache/internal/httpapi"
	"github.com/goliatone/go-forum-cache/pkg/di"
	"github.com/goliatone/go-forum-cache/pkg/testsupport"
)

type client struct {
	t       *testing.T
	handler http.Handler
}

func newClient(t *testing.T) *client {
	t.Helper()
	return newClientWithCache(t, cache.DefaultConfig())
}

func newClientWithCache(t *testing.T, cacheConfig cache.Config) *client {
	t.Helper()

	params := *argon2id.DefaultParams
	params.Memory = 8 * 1024
	params.Iterations = 1

	reg := prometheus.NewRegistry()
	container, err := di.NewContainer(testsupport.NewTestDB(t), cacheConfig,
		di.WithHasher(auth.NewHasherWithParams(&params)),
		di.WithRegisterer("forum", reg),
	)
	require.NoError(t, err)

	srv := httpapi.NewServer(httpapi.Deps{
		Views:     container.Views(),
		Forum:     container.Forum(),
		Tokens:    auth.NewTokenManager("0123456789abcdef0123", "forum-test", time.Hour),
		Blocklist: auth.NewMemoryBlocklist(),
		Gatherer:  reg,
	})
	return &client{t: t, handler: srv.Routes()}
}

func (c *client) do(method, path, token string, body any, header ...string) *httptest.ResponseRecorder {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func (c *client) decode(rec *httptest.ResponseRecorder, dst any) {
	c.t.Helper()
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

// signup registers and logs in, returning a bearer token.
func (c *client) signup(username string) string {
	c.t.Helper()
	creds := map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "correct horse",
	}
	rec := c.do(http.MethodPost, "/auth/register", "", creds)
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = c.do(http.MethodPost, "/auth/login", "", creds)
	require.Equal(c.t, http.StatusAccepted, rec.Code, rec.Body.String())
	var out struct {
		AccessToken string `json:"access_token"`
		Username    string `json:"username"`
	}
	c.decode(rec, &out)
	require.Equal(c.t, username, out.Username)
	return out.AccessToken
}

func (c *client) createSubreddit(token, name string) forum.SubredditView {
	c.t.Helper()
	rec := c.do(http.MethodPost, "/subreddits", token, map[string]string{"name": name, "description": name + " talk"})
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())
	var sub forum.SubredditView
	c.decode(rec, &sub)
	return sub
}

func (c *client) createPost(token string, subredditID int64, title string) forum.PostDetail {
	c.t.Helper()
	rec := c.do(http.MethodPost, "/posts", token, map[string]any{"subreddit_id": subredditID, "title": title, "text": "body"})
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())
	var post forum.PostDetail
	c.decode(rec, &post)
	return post
}

func TestRoutes_EditedSubredditIsVisibleInListing(t *testing.T) {
	c := newClient(t)
	token := c.signup("alice")
	art := c.createSubreddit(token, "Art")

	rec := c.do(http.MethodGet, "/subreddits", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list forum.SubredditList
	c.decode(rec, &list)
	require.Len(t, list.Subreddits, 1)
	assert.Equal(t, "Art talk", list.Subreddits[0].Description)

	rec = c.do(http.MethodPut, fmt.Sprintf("/subreddits/%d", art.ID), token, map[string]string{"description": "Paint and pixels"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = c.do(http.MethodGet, "/subreddits", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	c.decode(rec, &list)
	require.Len(t, list.Subreddits, 1)
	assert.Equal(t, "Paint and pixels", list.Subreddits[0].Description)
}

func TestRoutes_UpvoteReachesPostAndSubredditListing(t *testing.T) {
	c := newClient(t)
	token := c.signup("alice")
	sub := c.createSubreddit(token, "golang")
	post := c.createPost(token, sub.ID, "Generics")

	postPath := fmt.Sprintf("/posts/%d", post.ID)
	listPath := fmt.Sprintf("/subreddits/%d/posts", sub.ID)

	var detail forum.PostDetail
	c.decode(c.do(http.MethodGet, postPath, "", nil), &detail)
	var list forum.PostList
	c.decode(c.do(http.MethodGet, listPath, "", nil), &list)
	require.Len(t, list.Posts, 1)
	before := detail.Votes

	rec := c.do(http.MethodGet, postPath+"/upvote", token, nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	c.decode(c.do(http.MethodGet, postPath, "", nil), &detail)
	assert.Equal(t, before+1, detail.Votes)
	c.decode(c.do(http.MethodGet, listPath, "", nil), &list)
	require.Len(t, list.Posts, 1)
	assert.Equal(t, before+1, list.Posts[0].Votes)
}

func TestRoutes_DeletedPostDisappears(t *testing.T) {
	c := newClient(t)
	token := c.signup("alice")
	sub := c.createSubreddit(token, "golang")
	keep := c.createPost(token, sub.ID, "Keep")
	gone := c.createPost(token, sub.ID, "Gone")

	var list forum.PostList
	c.decode(c.do(http.MethodGet, "/posts", "", nil), &list)
	require.Len(t, list.Posts, 2)
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, fmt.Sprintf("/posts/%d", gone.ID), "", nil).Code)

	rec := c.do(http.MethodDelete, fmt.Sprintf("/posts/%d", gone.ID), token, nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, fmt.Sprintf("/posts/%d", gone.ID), "", nil).Code)
	c.decode(c.do(http.MethodGet, "/posts", "", nil), &list)
	require.Len(t, list.Posts, 1)
	assert.Equal(t, keep.ID, list.Posts[0].ID)
}

func TestRoutes_RepeatVotesAccumulate(t *testing.T) {
	c := newClient(t)
	token := c.signup("alice")
	sub := c.createSubreddit(token, "golang")
	post := c.createPost(token, sub.ID, "Generics")
	path := fmt.Sprintf("/posts/%d", post.ID)

	for i := 0; i < 2; i++ {
		rec := c.do(http.MethodGet, path+"/upvote", token, nil)
		require.Equal(t, http.StatusAccepted, rec.Code)
	}

	var detail forum.PostDetail
	c.decode(c.do(http.MethodGet, path, "", nil), &detail)
	assert.Equal(t, post.Votes+2, detail.Votes)
}

func TestRoutes_CommentsAndProfile(t *testing.T) {
	c := newClient(t)
	alice := c.signup("alice")
	bob := c.signup("bob")
	sub := c.createSubreddit(alice, "golang")
	post := c.createPost(alice, sub.ID, "Generics")
	postPath := fmt.Sprintf("/posts/%d", post.ID)

	rec := c.do(http.MethodGet, fmt.Sprintf("/join/subreddits/%d", sub.ID), bob, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = c.do(http.MethodGet, fmt.Sprintf("/join/subreddits/%d", sub.ID), bob, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var profile forum.ProfileView
	c.decode(c.do(http.MethodGet, "/profile", bob, nil), &profile)
	assert.Empty(t, profile.Comments)
	require.Len(t, profile.JoinedSubreddits, 1)

	rec = c.do(http.MethodPost, postPath+"/comments", bob, map[string]string{"comment": "Nice"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var comment forum.CommentView
	c.decode(rec, &comment)
	commentPath := fmt.Sprintf("%s/comments/%d", postPath, comment.ID)

	c.decode(c.do(http.MethodGet, "/profile", bob, nil), &profile)
	require.Len(t, profile.Comments, 1)

	rec = c.do(http.MethodPut, commentPath, alice, map[string]string{"comment": "hijack"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = c.do(http.MethodGet, commentPath+"/upvote", alice, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var detail forum.PostDetail
	c.decode(c.do(http.MethodGet, postPath, "", nil), &detail)
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, comment.Votes+1, detail.Comments[0].Votes)
	c.decode(c.do(http.MethodGet, "/profile", bob, nil), &profile)
	assert.Equal(t, comment.Votes+1, profile.Comments[0].Votes)

	rec = c.do(http.MethodDelete, commentPath, bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	c.decode(c.do(http.MethodGet, postPath, "", nil), &detail)
	assert.Empty(t, detail.Comments)
	c.decode(c.do(http.MethodGet, "/profile", bob, nil), &profile)
	assert.Empty(t, profile.Comments)
}

func TestRoutes_MissingEntityIsNotCached(t *testing.T) {
	c := newClient(t)
	token := c.signup("alice")

	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/subreddits/1", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/subreddits/1/posts", "", nil).Code)

	sub := c.createSubreddit(token, "golang")
	require.Equal(t, int64(1), sub.ID)

	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/subreddits/1", "", nil).Code)
	rec := c.do(http.MethodGet, "/subreddits/1/posts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list forum.PostList
	c.decode(rec, &list)
	assert.NotNil(t, list.Posts)
	assert.Empty(t, list.Posts)
}

func TestRoutes_Auth(t *testing.T) {
	c := newClient(t)

	rec := c.do(http.MethodPost, "/subreddits", "", map[string]string{"name": "x", "description": "y"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = c.do(http.MethodGet, "/profile", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := c.signup("alice")
	rec = c.do(http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice", "email": "other@example.com", "password": "correct horse",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = c.do(http.MethodPost, "/auth/login", "", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "wrong password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/profile", token, nil).Code)
	require.Equal(t, http.StatusOK, c.do(http.MethodDelete, "/auth/logout", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/profile", token, nil).Code)
}

func TestRoutes_BadInput(t *testing.T) {
	c := newClient(t)
	token := c.signup("alice")

	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodGet, "/posts/abc", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/subreddits", token, map[string]string{"name": ""}).Code)
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/subreddits", token, map[string]string{"bogus": "field"}).Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodPost, "/posts", token, map[string]any{
		"subreddit_id": 99, "title": "t", "text": "x",
	}).Code)
}

func TestRoutes_ETag(t *testing.T) {
	c := newClient(t)
	token := c.signup("alice")
	c.createSubreddit(token, "golang")

	rec := c.do(http.MethodGet, "/subreddits", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	rec = c.do(http.MethodGet, "/subreddits", "", nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Zero(t, rec.Body.Len())

	c.createSubreddit(token, "rust")
	rec = c.do(http.MethodGet, "/subreddits", "", nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, etag, rec.Header().Get("ETag"))
}

func TestRoutes_WarmReadMatchesColdReadWithMsgpack(t *testing.T) {
	prev := time.Local
	time.Local = time.FixedZone("UTC-4", -4*60*60)
	t.Cleanup(func() { time.Local = prev })

	cfg := cache.DefaultConfig()
	cfg.Codec = cache.CodecMsgpack
	c := newClientWithCache(t, cfg)
	token := c.signup("alice")
	art := c.createSubreddit(token, "Art")
	c.createPost(token, art.ID, "First")

	for _, path := range []string{"/subreddits", fmt.Sprintf("/subreddits/%d", art.ID), "/posts", "/profile"} {
		bearer := ""
		if path == "/profile" {
			bearer = token
		}
		cold := c.do(http.MethodGet, path, bearer, nil)
		require.Equal(t, http.StatusOK, cold.Code, cold.Body.String())
		warm := c.do(http.MethodGet, path, bearer, nil)
		require.Equal(t, http.StatusOK, warm.Code, warm.Body.String())

		assert.Equal(t, cold.Body.String(), warm.Body.String(), path)
		assert.Equal(t, cold.Header().Get("ETag"), warm.Header().Get("ETag"), path)

		revalidate := c.do(http.MethodGet, path, bearer, nil, "If-None-Match", cold.Header().Get("ETag"))
		assert.Equal(t, http.StatusNotModified, revalidate.Code, path)
	}
}

func TestRoutes_HealthAndMetrics(t *testing.T) {
	c := newClient(t)

	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/", "", nil).Code)
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/healthz", "", nil).Code)

	c.do(http.MethodGet, "/posts", "", nil)
	c.do(http.MethodGet, "/posts", "", nil)

	rec := c.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `forum_view_cache_hits_total{view="posts_all"} 1`)
	assert.Contains(t, rec.Body.String(), `forum_view_cache_misses_total{view="posts_all"} 1`)
}
