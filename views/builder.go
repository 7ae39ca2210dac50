// Package views composes store reads into the projections served by the API.
// Nothing here touches the cache.
package views

import (
	"context"
	"fmt"

	"github.com/goliatone/go-forum-cache/forum"
	"github.com/goliatone/go-forum-cache/store"
)

// Builder derives projections from the entity store.
type Builder struct {
	store *store.Store
}

func NewBuilder(s *store.Store) *Builder {
	return &Builder{store: s}
}

// PostByID returns the post with its creator and every comment, oldest first.
func (b *Builder) PostByID(ctx context.Context, id int64) (forum.PostDetail, error) {
	post, err := b.store.Posts.GetByID(ctx, id)
	if err != nil {
		return forum.PostDetail{}, err
	}
	comments, err := b.store.Comments.List(ctx, store.Where("post_id", id), store.Oldest())
	if err != nil {
		return forum.PostDetail{}, err
	}

	ids := []int64{post.CreatedBy}
	for _, c := range comments {
		ids = append(ids, c.UserID)
	}
	users, err := b.store.UsersByID(ctx, ids)
	if err != nil {
		return forum.PostDetail{}, err
	}

	view := forum.PostDetail{PostView: postView(*post, users)}
	view.Comments = make([]forum.CommentView, 0, len(comments))
	for _, c := range comments {
		view.Comments = append(view.Comments, forum.CommentView{
			ID:         c.ID,
			Comment:    c.Body,
			Votes:      c.Votes,
			PostID:     c.PostID,
			ParentID:   c.ParentID,
			CreatedOn:  c.CreatedOn,
			ModifiedOn: forum.OptionalTime(c.ModifiedOn),
			User:       users[c.UserID].View(),
		})
	}
	return view, nil
}

// AllPosts lists every post, newest first.
func (b *Builder) AllPosts(ctx context.Context) (forum.PostList, error) {
	posts, err := b.store.Posts.List(ctx, store.Newest())
	if err != nil {
		return forum.PostList{}, err
	}
	return b.postList(ctx, posts)
}

// PostsInSubreddit lists the posts of one subreddit, newest first. An
// unknown subreddit is forum.ErrNotFound; a subreddit with no posts is an
// empty list.
func (b *Builder) PostsInSubreddit(ctx context.Context, subredditID int64) (forum.PostList, error) {
	if _, err := b.store.Subreddits.GetByID(ctx, subredditID); err != nil {
		return forum.PostList{}, err
	}
	posts, err := b.store.Posts.List(ctx, store.Where("subreddit_id", subredditID), store.Newest())
	if err != nil {
		return forum.PostList{}, err
	}
	return b.postList(ctx, posts)
}

// SubredditByID returns the subreddit with its creator and members.
func (b *Builder) SubredditByID(ctx context.Context, id int64) (forum.SubredditView, error) {
	sub, err := b.store.Subreddits.GetByID(ctx, id)
	if err != nil {
		return forum.SubredditView{}, err
	}
	views, err := b.subredditViews(ctx, []forum.Subreddit{*sub})
	if err != nil {
		return forum.SubredditView{}, err
	}
	return views[0], nil
}

// AllSubreddits lists every subreddit, oldest first.
func (b *Builder) AllSubreddits(ctx context.Context) (forum.SubredditList, error) {
	subs, err := b.store.Subreddits.List(ctx, store.Oldest())
	if err != nil {
		return forum.SubredditList{}, err
	}
	views, err := b.subredditViews(ctx, subs)
	if err != nil {
		return forum.SubredditList{}, err
	}
	return forum.SubredditList{Subreddits: views}, nil
}

// Profile aggregates the user's created and joined subreddits, posts and
// comments.
func (b *Builder) Profile(ctx context.Context, username string) (forum.ProfileView, error) {
	user, err := b.store.UserByUsername(ctx, username)
	if err != nil {
		return forum.ProfileView{}, err
	}

	created, err := b.store.Subreddits.List(ctx, store.Where("created_by", user.ID), store.Oldest())
	if err != nil {
		return forum.ProfileView{}, err
	}
	memberships, err := b.store.Memberships.List(ctx, store.Where("user_id", user.ID), store.OrderBy("joined_on ASC, subreddit_id ASC"))
	if err != nil {
		return forum.ProfileView{}, err
	}

	createdIDs := make(map[int64]struct{}, len(created))
	for _, s := range created {
		createdIDs[s.ID] = struct{}{}
	}
	joinedIDs := make([]int64, 0, len(memberships))
	for _, m := range memberships {
		if _, own := createdIDs[m.SubredditID]; !own {
			joinedIDs = append(joinedIDs, m.SubredditID)
		}
	}
	joined, err := b.store.Subreddits.List(ctx, store.WhereIn("id", joinedIDs))
	if err != nil {
		return forum.ProfileView{}, err
	}
	joinedByID := make(map[int64]forum.Subreddit, len(joined))
	for _, s := range joined {
		joinedByID[s.ID] = s
	}

	posts, err := b.store.Posts.List(ctx, store.Where("created_by", user.ID), store.Newest())
	if err != nil {
		return forum.ProfileView{}, err
	}
	comments, err := b.store.Comments.List(ctx, store.Where("user_id", user.ID), store.Newest())
	if err != nil {
		return forum.ProfileView{}, err
	}

	profile := forum.ProfileView{
		ID:                user.ID,
		UUID:              user.UUID,
		Username:          user.Username,
		Email:             user.Email,
		CakeDay:           user.CakeDay,
		CreatedSubreddits: make([]forum.SubredditSummary, 0, len(created)),
		JoinedSubreddits:  make([]forum.SubredditSummary, 0, len(joinedIDs)),
		Posts:             make([]forum.PostSummary, 0, len(posts)),
		Comments:          make([]forum.CommentSummary, 0, len(comments)),
	}
	for _, s := range created {
		profile.CreatedSubreddits = append(profile.CreatedSubreddits, s.Summary())
	}
	// keep join order
	for _, id := range joinedIDs {
		if s, ok := joinedByID[id]; ok {
			profile.JoinedSubreddits = append(profile.JoinedSubreddits, s.Summary())
		}
	}
	for _, p := range posts {
		profile.Posts = append(profile.Posts, p.Summary())
	}
	for _, c := range comments {
		profile.Comments = append(profile.Comments, c.Summary())
	}
	return profile, nil
}

func (b *Builder) postList(ctx context.Context, posts []forum.Post) (forum.PostList, error) {
	ids := make([]int64, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.CreatedBy)
	}
	users, err := b.store.UsersByID(ctx, ids)
	if err != nil {
		return forum.PostList{}, err
	}

	list := forum.PostList{Posts: make([]forum.PostView, 0, len(posts))}
	for _, p := range posts {
		list.Posts = append(list.Posts, postView(p, users))
	}
	return list, nil
}

func (b *Builder) subredditViews(ctx context.Context, subs []forum.Subreddit) ([]forum.SubredditView, error) {
	subIDs := make([]int64, 0, len(subs))
	userIDs := make([]int64, 0, len(subs))
	for _, s := range subs {
		subIDs = append(subIDs, s.ID)
		userIDs = append(userIDs, s.CreatedBy)
	}

	memberships, err := b.store.Memberships.List(ctx, store.WhereIn("subreddit_id", subIDs), store.OrderBy("joined_on ASC, user_id ASC"))
	if err != nil {
		return nil, err
	}
	for _, m := range memberships {
		userIDs = append(userIDs, m.UserID)
	}
	users, err := b.store.UsersByID(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	members := make(map[int64][]forum.MemberView, len(subs))
	for _, m := range memberships {
		u, ok := users[m.UserID]
		if !ok {
			return nil, fmt.Errorf("membership of unknown user %d: %w", m.UserID, forum.ErrNotFound)
		}
		members[m.SubredditID] = append(members[m.SubredditID], forum.MemberView{
			ID:       u.ID,
			Username: u.Username,
			JoinedOn: m.JoinedOn,
		})
	}

	out := make([]forum.SubredditView, 0, len(subs))
	for _, s := range subs {
		list := members[s.ID]
		if list == nil {
			list = []forum.MemberView{}
		}
		out = append(out, forum.SubredditView{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			CreatedOn:   s.CreatedOn,
			ModifiedOn:  forum.OptionalTime(s.ModifiedOn),
			User:        users[s.CreatedBy].View(),
			Members:     list,
		})
	}
	return out, nil
}

func postView(p forum.Post, users map[int64]forum.User) forum.PostView {
	return forum.PostView{
		ID:          p.ID,
		SubredditID: p.SubredditID,
		Title:       p.Title,
		Text:        p.Text,
		Votes:       p.Votes,
		CreatedOn:   p.CreatedOn,
		ModifiedOn:  forum.OptionalTime(p.ModifiedOn),
		User:        users[p.CreatedBy].View(),
	}
}
