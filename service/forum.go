// Package service holds every forum write path. Each operation validates,
// checks ownership, commits the store mutation and only then invalidates the
// cached views derived from what it touched.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-forum-cache/cache"
	"github.com/goliatone/go-forum-cache/forum"
	"github.com/goliatone/go-forum-cache/store"
	"github.com/goliatone/go-forum-cache/viewcache"
	"github.com/goliatone/go-forum-cache/views"
)

// PasswordHasher hashes and verifies user passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, encoded string) (bool, error)
}

// Forum implements the write side of the forum.
type Forum struct {
	store       *store.Store
	builder     *views.Builder
	invalidator *viewcache.Invalidator
	hasher      PasswordHasher
	logger      *zap.Logger
	now         func() time.Time
}

// Deps are the collaborators a Forum needs. Logger may be nil.
type Deps struct {
	Store       *store.Store
	Builder     *views.Builder
	Invalidator *viewcache.Invalidator
	Hasher      PasswordHasher
	Logger      *zap.Logger
}

func New(deps Deps) *Forum {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	builder := deps.Builder
	if builder == nil {
		builder = views.NewBuilder(deps.Store)
	}
	return &Forum{
		store:       deps.Store,
		builder:     builder,
		invalidator: deps.Invalidator,
		hasher:      deps.Hasher,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// RegisterUser creates an account. A taken username or email is forum.ErrConflict.
func (f *Forum) RegisterUser(ctx context.Context, in RegisterInput) (forum.UserView, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validate(in); err != nil {
		return forum.UserView{}, err
	}

	hash, err := f.hasher.Hash(in.Password)
	if err != nil {
		return forum.UserView{}, fmt.Errorf("hash password: %w", err)
	}

	user := &forum.User{
		UUID:         uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		CakeDay:      f.now(),
	}
	if err := f.store.Users.Create(ctx, user); err != nil {
		return forum.UserView{}, err
	}

	f.invalidator.Invalidate(ctx, viewcache.Mutation{Kind: viewcache.UserRegistered, Owner: user.Username})
	f.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return user.View(), nil
}

// Authenticate checks the login triple. Every mismatch is forum.ErrUnauthorized.
func (f *Forum) Authenticate(ctx context.Context, in LoginInput) (*forum.User, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	user, err := f.store.UserByUsername(ctx, in.Username)
	if errors.Is(err, forum.ErrNotFound) {
		return nil, fmt.Errorf("unknown user: %w", forum.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(user.Email, strings.TrimSpace(in.Email)) {
		return nil, fmt.Errorf("email mismatch: %w", forum.ErrUnauthorized)
	}
	ok, err := f.hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("wrong password: %w", forum.ErrUnauthorized)
	}
	return user, nil
}

// CreateSubreddit creates a subreddit, makes the creator its first member and
// primes its single-entity view.
func (f *Forum) CreateSubreddit(ctx context.Context, actor forum.Actor, in SubredditInput) (forum.SubredditView, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate(in); err != nil {
		return forum.SubredditView{}, err
	}

	now := f.now()
	sub := &forum.Subreddit{
		Name:        in.Name,
		Description: in.Description,
		CreatedBy:   actor.ID,
		CreatedOn:   now,
	}
	err := f.store.RunInTx(ctx, func(ctx context.Context, tx *store.Store) error {
		if err := tx.Subreddits.Create(ctx, sub); err != nil {
			return err
		}
		return tx.Memberships.Add(ctx, &forum.Membership{UserID: actor.ID, SubredditID: sub.ID, JoinedOn: now})
	})
	if err != nil {
		return forum.SubredditView{}, err
	}

	f.invalidator.Invalidate(ctx, viewcache.Mutation{
		Kind:        viewcache.SubredditCreated,
		SubredditID: sub.ID,
		Owner:       actor.Username,
	})

	view, err := f.builder.SubredditByID(ctx, sub.ID)
	if err != nil {
		return forum.SubredditView{}, err
	}
	f.invalidator.Prime(ctx, cache.ViewSubreddit, sub.ID, view)
	return view, nil
}

// EditSubreddit applies patch. Only the creator may edit.
func (f *Forum) EditSubreddit(ctx context.Context, actor forum.Actor, id int64, patch SubredditPatch) (forum.SubredditView, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}
	if err := validate(patch); err != nil {
		return forum.SubredditView{}, err
	}
	sub, err := f.store.Subreddits.GetByID(ctx, id)
	if err != nil {
		return forum.SubredditView{}, err
	}
	if sub.CreatedBy != actor.ID {
		return forum.SubredditView{}, fmt.Errorf("edit subreddit %d: %w", id, forum.ErrForbidden)
	}

	columns := []string{"modified_on"}
	if patch.Name != nil {
		sub.Name = *patch.Name
		columns = append(columns, "name")
	}
	if patch.Description != nil {
		sub.Description = *patch.Description
		columns = append(columns, "description")
	}
	sub.ModifiedOn = f.now()

	members, err := f.memberUsernames(ctx, id)
	if err != nil {
		return forum.SubredditView{}, err
	}
	if err := f.store.Subreddits.Update(ctx, sub, columns...); err != nil {
		return forum.SubredditView{}, err
	}

	f.invalidator.Invalidate(ctx, viewcache.Mutation{
		Kind:        viewcache.SubredditEdited,
		SubredditID: id,
		Owner:       actor.Username,
		Affected:    members,
	})
	return f.builder.SubredditByID(ctx, id)
}

// JoinSubreddit adds the actor as a member. Joining twice is forum.ErrConflict.
func (f *Forum) JoinSubreddit(ctx context.Context, actor forum.Actor, id int64) (forum.SubredditView, error) {
	if _, err := f.store.Subreddits.GetByID(ctx, id); err != nil {
		return forum.SubredditView{}, err
	}
	err := f.store.Memberships.Add(ctx, &forum.Membership{UserID: actor.ID, SubredditID: id, JoinedOn: f.now()})
	if err != nil {
		return forum.SubredditView{}, err
	}

	f.invalidator.Invalidate(ctx, viewcache.Mutation{
		Kind:        viewcache.SubredditJoined,
		SubredditID: id,
		Owner:       actor.Username,
	})
	return f.builder.SubredditByID(ctx, id)
}

const postsOfSubreddit = "SELECT id FROM posts WHERE subreddit_id = ?"

// DeleteSubreddit removes the subreddit with its memberships, posts and
// comments. Only the creator may delete. The affected users are read in the
// same transaction as the deletes.
func (f *Forum) DeleteSubreddit(ctx context.Context, actor forum.Actor, id int64) error {
	sub, err := f.store.Subreddits.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sub.CreatedBy != actor.ID {
		return fmt.Errorf("delete subreddit %d: %w", id, forum.ErrForbidden)
	}

	var (
		affected []string
		postIDs  []int64
	)
	err = f.store.RunInTx(ctx, func(ctx context.Context, tx *store.Store) error {
		// collect everyone whose views mention this subreddit before the rows go
		memberships, err := tx.Memberships.List(ctx, store.Where("subreddit_id", id))
		if err != nil {
			return err
		}
		posts, err := tx.Posts.List(ctx, store.Where("subreddit_id", id))
		if err != nil {
			return err
		}
		postIDs = make([]int64, 0, len(posts))
		userIDs := make([]int64, 0, len(memberships)+len(posts))
		for _, m := range memberships {
			userIDs = append(userIDs, m.UserID)
		}
		for _, p := range posts {
			postIDs = append(postIDs, p.ID)
			userIDs = append(userIDs, p.CreatedBy)
		}
		comments, err := tx.Comments.List(ctx, store.InSubquery("post_id", postsOfSubreddit, id))
		if err != nil {
			return err
		}
		for _, c := range comments {
			userIDs = append(userIDs, c.UserID)
		}
		if affected, err = usernames(ctx, tx, userIDs); err != nil {
			return err
		}

		if err := tx.Comments.DeleteWhere(ctx, "post_id IN ("+postsOfSubreddit+")", id); err != nil {
			return err
		}
		if err := tx.Posts.DeleteWhere(ctx, "subreddit_id = ?", id); err != nil {
			return err
		}
		if err := tx.Memberships.DeleteBySubreddit(ctx, id); err != nil {
			return err
		}
		return tx.Subreddits.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	f.invalidator.Invalidate(ctx, viewcache.Mutation{
		Kind:        viewcache.SubredditDeleted,
		SubredditID: id,
		Owner:       actor.Username,
		Affected:    affected,
		PostIDs:     postIDs,
	})
	f.logger.Info("subreddit deleted", zap.Int64("subreddit_id", id), zap.Int("posts", len(postIDs)))
	return nil
}

// CreatePost adds a post to an existing subreddit and primes its view.
func (f *Forum) CreatePost(ctx context.Context, actor forum.Actor, in PostInput) (forum.PostDetail, error) {
	if err := validate(in); err != nil {
		return forum.PostDetail{}, err
	}
	if _, err := f.store.Subreddits.GetByID(ctx, in.SubredditID); err != nil {
		return forum.PostDetail{}, err
	}

	post := &forum.Post{
		Title:       in.Title,
		Text:        in.Text,
		Votes:       forum.InitialVotes,
		CreatedBy:   actor.ID,
		SubredditID: in.SubredditID,
		CreatedOn:   f.now(),
	}
	if err := f.store.Posts.Create(ctx, post); err != nil {
		return forum.PostDetail{}, err
	}

	f.invalidator.Invalidate(ctx, viewcache.Mutation{
		Kind:        viewcache.PostCreated,
		PostID:      post.ID,
		SubredditID: post.SubredditID,
		Owner:       actor.Username,
	})

	view, err := f.builder.PostByID(ctx, post.ID)
	if err != nil {
		return forum.PostDetail{}, err
	}
	f.invalidator.Prime(ctx, cache.ViewPost, post.ID, view)
	return view, nil
}

// EditPost applies patch. Only the creator may edit; moving to an unknown
// subreddit is forum.ErrNotFound.
func (f *Forum) EditPost(ctx context.Context, actor forum.Actor, id int64, patch PostPatch) (forum.PostDetail, error) {
	if err := validate(patch); err != nil {
		return forum.PostDetail{}, err
	}
	post, err := f.store.Posts.GetByID(ctx, id)
	if err != nil {
		return forum.PostDetail{}, err
	}
	if post.CreatedBy != actor.ID {
		return forum.PostDetail{}, fmt.Errorf("edit post %d: %w", id, forum.ErrForbidden)
	}

	columns := []string{"modified_on"}
	var movedFrom int64
	if patch.SubredditID != nil && *patch.SubredditID != post.SubredditID {
		if _, err := f.store.Subreddits.GetByID(ctx, *patch.SubredditID); err != nil {
			return forum.PostDetail{}, err
		}
		movedFrom = post.SubredditID
		post.SubredditID = *patch.SubredditID
		columns = append(columns, "subreddit_id")
	}
	if patch.Title != nil {
		post.Title = *patch.Title
		columns = append(columns, "title")
	}
	if patch.Text != nil {
		post.Text = *patch.Text
		columns = append(columns, "text")
	}
	post.ModifiedOn = f.now()

	if err := f.store.Posts.Update(ctx, post, columns...); err != nil {
		return forum.PostDetail{}, err
	}

	f.invalidator.Invalidate(ctx, viewcache.Mutation{
		Kind:        viewcache.PostEdited,
		PostID:      id,
		SubredditID: post.SubredditID,
		MovedFrom:   movedFrom,
		Owner:       actor.Username,
	})
	return f.builder.PostByID(ctx, id)
}

// DeletePost removes the post and its comments. Only the creator may delete.
func (f *Forum) DeletePost(ctx context.Context, actor forum.Actor, id int64) error {
	post, err := f.store.Posts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if post.CreatedBy != actor.ID {
		return fmt.Errorf("delete post %d: %w", id, forum.ErrForbidden)
	}

	var authors []string
	err = f.store.RunInTx(ctx, func(ctx context.Context, tx *store.Store) error {
		comments, err := tx.Comments.List(ctx, store.Where("post_id", id))
		if err != nil {
			return err
		}
		authorIDs := make([]int64, 0, len(comments))
		for _, c := range comments {
			authorIDs = append(authorIDs, c.UserID)
		}
		if authors, err = usernames(ctx, tx, authorIDs); err != nil {
			return err
		}

		if err := tx.Comments.DeleteWhere(ctx, "post_id = ?", id); err != nil {
			return err
		}
		return tx.Posts.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	f.invalidator.Invalidate(ctx, viewcache.Mutation{
		Kind:        viewcache.PostDeleted,
		PostID:      id,
		SubredditID: post.SubredditID,
		Owner:       actor.Username,
		Affected:    authors,
	})
	return nil
}

// VotePost adds delta (+1 or -1) to the post score. Repeat votes are allowed.
func (f *Forum) VotePost(ctx context.Context, actor forum.Actor, id int64, delta int) error {
	if err := checkDelta(delta); err != nil {
		return err
	}
	post, err := f.store.Posts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	owner, err := f.username(ctx, post.CreatedBy)
	if err != nil {
		return err
	}
	if err := f.store.Posts.AddVotes(ctx, id, delta); err != nil {
		return err
	}

	f.invalidator.Invalidate(ctx, viewcache.Mutation{
		Kind:        viewcache.PostVoted,
		PostID:      id,
		SubredditID: post.SubredditID,
		Owner:       owner,
	})
	f.logger.Debug("post voted", zap.Int64("post_id", id), zap.Int("delta", delta), zap.Int64("voter", actor.ID))
	return nil
}

// AddComment adds a comment, optionally replying to another comment of the
// same post.
func (f *Forum) AddComment(ctx context.Context, actor forum.Actor, postID int64, in CommentInput) (forum.CommentView, error) {
	if err := validate(in); err != nil {
		return forum.CommentView{}, err
	}
	if _, err := f.store.Posts.GetByID(ctx, postID); err != nil {
		return forum.CommentView{}, err
	}
	if in.ParentID != nil {
		parent, err := f.store.Comments.GetByID(ctx, *in.ParentID)
		if err != nil {
			return forum.CommentView{}, err
		}
		if parent.PostID != postID {
			return forum.CommentView{}, fmt.Errorf("parent comment %d belongs to another post: %w", parent.ID, forum.ErrInvalidInput)
		}
	}

	comment := &forum.Comment{
		Body:      in.Comment,
		Votes:     forum.InitialVotes,
		UserID:    actor.ID,
		PostID:    postID,
		ParentID:  in.ParentID,
		CreatedOn: f.now(),
	}
	if err := f.store.Comments.Create(ctx, comment); err != nil {
		return forum.CommentView{}, err
	}

	f.invalidator.Invalidate(ctx, viewcache.Mutation{
		Kind:   viewcache.CommentAdded,
		PostID: postID,
		Owner:  actor.Username,
	})
	return commentView(*comment, actor), nil
}

// EditComment replaces the comment text. Only the author may edit.
func (f *Forum) EditComment(ctx context.Context, actor forum.Actor, postID, commentID int64, in CommentInput) (forum.CommentView, error) {
	if err := validate(in); err != nil {
		return forum.CommentView{}, err
	}
	comment, err := f.commentOf(ctx, postID, commentID)
	if err != nil {
		return forum.CommentView{}, err
	}
	if comment.UserID != actor.ID {
		return forum.CommentView{}, fmt.Errorf("edit comment %d: %w", commentID, forum.ErrForbidden)
	}

	comment.Body = in.Comment
	comment.ModifiedOn = f.now()
	if err := f.store.Comments.Update(ctx, comment, "comment", "modified_on"); err != nil {
		return forum.CommentView{}, err
	}

	f.invalidator.Invalidate(ctx, viewcache.Mutation{
		Kind:   viewcache.CommentEdited,
		PostID: postID,
		Owner:  actor.Username,
	})
	return commentView(*comment, actor), nil
}

// DeleteComment removes the comment together with every reply below it.
// Only the author may delete.
func (f *Forum) DeleteComment(ctx context.Context, actor forum.Actor, postID, commentID int64) error {
	comment, err := f.commentOf(ctx, postID, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != actor.ID {
		return fmt.Errorf("delete comment %d: %w", commentID, forum.ErrForbidden)
	}

	var affected []string
	err = f.store.RunInTx(ctx, func(ctx context.Context, tx *store.Store) error {
		all, err := tx.Comments.List(ctx, store.Where("post_id", postID))
		if err != nil {
			return err
		}
		doomed := descendants(all, commentID)
		replyAuthors := make([]int64, 0, len(doomed))
		for _, c := range all {
			if _, ok := doomed[c.ID]; ok && c.ID != commentID {
				replyAuthors = append(replyAuthors, c.UserID)
			}
		}
		if affected, err = usernames(ctx, tx, replyAuthors); err != nil {
			return err
		}

		ids := make([]int64, 0, len(doomed))
		for id := range doomed {
			ids = append(ids, id)
		}
		return tx.Comments.DeleteIn(ctx, "id", ids)
	})
	if err != nil {
		return err
	}

	f.invalidator.Invalidate(ctx, viewcache.Mutation{
		Kind:     viewcache.CommentDeleted,
		PostID:   postID,
		Owner:    actor.Username,
		Affected: affected,
	})
	return nil
}

// VoteComment adds delta (+1 or -1) to the comment score.
func (f *Forum) VoteComment(ctx context.Context, actor forum.Actor, postID, commentID int64, delta int) error {
	if err := checkDelta(delta); err != nil {
		return err
	}
	comment, err := f.commentOf(ctx, postID, commentID)
	if err != nil {
		return err
	}
	owner, err := f.username(ctx, comment.UserID)
	if err != nil {
		return err
	}
	if err := f.store.Comments.AddVotes(ctx, commentID, delta); err != nil {
		return err
	}

	f.invalidator.Invalidate(ctx, viewcache.Mutation{
		Kind:   viewcache.CommentVoted,
		PostID: postID,
		Owner:  owner,
	})
	f.logger.Debug("comment voted", zap.Int64("comment_id", commentID), zap.Int("delta", delta), zap.Int64("voter", actor.ID))
	return nil
}

// commentOf loads a comment and checks it sits under postID.
func (f *Forum) commentOf(ctx context.Context, postID, commentID int64) (*forum.Comment, error) {
	if _, err := f.store.Posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	comment, err := f.store.Comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.PostID != postID {
		return nil, fmt.Errorf("comment %d not under post %d: %w", commentID, postID, forum.ErrNotFound)
	}
	return comment, nil
}

func (f *Forum) memberUsernames(ctx context.Context, subredditID int64) ([]string, error) {
	memberships, err := f.store.Memberships.List(ctx, store.Where("subreddit_id", subredditID))
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.UserID)
	}
	return usernames(ctx, f.store, ids)
}

// usernames resolves ids through st, which may be bound to a transaction.
func usernames(ctx context.Context, st *store.Store, ids []int64) ([]string, error) {
	users, err := st.UsersByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(users))
	for _, id := range ids {
		if u, ok := users[id]; ok {
			out = append(out, u.Username)
			delete(users, id)
		}
	}
	return out, nil
}

func (f *Forum) username(ctx context.Context, id int64) (string, error) {
	user, err := f.store.Users.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return user.Username, nil
}

func checkDelta(delta int) error {
	if delta != 1 && delta != -1 {
		return fmt.Errorf("vote delta %d: %w", delta, forum.ErrInvalidInput)
	}
	return nil
}

// descendants returns root and every comment that transitively replies to it.
func descendants(comments []forum.Comment, root int64) map[int64]struct{} {
	children := make(map[int64][]int64)
	for _, c := range comments {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c.ID)
		}
	}

	out := map[int64]struct{}{root: {}}
	queue := []int64{root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range children[id] {
			if _, seen := out[child]; !seen {
				out[child] = struct{}{}
				queue = append(queue, child)
			}
		}
	}
	return out
}

func commentView(c forum.Comment, author forum.Actor) forum.CommentView {
	return forum.CommentView{
		ID:         c.ID,
		Comment:    c.Body,
		Votes:      c.Votes,
		PostID:     c.PostID,
		ParentID:   c.ParentID,
		CreatedOn:  c.CreatedOn,
		ModifiedOn: forum.OptionalTime(c.ModifiedOn),
		User:       forum.UserView{ID: author.ID, Username: author.Username},
	}
}
