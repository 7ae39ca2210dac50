package forum

import "time"

// The types below are the projections served to clients and stored in the
// view cache. They carry no password material.

type UserView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type CommentView struct {
	ID         int64      `json:"id"`
	Comment    string     `json:"comment"`
	Votes      int        `json:"votes"`
	PostID     int64      `json:"post_id"`
	ParentID   *int64     `json:"parent_id,omitempty"`
	CreatedOn  time.Time  `json:"created_on"`
	ModifiedOn *time.Time `json:"modified_on,omitempty"`
	User       UserView   `json:"user"`
}

// PostView is a post with its creator.
type PostView struct {
	ID          int64      `json:"id"`
	SubredditID int64      `json:"subreddit_id"`
	Title       string     `json:"title"`
	Text        string     `json:"text"`
	Votes       int        `json:"votes"`
	CreatedOn   time.Time  `json:"created_on"`
	ModifiedOn  *time.Time `json:"modified_on,omitempty"`
	User        UserView   `json:"user"`
}

// PostDetail is the single-post view: the post plus every comment under it.
type PostDetail struct {
	PostView
	Comments []CommentView `json:"comments"`
}

type PostList struct {
	Posts []PostView `json:"posts"`
}

type MemberView struct {
	ID       int64     `json:"id"`
	Username string    `json:"username"`
	JoinedOn time.Time `json:"joined_on"`
}

type SubredditView struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	CreatedOn   time.Time    `json:"created_on"`
	ModifiedOn  *time.Time   `json:"modified_on,omitempty"`
	User        UserView     `json:"user"`
	Members     []MemberView `json:"members"`
}

type SubredditList struct {
	Subreddits []SubredditView `json:"subreddits"`
}

// SubredditSummary is the membership-free subreddit shape used inside
// profiles, so that a join only touches the joiner's profile.
type SubredditSummary struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	CreatedOn   time.Time  `json:"created_on"`
	ModifiedOn  *time.Time `json:"modified_on,omitempty"`
}

type PostSummary struct {
	ID          int64      `json:"id"`
	SubredditID int64      `json:"subreddit_id"`
	Title       string     `json:"title"`
	Text        string     `json:"text"`
	Votes       int        `json:"votes"`
	CreatedOn   time.Time  `json:"created_on"`
	ModifiedOn  *time.Time `json:"modified_on,omitempty"`
}

type CommentSummary struct {
	ID         int64      `json:"id"`
	Comment    string     `json:"comment"`
	Votes      int        `json:"votes"`
	PostID     int64      `json:"post_id"`
	ParentID   *int64     `json:"parent_id,omitempty"`
	CreatedOn  time.Time  `json:"created_on"`
	ModifiedOn *time.Time `json:"modified_on,omitempty"`
}

// ProfileView aggregates everything a user owns or joined. A subreddit the
// user created appears under CreatedSubreddits only.
type ProfileView struct {
	ID                int64              `json:"id"`
	UUID              string             `json:"uuid"`
	Username          string             `json:"username"`
	Email             string             `json:"email"`
	CakeDay           time.Time          `json:"cake_day"`
	CreatedSubreddits []SubredditSummary `json:"created_subreddits"`
	JoinedSubreddits  []SubredditSummary `json:"joined_subreddits"`
	Posts             []PostSummary      `json:"posts"`
	Comments          []CommentSummary   `json:"comments"`
}

// OptionalTime maps a nullable column to its projection form.
func OptionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t
	return &v
}

func (u User) View() UserView {
	return UserView{ID: u.ID, Username: u.Username}
}

func (s Subreddit) Summary() SubredditSummary {
	return SubredditSummary{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		CreatedOn:   s.CreatedOn,
		ModifiedOn:  OptionalTime(s.ModifiedOn),
	}
}

func (p Post) Summary() PostSummary {
	return PostSummary{
		ID:          p.ID,
		SubredditID: p.SubredditID,
		Title:       p.Title,
		Text:        p.Text,
		Votes:       p.Votes,
		CreatedOn:   p.CreatedOn,
		ModifiedOn:  OptionalTime(p.ModifiedOn),
	}
}

func (c Comment) Summary() CommentSummary {
	return CommentSummary{
		ID:         c.ID,
		Comment:    c.Body,
		Votes:      c.Votes,
		PostID:     c.PostID,
		ParentID:   c.ParentID,
		CreatedOn:  c.CreatedOn,
		ModifiedOn: OptionalTime(c.ModifiedOn),
	}
}
