package forum

import (
	"time"

	"github.com/uptrace/bun"
)

// User is a registered account. PasswordHash never leaves the store layer.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	UUID         string    `bun:"uuid,notnull,unique" json:"uuid"`
	Username     string    `bun:"username,notnull,unique" json:"username"`
	Email        string    `bun:"email,notnull,unique" json:"email"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	CakeDay      time.Time `bun:"cake_day,notnull" json:"cake_day"`
}

type Subreddit struct {
	bun.BaseModel `bun:"table:subreddits,alias:s"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	Name        string    `bun:"name,notnull,unique" json:"name"`
	Description string    `bun:"description,notnull" json:"description"`
	CreatedBy   int64     `bun:"created_by,notnull" json:"created_by"`
	CreatedOn   time.Time `bun:"created_on,notnull" json:"created_on"`
	ModifiedOn  time.Time `bun:"modified_on,nullzero" json:"modified_on"`
}

// Membership records that a user joined a subreddit. A creator is a member
// of every subreddit they create.
type Membership struct {
	bun.BaseModel `bun:"table:memberships,alias:m"`

	UserID      int64     `bun:"user_id,pk" json:"user_id"`
	SubredditID int64     `bun:"subreddit_id,pk" json:"subreddit_id"`
	JoinedOn    time.Time `bun:"joined_on,notnull" json:"joined_on"`
}

type Post struct {
	bun.BaseModel `bun:"table:posts,alias:p"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	Title       string    `bun:"title,notnull" json:"title"`
	Text        string    `bun:"text,notnull" json:"text"`
	Votes       int       `bun:"votes,notnull,default:1" json:"votes"`
	CreatedBy   int64     `bun:"created_by,notnull" json:"created_by"`
	SubredditID int64     `bun:"subreddit_id,notnull" json:"subreddit_id"`
	CreatedOn   time.Time `bun:"created_on,notnull" json:"created_on"`
	ModifiedOn  time.Time `bun:"modified_on,nullzero" json:"modified_on"`
}

// Comment belongs to a post and optionally replies to another comment of the
// same post.
type Comment struct {
	bun.BaseModel `bun:"table:comments,alias:c"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id"`
	Body       string    `bun:"comment,notnull" json:"comment"`
	Votes      int       `bun:"votes,notnull,default:1" json:"votes"`
	UserID     int64     `bun:"user_id,notnull" json:"user_id"`
	PostID     int64     `bun:"post_id,notnull" json:"post_id"`
	ParentID   *int64    `bun:"parent_id" json:"parent_id"`
	CreatedOn  time.Time `bun:"created_on,notnull" json:"created_on"`
	ModifiedOn time.Time `bun:"modified_on,nullzero" json:"modified_on"`
}

// InitialVotes is the score every new post and comment starts with: the
// author's own implicit vote.
const InitialVotes = 1

// Models lists every table in creation order.
func Models() []any {
	return []any{
		(*User)(nil),
		(*Subreddit)(nil),
		(*Membership)(nil),
		(*Post)(nil),
		(*Comment)(nil),
	}
}

// Actor is the authenticated user performing a write.
type Actor struct {
	ID       int64
	Username string
}
