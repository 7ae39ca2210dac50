package store

import (
	"context"
	"database/sql"
	"fmt"

	repository "github.com/goliatone/go-repository-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-forum-cache/forum"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Open connects to the relational store and picks the matching bun dialect.
func Open(driver, dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	switch driver {
	case DriverSQLite:
		// one connection keeps in-memory databases shared and serialises writers
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	case DriverPostgres:
		return bun.NewDB(sqldb, pgdialect.New()), nil
	default:
		_ = sqldb.Close()
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

// CreateSchema creates every table that does not exist yet.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, model := range forum.Models() {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}

// DropSchema drops every table in reverse creation order.
func DropSchema(ctx context.Context, db bun.IDB) error {
	models := forum.Models()
	for i := len(models) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(models[i]).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop table for %T: %w", models[i], err)
		}
	}
	return nil
}

// Store groups the entity repositories over one connection or transaction.
type Store struct {
	db          *bun.DB
	idb         bun.IDB
	Users       *Repo[forum.User]
	Subreddits  *Repo[forum.Subreddit]
	Posts       *Repo[forum.Post]
	Comments    *Repo[forum.Comment]
	Memberships *Memberships
}

// New returns a Store over db.
func New(db *bun.DB) *Store {
	return &Store{
		db:          db,
		idb:         db,
		Users:       newRepo(db, userModel),
		Subreddits:  newRepo(db, subredditModel),
		Posts:       newRepo(db, postModel),
		Comments:    newRepo(db, commentModel),
		Memberships: &Memberships{repo: newRepo(db, membershipModel)},
	}
}

// bind returns a copy of s whose repositories run on idb.
func (s *Store) bind(idb bun.IDB) *Store {
	return &Store{
		db:          s.db,
		idb:         idb,
		Users:       s.Users.bind(idb),
		Subreddits:  s.Subreddits.bind(idb),
		Posts:       s.Posts.bind(idb),
		Comments:    s.Comments.bind(idb),
		Memberships: &Memberships{repo: s.Memberships.repo.bind(idb)},
	}
}

// RunInTx runs fn with a Store bound to a transaction. fn's error rolls the
// transaction back and is returned unchanged. Inside a transaction it opens
// a savepoint.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx *Store) error) error {
	return s.idb.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, s.bind(tx))
	})
}

// UserByUsername looks a user up by their unique username.
func (s *Store) UserByUsername(ctx context.Context, username string) (*forum.User, error) {
	return s.Users.Get(ctx, Where("username", username))
}

// UsersByID loads the users with the given ids, keyed by id.
func (s *Store) UsersByID(ctx context.Context, ids []int64) (map[int64]forum.User, error) {
	out := make(map[int64]forum.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	users, err := s.Users.List(ctx, WhereIn("id", uniqueIDs(ids)))
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// Memberships manages the user/subreddit join table.
type Memberships struct {
	repo *Repo[forum.Membership]
}

// Add records a join. A repeated join fails with forum.ErrConflict.
func (m *Memberships) Add(ctx context.Context, membership *forum.Membership) error {
	return m.repo.Create(ctx, membership)
}

func (m *Memberships) Exists(ctx context.Context, userID, subredditID int64) (bool, error) {
	n, err := m.repo.Count(ctx, Where("user_id", userID), Where("subreddit_id", subredditID))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns memberships matching criteria.
func (m *Memberships) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]forum.Membership, error) {
	return m.repo.List(ctx, criteria...)
}

func (m *Memberships) DeleteBySubreddit(ctx context.Context, subredditID int64) error {
	return m.repo.DeleteWhere(ctx, "subreddit_id = ?", subredditID)
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
