package testsupport

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-forum-cache/forum"
	"github.com/goliatone/go-forum-cache/store"
)

var dbSeq atomic.Int64

// NewTestDB opens a private in-memory sqlite database with the forum schema.
// It is closed when the test ends.
func NewTestDB(t testing.TB) *bun.DB {
	t.Helper()

	// a named shared-cache database keeps every connection on the same data
	dsn := fmt.Sprintf("file:forum_test_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), dbSeq.Add(1))
	db, err := store.Open(store.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := store.CreateSchema(context.Background(), db); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return db
}

// Fixtures is a seed set loaded from JSON. Rows are inserted in table order
// and keep their ids.
type Fixtures struct {
	Users       []forum.User       `json:"users"`
	Subreddits  []forum.Subreddit  `json:"subreddits"`
	Memberships []forum.Membership `json:"memberships"`
	Posts       []forum.Post       `json:"posts"`
	Comments    []forum.Comment    `json:"comments"`
}

// Seed inserts every fixture row into db.
func Seed(t testing.TB, db bun.IDB, fx Fixtures) {
	t.Helper()

	ctx := context.Background()
	insert := func(name string, rows any, n int) {
		if n == 0 {
			return
		}
		if _, err := db.NewInsert().Model(rows).Exec(ctx); err != nil {
			t.Fatalf("failed to seed %s: %v", name, err)
		}
	}
	insert("users", &fx.Users, len(fx.Users))
	insert("subreddits", &fx.Subreddits, len(fx.Subreddits))
	insert("memberships", &fx.Memberships, len(fx.Memberships))
	insert("posts", &fx.Posts, len(fx.Posts))
	insert("comments", &fx.Comments, len(fx.Comments))
}

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}
	return data
}

// LoadFixtureJSON loads JSON test data from a fixture file and unmarshals it.
func LoadFixtureJSON(t testing.TB, path string, dest any) {
	t.Helper()

	if err := json.Unmarshal(LoadFixture(t, path), dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// JSONEqual reports whether two values encode to the same JSON document.
func JSONEqual(t testing.TB, want, got any) bool {
	t.Helper()

	a, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("failed to marshal %T: %v", want, err)
	}
	b, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("failed to marshal %T: %v", got, err)
	}
	return string(a) == string(b)
}
