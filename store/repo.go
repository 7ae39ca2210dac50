package store

import (
	"context"
	"strconv"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-forum-cache/forum"
)

// Repo provides the id-keyed reads and writes shared by every entity table.
// It runs go-repository-bun's transactional variants against either the
// database or the transaction the Store is bound to.
type Repo[T any] struct {
	repo   repository.Repository[*T]
	db     bun.IDB
	entity string
	driver string
	setID  func(*T, int64)
}

// model describes how the generic repository creates and identifies T.
type model[T any] struct {
	entity string
	// setID writes the integer primary key; nil for tables keyed otherwise.
	setID    func(*T, int64)
	handlers repository.ModelHandlers[*T]
}

// serialModel is the model of a table with an autoincrement id and no
// external identifier. The database assigns the key, so the uuid hooks the
// repository calls on create are inert.
func serialModel[T any](entity string, setID func(*T, int64)) model[T] {
	return model[T]{
		entity: entity,
		setID:  setID,
		handlers: repository.ModelHandlers[*T]{
			NewRecord:     func() *T { return new(T) },
			GetID:         func(*T) uuid.UUID { return uuid.Nil },
			SetID:         func(*T, uuid.UUID) {},
			GetIdentifier: func() string { return "id" },
		},
	}
}

func newRepo[T any](db *bun.DB, m model[T]) *Repo[T] {
	return &Repo[T]{
		repo:   repository.NewRepository[*T](db, m.handlers),
		db:     db,
		entity: m.entity,
		driver: repository.DetectDriver(db),
		setID:  m.setID,
	}
}

// bind returns a copy of r that runs on db.
func (r *Repo[T]) bind(db bun.IDB) *Repo[T] {
	bound := *r
	bound.db = db
	return &bound
}

// GetByID returns the record with id, or an error wrapping forum.ErrNotFound.
func (r *Repo[T]) GetByID(ctx context.Context, id int64, criteria ...repository.SelectCriteria) (*T, error) {
	record, err := r.repo.GetByIDTx(ctx, r.db, formatID(id), criteria...)
	if err != nil {
		return nil, r.wrap("get", err)
	}
	return record, nil
}

// Get returns the first record matching criteria.
func (r *Repo[T]) Get(ctx context.Context, criteria ...repository.SelectCriteria) (*T, error) {
	record, err := r.repo.GetTx(ctx, r.db, criteria...)
	if err != nil {
		return nil, r.wrap("get", err)
	}
	return record, nil
}

// List returns every record matching criteria. An empty result is an empty,
// non-nil slice.
func (r *Repo[T]) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, error) {
	criteria = append([]repository.SelectCriteria{unpaginated}, criteria...)
	records, _, err := r.repo.ListTx(ctx, r.db, criteria...)
	if err != nil {
		return nil, r.wrap("list", err)
	}
	out := make([]T, 0, len(records))
	for _, record := range records {
		out = append(out, *record)
	}
	return out, nil
}

// Count returns the number of records matching criteria.
func (r *Repo[T]) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	n, err := r.repo.CountTx(ctx, r.db, criteria...)
	if err != nil {
		return 0, r.wrap("count", err)
	}
	return n, nil
}

// Create inserts record and fills its generated columns.
func (r *Repo[T]) Create(ctx context.Context, record *T) error {
	if _, err := r.repo.CreateTx(ctx, r.db, record); err != nil {
		return r.wrap("create", err)
	}
	return nil
}

// Update writes the named columns of record, matched by primary key.
func (r *Repo[T]) Update(ctx context.Context, record *T, columns ...string) error {
	if _, err := r.repo.UpdateTx(ctx, r.db, record, repository.UpdateColumns(columns...)); err != nil {
		return r.wrap("update", err)
	}
	return nil
}

// AddVotes adjusts the votes column in place so concurrent votes never lose
// an update.
func (r *Repo[T]) AddVotes(ctx context.Context, id int64, delta int) error {
	record := new(T)
	r.setID(record, id)
	_, err := r.repo.UpdateTx(ctx, r.db, record, repository.UpdateRawProcessor(func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("votes = votes + ?", delta)
	}))
	if err != nil {
		return r.wrap("vote", err)
	}
	return nil
}

// Delete removes the record with id.
func (r *Repo[T]) Delete(ctx context.Context, id int64) error {
	n, err := r.repo.CountTx(ctx, r.db, repository.SelectByID(formatID(id)))
	if err != nil {
		return r.wrap("delete", err)
	}
	if n == 0 {
		return r.wrap("delete", repository.NewRecordNotFound())
	}

	record := new(T)
	r.setID(record, id)
	if err := r.repo.DeleteTx(ctx, r.db, record); err != nil {
		return r.wrap("delete", err)
	}
	return nil
}

// DeleteWhere removes every record matching where; zero rows is not an error.
func (r *Repo[T]) DeleteWhere(ctx context.Context, where string, args ...any) error {
	err := r.repo.DeleteWhereTx(ctx, r.db, func(q *bun.DeleteQuery) *bun.DeleteQuery {
		return q.Where(where, args...)
	})
	if err != nil {
		return r.wrap("delete", err)
	}
	return nil
}

// DeleteIn removes every record whose column is one of values.
func (r *Repo[T]) DeleteIn(ctx context.Context, column string, values []int64) error {
	if len(values) == 0 {
		return nil
	}
	return r.DeleteWhere(ctx, "? IN (?)", bun.Ident(column), bun.In(values))
}

func (r *Repo[T]) wrap(op string, err error) error {
	return wrapError(op+" "+r.entity, r.driver, err)
}

// unpaginated lifts the repository's default page size; views always need
// the whole result.
func unpaginated(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Limit(0).Offset(0)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

var (
	userModel = model[forum.User]{
		entity: "user",
		setID:  func(u *forum.User, id int64) { u.ID = id },
		handlers: repository.ModelHandlers[*forum.User]{
			NewRecord: func() *forum.User { return new(forum.User) },
			// a missing or malformed external id is replaced on create
			GetID: func(u *forum.User) uuid.UUID {
				id, err := uuid.Parse(u.UUID)
				if err != nil {
					return uuid.Nil
				}
				return id
			},
			SetID:         func(u *forum.User, id uuid.UUID) { u.UUID = id.String() },
			GetIdentifier: func() string { return "username" },
		},
	}

	subredditModel = serialModel("subreddit", func(s *forum.Subreddit, id int64) { s.ID = id })
	postModel      = serialModel("post", func(p *forum.Post, id int64) { p.ID = id })
	commentModel   = serialModel("comment", func(c *forum.Comment, id int64) { c.ID = id })

	membershipModel = model[forum.Membership]{
		entity: "membership",
		handlers: repository.ModelHandlers[*forum.Membership]{
			NewRecord:     func() *forum.Membership { return new(forum.Membership) },
			GetID:         func(*forum.Membership) uuid.UUID { return uuid.Nil },
			SetID:         func(*forum.Membership, uuid.UUID) {},
			GetIdentifier: func() string { return "user_id" },
		},
	}
)
