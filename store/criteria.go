package store

import (
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// Where filters on column = value.
func Where(column string, value any) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("? = ?", bun.Ident(column), value)
	}
}

// WhereIn filters on column IN (values...). An empty set matches nothing.
func WhereIn[V any](column string, values []V) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		if len(values) == 0 {
			return q.Where("1 = 0")
		}
		return repository.SelectColumnIn(column, values)(q)
	}
}

// InSubquery filters on column IN (query), with args bound into query.
func InSubquery(column, query string, args ...any) repository.SelectCriteria {
	return repository.SelectColumnInSubq(column, query, args...)
}

// OrderBy sorts by the given expression, e.g. "created_on DESC".
func OrderBy(expr string) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.OrderExpr(expr)
	}
}

// Newest orders by creation time, latest first, with id as tie-breaker.
func Newest() repository.SelectCriteria {
	return OrderBy("created_on DESC, id DESC")
}

// Oldest orders by creation time, earliest first, with id as tie-breaker.
func Oldest() repository.SelectCriteria {
	return OrderBy("created_on ASC, id ASC")
}
