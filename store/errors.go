package store

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"

	"github.com/goliatone/go-forum-cache/forum"
)

// wrapError maps driver and repository errors onto the forum sentinels.
// Raw driver errors are first classified with the repository's mappers for
// driver.
func wrapError(op, driver string, err error) error {
	if err == nil {
		return nil
	}
	if !goerrors.IsWrapped(err) {
		err = repository.MapDatabaseError(err, driver)
	}

	switch {
	case repository.IsRecordNotFound(err), repository.IsSQLExpectedCountViolation(err):
		return fmt.Errorf("%s: %w", op, forum.ErrNotFound)
	case repository.IsDuplicatedKey(err):
		return fmt.Errorf("%s: %w: %v", op, forum.ErrConflict, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
