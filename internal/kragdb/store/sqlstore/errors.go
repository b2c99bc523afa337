package sqlstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/BrandonDHaskell/kragdb/internal/kragdb/store"
)

// pgUniqueViolation is SQLSTATE 23505.
const pgUniqueViolation = "23505"

// classify marks unique-constraint failures with store.ErrConflict. The
// driver error stays in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %w", store.ErrConflict, err)
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %w", store.ErrConflict, err)
		case sqlite3.SQLITE_CONSTRAINT:
			// connections without extended result codes
			if strings.Contains(liteErr.Error(), "UNIQUE constraint failed") {
				return fmt.Errorf("%w: %w", store.ErrConflict, err)
			}
		}
	}

	return err
}
