package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by the catalog store.
var (
	// ErrNotFound is returned when a referenced product does not exist.
	ErrNotFound = errors.New("product not found")

	// ErrIndexTransaction is returned when an atomic index-maintenance
	// transaction is rejected by the store. The write is fatal: no partial
	// state is visible, and the operation must not be blindly retried
	// because version counters are bumped inside the same transaction.
	ErrIndexTransaction = errors.New("index transaction rejected")

	// ErrInvalidProduct is returned for writes that fail precondition
	// checks before any transaction is attempted.
	ErrInvalidProduct = errors.New("invalid product")
)

// isScriptNotFound reports whether a script error carries the NOT_FOUND
// reply used by the set-stock transaction.
func isScriptNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "NOT_FOUND")
}

// indexTxErr wraps a store-level failure of an index transaction.
func indexTxErr(op, id string, err error) error {
	return fmt.Errorf("%w: %s %s: %v", ErrIndexTransaction, op, id, err)
}
