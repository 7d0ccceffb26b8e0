package credits

import (
	"errors"
	"fmt"
)

var (
	// ErrAccountNotFound is returned by Store.Get when no account exists
	ErrAccountNotFound = errors.New("credit account not found")

	// ErrEmptyUserID is returned when an operation receives a blank user id
	ErrEmptyUserID = errors.New("user id is required")

	// ErrEmptyGrantKey is returned when GrantUnlimited receives a blank key
	ErrEmptyGrantKey = errors.New("grant key is required")
)

// StoreError wraps a failure of the backing store. It marks the
// infrastructure category: the request may be retried, nothing was
// mutated optimistically.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("credit store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsInfrastructure reports whether err is (or wraps) a store failure
func IsInfrastructure(err error) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr)
}

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
