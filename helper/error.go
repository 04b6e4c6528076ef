package helper

import "fmt"

// NewError wraps err with the operation that produced it, giving every
// database and pipeline failure a consistent "op: cause" shape.
func NewError(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
