package swrcache

import (
	"errors"
	"fmt"
)

// ErrValidation matches every *ValidationError via errors.Is.
var ErrValidation = errors.New("swrcache: validation failed")

// ValidationError reports malformed caller input. It is always returned to
// the caller and never routed to OnError.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("swrcache: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// StorageError wraps a provider failure with the operation and key involved.
type StorageError struct {
	Op        string // "get", "set", "del", "clear"
	Namespace string
	ID        string
	Err       error
}

func (e *StorageError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("swrcache: %s %q: %v", e.Op, e.Namespace, e.Err)
	}
	return fmt.Sprintf("swrcache: %s %q/%q: %v", e.Op, e.Namespace, e.ID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func validate(args Args, needID bool) error {
	if args.Namespace == "" {
		return &ValidationError{Field: "namespace", Reason: "required"}
	}
	if needID && args.ID == "" {
		return &ValidationError{Field: "id", Reason: "required"}
	}
	return nil
}
