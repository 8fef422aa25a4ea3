package feed

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidVotes  = errors.New("invalid votes")
	ErrMalformedFeed = errors.New("malformed feed")
)

// FieldError reports an item that could not be finalized because one of its
// fields held unusable content. Only that item is dropped.
type FieldError struct {
	// Index is the zero-based position of the <item> in the document.
	Index int
	// Key is the issue key, if one was seen before the item ended.
	Key   string
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("item %d (%s): %s %q: %v", e.Index, e.Key, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("item %d: %s %q: %v", e.Index, e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
