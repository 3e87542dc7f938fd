package vault

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Note is one saved message. Notes are never edited in place.
type Note struct {
	ID        int64     `yaml:"id"`
	UserID    int64     `yaml:"-"`
	Text      string    `yaml:"text"`
	Tags      []string  `yaml:"tags"`
	CreatedAt time.Time `yaml:"created_at"`
}

// Backend is the durable side of the store. Every method must be atomic: a
// failed call leaves the backend exactly as it was.
type Backend interface {
	// InsertNote persists n and fills in n.ID.
	InsertNote(ctx context.Context, n *Note) error
	DeleteNote(ctx context.Context, userID, id int64) (bool, error)
	DeleteNotes(ctx context.Context, userID int64, ids []int64) (int, error)
	// LoadAll returns every note grouped by user, each slice in id order.
	LoadAll(ctx context.Context) (map[int64][]Note, error)
}

// ErrNotFound is returned by lookups that resolve a single note.
var ErrNotFound = errors.New("not found")

// StorageError reports a failed read or write against the Backend.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Cause lets github.com/pkg/errors.Cause see through the wrapper.
func (e *StorageError) Cause() error { return e.Err }

// ValidationError reports note input the store refuses to save.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsStorage reports whether err came from the Backend.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// IsValidation reports whether err is a rejected input.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
