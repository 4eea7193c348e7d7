package editing

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrNoEditPriority  = errors.New("no edit priority")
	ErrVersionConflict = errors.New("document modified, refresh and retry")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidFields   = errors.New("invalid fields")

	// ErrPreconditionFailed is returned by stores when a conditional write
	// matched no document. The coordinator re-reads and classifies it.
	ErrPreconditionFailed = errors.New("precondition failed")
)

// NoEditPriorityError reports who holds the lease when a save is refused.
// Holder is empty when nobody holds it (for example after a sweep).
type NoEditPriorityError struct {
	Holder     string
	HolderName string
	Since      *time.Time
}

func (e *NoEditPriorityError) Error() string {
	if e.Holder == "" {
		return "no edit priority: lease not held"
	}
	name := e.HolderName
	if name == "" {
		name = e.Holder
	}
	if e.Since != nil {
		return fmt.Sprintf("no edit priority: held by %s since %s", name, e.Since.UTC().Format(time.RFC3339))
	}
	return fmt.Sprintf("no edit priority: held by %s", name)
}

func (e *NoEditPriorityError) Is(target error) bool { return target == ErrNoEditPriority }

// VersionConflictError reports a save against a stale version.
type VersionConflictError struct {
	Expected int64
	Current  int64
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("%s (expected version %d, current %d)", ErrVersionConflict, e.Expected, e.Current)
}

func (e *VersionConflictError) Is(target error) bool { return target == ErrVersionConflict }
