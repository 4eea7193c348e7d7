package editing

import (
	"context"
	"time"
)

// Store persists editable documents of a single kind. Every lease and save
// transition is one conditional write so concurrent callers cannot interleave
// between the check and the update.
type Store interface {
	Create(ctx context.Context, doc *Document) (*Document, error)
	Get(ctx context.Context, id string) (*Document, error)
	List(ctx context.Context) ([]*Document, error)
	ListLeased(ctx context.Context) ([]*Document, error)

	// AcquireLease sets the priority editor only if none is set. It returns
	// the document as stored after the call and whether this call wrote it.
	AcquireLease(ctx context.Context, id, userID string, at time.Time) (*Document, bool, error)

	// ReleaseLease clears the lease only if userID holds it.
	ReleaseLease(ctx context.Context, id, userID string) (bool, error)

	// SaveContent applies s only while s.UserID holds the lease at
	// s.ExpectedVersion; otherwise it returns ErrPreconditionFailed.
	SaveContent(ctx context.Context, id string, s ContentSave) (*Document, error)

	SetStatus(ctx context.Context, id string, status Status, at time.Time) (*Document, error)

	// ClearStaleLeases clears every lease started before olderThan. The age
	// predicate is evaluated by the write itself.
	ClearStaleLeases(ctx context.Context, olderThan time.Time) (int64, error)
}

// Directory resolves user ids to display names for lease holder messages.
type Directory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// Archiver receives every committed revision.
type Archiver interface {
	Archive(ctx context.Context, doc *Document) error
}
