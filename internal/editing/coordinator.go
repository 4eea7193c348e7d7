package editing

import (
	"context"
	"errors"
	"fmt"

	"github.com/ucouncil/portal/backend/go-services/pkg/logger"
	"github.com/ucouncil/portal/backend/go-services/pkg/metrics"
)

// maxAcquireAttempts bounds how often Acquire retries after losing a
// conditional write to a lease that was released again before the re-read.
const maxAcquireAttempts = 3

// Coordinator grants exclusive edit priority over documents of one kind and
// applies versioned saves. It keeps no in-process locks; all serialization
// happens in the store's conditional writes.
type Coordinator struct {
	kind     Kind
	store    Store
	clock    Clock
	dir      Directory
	archiver Archiver
	log      *logger.Component
}

type Option func(*Coordinator)

func WithClock(c Clock) Option { return func(co *Coordinator) { co.clock = c } }

func WithDirectory(d Directory) Option { return func(co *Coordinator) { co.dir = d } }

func WithArchiver(a Archiver) Option { return func(co *Coordinator) { co.archiver = a } }

func NewCoordinator(kind Kind, store Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		kind:  kind,
		store: store,
		clock: SystemClock,
		log:   logger.Named("editing/" + string(kind)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) Kind() Kind { return c.kind }

// Create stores a new unleased document at version 1 in draft status.
func (c *Coordinator) Create(ctx context.Context, userID string, fields map[string]interface{}) (*Document, error) {
	if err := ValidateFields(fields); err != nil {
		return nil, err
	}
	now := c.clock.Now()
	if fields == nil {
		fields = map[string]interface{}{}
	}
	doc := &Document{
		Kind:      c.kind,
		Version:   1,
		Status:    StatusDraft,
		Fields:    fields,
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return c.store.Create(ctx, doc)
}

func (c *Coordinator) Get(ctx context.Context, id string) (*Document, error) {
	return c.store.Get(ctx, id)
}

func (c *Coordinator) List(ctx context.Context) ([]*Document, error) {
	return c.store.List(ctx)
}

// Leased lists documents currently held by a priority editor.
func (c *Coordinator) Leased(ctx context.Context) ([]*Document, error) {
	return c.store.ListLeased(ctx)
}

// Acquire requests edit priority for userID. Re-acquiring a lease already
// held by userID succeeds without renewing its start time.
func (c *Coordinator) Acquire(ctx context.Context, id, userID string) (*LeaseResult, error) {
	doc, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	for attempt := 1; ; attempt++ {
		if doc.HeldBy(userID) {
			metrics.LeaseAcquire.WithLabelValues(string(c.kind), "reacquired").Inc()
			return granted(doc), nil
		}
		if doc.Leased() || attempt > maxAcquireAttempts {
			break
		}
		stored, wrote, err := c.store.AcquireLease(ctx, id, userID, c.clock.Now())
		if err != nil {
			return nil, fmt.Errorf("acquire lease on %s: %w", id, err)
		}
		if wrote {
			c.log.Debugf("lease on %s granted to %s", id, userID)
			metrics.LeaseAcquire.WithLabelValues(string(c.kind), "granted").Inc()
			return granted(stored), nil
		}
		doc = stored
	}

	metrics.LeaseAcquire.WithLabelValues(string(c.kind), "denied").Inc()
	res := &LeaseResult{
		Granted:       false,
		Version:       doc.Version,
		CurrentHolder: doc.Holder(),
		HeldSince:     doc.PriorityEditStartedAt,
	}
	if res.CurrentHolder != "" {
		res.CurrentHolderName = c.displayName(ctx, res.CurrentHolder)
	} else {
		c.log.Warnf("lease on %s still contended after %d attempts", id, maxAcquireAttempts)
	}
	return res, nil
}

func granted(doc *Document) *LeaseResult {
	return &LeaseResult{
		Granted:       true,
		Version:       doc.Version,
		CurrentHolder: doc.Holder(),
		HeldSince:     doc.PriorityEditStartedAt,
	}
}

// Release clears userID's lease. Releasing a lease held by someone else, or
// no lease at all, is a successful no-op.
func (c *Coordinator) Release(ctx context.Context, id, userID string) error {
	released, err := c.store.ReleaseLease(ctx, id, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("release lease on %s: %w", id, err)
	}
	outcome := "noop"
	if released {
		outcome = "released"
		c.log.Debugf("lease on %s released by %s", id, userID)
	}
	metrics.LeaseRelease.WithLabelValues(string(c.kind), outcome).Inc()
	return nil
}

// Save applies fields when userID holds the lease and expectedVersion is
// current. A successful save bumps the version, resets the status to draft
// and releases the lease.
func (c *Coordinator) Save(ctx context.Context, id, userID string, expectedVersion int64, fields map[string]interface{}) (*Document, error) {
	doc, err := c.save(ctx, id, userID, expectedVersion, fields)
	metrics.ContentSave.WithLabelValues(string(c.kind), saveOutcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	c.log.Infof("document %s saved by %s at version %d", id, userID, doc.Version)
	c.archive(ctx, doc)
	return doc, nil
}

func (c *Coordinator) save(ctx context.Context, id, userID string, expectedVersion int64, fields map[string]interface{}) (*Document, error) {
	if err := ValidateFields(fields); err != nil {
		return nil, err
	}
	doc, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.checkSave(ctx, doc, userID, expectedVersion); err != nil {
		return nil, err
	}
	updated, err := c.store.SaveContent(ctx, id, ContentSave{
		UserID:          userID,
		ExpectedVersion: expectedVersion,
		Fields:          fields,
		At:              c.clock.Now(),
	})
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, ErrPreconditionFailed) {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("save %s: %w", id, err)
	}
	// The document changed between the check and the write.
	current, gerr := c.store.Get(ctx, id)
	if gerr != nil {
		return nil, gerr
	}
	if cerr := c.checkSave(ctx, current, userID, expectedVersion); cerr != nil {
		return nil, cerr
	}
	return nil, fmt.Errorf("save %s: %w", id, err)
}

func (c *Coordinator) checkSave(ctx context.Context, doc *Document, userID string, expectedVersion int64) error {
	if !doc.HeldBy(userID) {
		e := &NoEditPriorityError{Holder: doc.Holder(), Since: doc.PriorityEditStartedAt}
		if e.Holder != "" {
			e.HolderName = c.displayName(ctx, e.Holder)
		}
		return e
	}
	if doc.Version != expectedVersion {
		return &VersionConflictError{Expected: expectedVersion, Current: doc.Version}
	}
	return nil
}

// Review records a review decision. It never touches the version or the lease.
func (c *Coordinator) Review(ctx context.Context, id string, status Status) (*Document, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return c.store.SetStatus(ctx, id, status, c.clock.Now())
}

func (c *Coordinator) displayName(ctx context.Context, userID string) string {
	if c.dir == nil {
		return userID
	}
	name, err := c.dir.DisplayName(ctx, userID)
	if err != nil || name == "" {
		if err != nil {
			c.log.Debugf("display name lookup for %s failed: %v", userID, err)
		}
		return userID
	}
	return name
}

func (c *Coordinator) archive(ctx context.Context, doc *Document) {
	if c.archiver == nil {
		return
	}
	if err := c.archiver.Archive(ctx, doc); err != nil {
		metrics.ArchiveFailures.WithLabelValues(string(c.kind)).Inc()
		c.log.Errorf("archive revision %d of %s: %v", doc.Version, doc.ID, err)
	}
}

func saveOutcome(err error) string {
	switch {
	case err == nil:
		return "saved"
	case errors.Is(err, ErrNoEditPriority):
		return "no_priority"
	case errors.Is(err, ErrVersionConflict):
		return "version_conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidFields):
		return "invalid"
	}
	return "error"
}
