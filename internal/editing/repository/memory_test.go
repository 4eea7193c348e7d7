package repository

import (
	"context"
	"testing"
	"time"

	"github.com/ucouncil/portal/backend/go-services/internal/editing"
	"github.com/stretchr/testify/require"
)

var (
	_ editing.Store = (*MemoryRepo)(nil)
	_ editing.Store = (*MongoRepo)(nil)
)

func newDoc(t *testing.T, r *MemoryRepo) *editing.Document {
	t.Helper()
	d, err := r.Create(context.Background(), &editing.Document{
		Version: 1,
		Status:  editing.StatusApproved,
		Fields:  map[string]interface{}{"title": "Leave policy", "year": 2024},
	})
	require.NoError(t, err)
	return d
}

func TestMemoryRepoCreateGetList(t *testing.T) {
	r := NewMemoryRepo(editing.KindPolicy)
	d := newDoc(t, r)
	require.NotEmpty(t, d.ID)
	require.Equal(t, editing.KindPolicy, d.Kind)

	got, err := r.Get(context.Background(), d.ID)
	require.NoError(t, err)
	require.Equal(t, "Leave policy", got.Fields["title"])

	// returned documents are copies
	got.Fields["title"] = "mutated"
	again, err := r.Get(context.Background(), d.ID)
	require.NoError(t, err)
	require.Equal(t, "Leave policy", again.Fields["title"])

	list, err := r.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = r.Get(context.Background(), "missing")
	require.ErrorIs(t, err, editing.ErrNotFound)
}

func TestMemoryRepoAcquireIsConditional(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo(editing.KindHandbook)
	d := newDoc(t, r)
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	got, wrote, err := r.AcquireLease(ctx, d.ID, "alice", at)
	require.NoError(t, err)
	require.True(t, wrote)
	require.Equal(t, "alice", got.Holder())
	require.Equal(t, at, *got.PriorityEditStartedAt)

	got, wrote, err = r.AcquireLease(ctx, d.ID, "bob", at.Add(time.Minute))
	require.NoError(t, err)
	require.False(t, wrote)
	require.Equal(t, "alice", got.Holder())
	require.Equal(t, at, *got.PriorityEditStartedAt)

	leased, err := r.ListLeased(ctx)
	require.NoError(t, err)
	require.Len(t, leased, 1)

	_, _, err = r.AcquireLease(ctx, "missing", "alice", at)
	require.ErrorIs(t, err, editing.ErrNotFound)
}

func TestMemoryRepoReleaseOnlyByHolder(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo(editing.KindHandbook)
	d := newDoc(t, r)
	_, _, err := r.AcquireLease(ctx, d.ID, "alice", time.Now())
	require.NoError(t, err)

	released, err := r.ReleaseLease(ctx, d.ID, "bob")
	require.NoError(t, err)
	require.False(t, released)

	released, err = r.ReleaseLease(ctx, d.ID, "alice")
	require.NoError(t, err)
	require.True(t, released)

	got, err := r.Get(ctx, d.ID)
	require.NoError(t, err)
	require.Nil(t, got.PriorityEditor)
	require.Nil(t, got.PriorityEditStartedAt)

	_, err = r.ReleaseLease(ctx, "missing", "alice")
	require.ErrorIs(t, err, editing.ErrNotFound)
}

func TestMemoryRepoSaveContentPreconditions(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo(editing.KindMemorandum)
	d := newDoc(t, r)
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	// not leased
	_, err := r.SaveContent(ctx, d.ID, editing.ContentSave{UserID: "alice", ExpectedVersion: 1, At: at})
	require.ErrorIs(t, err, editing.ErrPreconditionFailed)

	_, _, err = r.AcquireLease(ctx, d.ID, "alice", at)
	require.NoError(t, err)

	// stale version
	_, err = r.SaveContent(ctx, d.ID, editing.ContentSave{UserID: "alice", ExpectedVersion: 7, At: at})
	require.ErrorIs(t, err, editing.ErrPreconditionFailed)

	saved, err := r.SaveContent(ctx, d.ID, editing.ContentSave{
		UserID:          "alice",
		ExpectedVersion: 1,
		Fields:          map[string]interface{}{"title": "Leave policy (rev)"},
		At:              at.Add(time.Minute),
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), saved.Version)
	require.Equal(t, editing.StatusDraft, saved.Status)
	require.Equal(t, "Leave policy (rev)", saved.Fields["title"])
	require.Equal(t, 2024, saved.Fields["year"])
	require.Equal(t, "alice", saved.EditedBy)
	require.Nil(t, saved.PriorityEditor)
	require.Nil(t, saved.PriorityEditStartedAt)

	_, err = r.SaveContent(ctx, "missing", editing.ContentSave{UserID: "alice", ExpectedVersion: 1})
	require.ErrorIs(t, err, editing.ErrNotFound)
}

func TestMemoryRepoClearStaleLeases(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo(editing.KindPolicy)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	old := newDoc(t, r)
	fresh := newDoc(t, r)
	newDoc(t, r) // unleased

	_, _, err := r.AcquireLease(ctx, old.ID, "alice", base)
	require.NoError(t, err)
	_, _, err = r.AcquireLease(ctx, fresh.ID, "bob", base.Add(8*time.Minute))
	require.NoError(t, err)

	n, err := r.ClearStaleLeases(ctx, base.Add(5*time.Minute))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	got, err := r.Get(ctx, old.ID)
	require.NoError(t, err)
	require.False(t, got.Leased())
	got, err = r.Get(ctx, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, "bob", got.Holder())
}

func TestMemoryRepoSetStatus(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo(editing.KindPolicy)
	d := newDoc(t, r)
	got, err := r.SetStatus(ctx, d.ID, editing.StatusRejected, time.Now())
	require.NoError(t, err)
	require.Equal(t, editing.StatusRejected, got.Status)
	require.Equal(t, int64(1), got.Version)

	_, err = r.SetStatus(ctx, "missing", editing.StatusRejected, time.Now())
	require.ErrorIs(t, err, editing.ErrNotFound)
}
