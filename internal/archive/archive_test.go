package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ucouncil/portal/backend/go-services/internal/editing"
	"github.com/ucouncil/portal/backend/go-services/internal/editing/repository"
)

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut error
}

func newMemObjects() *memObjects { return &memObjects{objects: map[string][]byte{}} }

func (m *memObjects) UploadFile(ctx context.Context, key string, r io.Reader, size int64, ct string) error {
	if m.failPut != nil {
		return m.failPut
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(b)) != size || ct != contentType {
		return errors.New("bad upload")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	return nil
}

func (m *memObjects) DownloadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memObjects) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

var _ editing.Archiver = (*ObjectArchiver)(nil)

func TestKey(t *testing.T) {
	require.Equal(t, "revisions/memorandum/m1/v12.json", Key(editing.KindMemorandum, "m1", 12))
}

func TestArchiveOnEverySave(t *testing.T) {
	ctx := context.Background()
	objs := newMemObjects()
	arch := NewObjectArchiver(objs)
	clock := editing.NewManualClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	c := editing.NewCoordinator(editing.KindPolicy, repository.NewMemoryRepo(editing.KindPolicy),
		editing.WithClock(clock), editing.WithArchiver(arch))

	doc, err := c.Create(ctx, "clerk", map[string]interface{}{"title": "Fees"})
	require.NoError(t, err)
	for i, title := range []string{"Fees v2", "Fees v3", "Fees v10"} {
		_, err := c.Acquire(ctx, doc.ID, "sec")
		require.NoError(t, err)
		_, err = c.Save(ctx, doc.ID, "sec", int64(i+1), map[string]interface{}{"title": title})
		require.NoError(t, err)
	}

	versions, err := arch.Versions(ctx, editing.KindPolicy, doc.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{2, 3, 4}, versions)

	rev, err := arch.Load(ctx, editing.KindPolicy, doc.ID, 4)
	require.NoError(t, err)
	require.Equal(t, "Fees v10", rev.Fields["title"])
	require.Equal(t, "sec", rev.EditedBy)
	require.Equal(t, editing.StatusDraft, rev.Status)
	require.Equal(t, "2024-03-01T09:00:00Z", rev.EditedAt)
}

func TestArchiveFailureDoesNotFailSave(t *testing.T) {
	ctx := context.Background()
	objs := newMemObjects()
	objs.failPut = errors.New("minio unavailable")
	c := editing.NewCoordinator(editing.KindHandbook, repository.NewMemoryRepo(editing.KindHandbook),
		editing.WithArchiver(NewObjectArchiver(objs)))

	doc, err := c.Create(ctx, "clerk", nil)
	require.NoError(t, err)
	_, err = c.Acquire(ctx, doc.ID, "u")
	require.NoError(t, err)
	saved, err := c.Save(ctx, doc.ID, "u", 1, map[string]interface{}{"body": "x"})
	require.NoError(t, err)
	require.Equal(t, int64(2), saved.Version)
}

func TestVersionsIgnoresForeignKeys(t *testing.T) {
	ctx := context.Background()
	objs := newMemObjects()
	objs.objects["revisions/handbook/h1/v3.json"] = []byte(`{}`)
	objs.objects["revisions/handbook/h1/notes.txt"] = []byte(`x`)
	objs.objects["revisions/handbook/h10/v1.json"] = []byte(`{}`)

	versions, err := NewObjectArchiver(objs).Versions(ctx, editing.KindHandbook, "h1")
	require.NoError(t, err)
	require.Equal(t, []int64{3}, versions)
}
