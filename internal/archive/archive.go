// Package archive keeps an immutable copy of every saved document revision in
// object storage, keyed revisions/<kind>/<id>/v<version>.json.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ucouncil/portal/backend/go-services/internal/editing"
)

const contentType = "application/json"

// ObjectStore is the slice of storage.MinIOStorage the archive needs.
type ObjectStore interface {
	UploadFile(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	DownloadFile(ctx context.Context, key string) (io.ReadCloser, error)
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

// Revision is the archived snapshot of one committed save.
type Revision struct {
	Kind     editing.Kind           `json:"kind"`
	ID       string                 `json:"id"`
	Version  int64                  `json:"version"`
	Status   editing.Status         `json:"status"`
	EditedBy string                 `json:"editedBy"`
	EditedAt string                 `json:"editedAt,omitempty"`
	Fields   map[string]interface{} `json:"fields"`
}

// ObjectArchiver implements editing.Archiver on top of an ObjectStore.
type ObjectArchiver struct {
	store ObjectStore
}

func NewObjectArchiver(store ObjectStore) *ObjectArchiver {
	return &ObjectArchiver{store: store}
}

func Prefix(kind editing.Kind, id string) string {
	return fmt.Sprintf("revisions/%s/%s/", kind, id)
}

func Key(kind editing.Kind, id string, version int64) string {
	return fmt.Sprintf("%sv%d.json", Prefix(kind, id), version)
}

func (a *ObjectArchiver) Archive(ctx context.Context, doc *editing.Document) error {
	rev := Revision{
		Kind:     doc.Kind,
		ID:       doc.ID,
		Version:  doc.Version,
		Status:   doc.Status,
		EditedBy: doc.EditedBy,
		Fields:   doc.Fields,
	}
	if doc.EditedAt != nil {
		rev.EditedAt = doc.EditedAt.UTC().Format(time.RFC3339)
	}
	b, err := json.Marshal(rev)
	if err != nil {
		return fmt.Errorf("encode revision: %w", err)
	}
	key := Key(doc.Kind, doc.ID, doc.Version)
	if err := a.store.UploadFile(ctx, key, bytes.NewReader(b), int64(len(b)), contentType); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// Versions lists the archived versions of a document in ascending order.
func (a *ObjectArchiver) Versions(ctx context.Context, kind editing.Kind, id string) ([]int64, error) {
	prefix := Prefix(kind, id)
	keys, err := a.store.ListKeys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	var out []int64
	for _, k := range keys {
		name := strings.TrimSuffix(strings.TrimPrefix(k, prefix), ".json")
		v, err := strconv.ParseInt(strings.TrimPrefix(name, "v"), 10, 64)
		if err != nil || !strings.HasPrefix(name, "v") {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Load reads one archived revision.
func (a *ObjectArchiver) Load(ctx context.Context, kind editing.Kind, id string, version int64) (*Revision, error) {
	rc, err := a.store.DownloadFile(ctx, Key(kind, id, version))
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	var rev Revision
	if err := json.NewDecoder(rc).Decode(&rev); err != nil {
		return nil, fmt.Errorf("decode revision: %w", err)
	}
	return &rev, nil
}
