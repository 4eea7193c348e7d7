package editing

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies which family of editable documents a record belongs to.
type Kind string

const (
	KindHandbook   Kind = "handbook"
	KindMemorandum Kind = "memorandum"
	KindPolicy     Kind = "policy"
)

// Kinds lists every editable document kind served by the portal.
var Kinds = []Kind{KindHandbook, KindMemorandum, KindPolicy}

// Collection returns the Mongo collection name used for the kind.
func (k Kind) Collection() string {
	switch k {
	case KindHandbook:
		return "handbook_sections"
	case KindMemorandum:
		return "memorandums"
	case KindPolicy:
		return "policy_sections"
	}
	return string(k)
}

// RoutePath returns the URL segment under which the kind is served.
func (k Kind) RoutePath() string {
	switch k {
	case KindMemorandum:
		return "memorandums"
	case KindPolicy:
		return "policies"
	}
	return string(k)
}

// ParseKind accepts a kind name or its route segment.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds {
		if s == string(k) || s == k.RoutePath() {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown document kind %q", s)
}

// Status is the review state of a document.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusApproved || s == StatusRejected
}

// Document is an editable handbook section, memorandum or policy section.
// Fields is the document-specific payload and is opaque to the coordinator.
type Document struct {
	ID                    string                 `json:"id" bson:"_id"`
	Kind                  Kind                   `json:"kind" bson:"kind"`
	Version               int64                  `json:"version" bson:"version"`
	Status                Status                 `json:"status" bson:"status"`
	PriorityEditor        *string                `json:"priorityEditor" bson:"priorityEditor"`
	PriorityEditStartedAt *time.Time             `json:"priorityEditStartedAt" bson:"priorityEditStartedAt"`
	Fields                map[string]interface{} `json:"fields" bson:"fields"`
	EditedBy              string                 `json:"editedBy,omitempty" bson:"editedBy,omitempty"`
	EditedAt              *time.Time             `json:"editedAt,omitempty" bson:"editedAt,omitempty"`
	CreatedBy             string                 `json:"createdBy,omitempty" bson:"createdBy,omitempty"`
	CreatedAt             time.Time              `json:"createdAt" bson:"createdAt"`
	UpdatedAt             time.Time              `json:"updatedAt" bson:"updatedAt"`
}

// Leased reports whether a priority editor currently holds the document.
func (d *Document) Leased() bool {
	return d.PriorityEditor != nil
}

// HeldBy reports whether userID is the current priority editor.
func (d *Document) HeldBy(userID string) bool {
	return d.PriorityEditor != nil && *d.PriorityEditor == userID
}

// Holder returns the priority editor id, or "" when unleased.
func (d *Document) Holder() string {
	if d.PriorityEditor == nil {
		return ""
	}
	return *d.PriorityEditor
}

// Clone returns a deep copy; stores hand out clones so callers never alias stored state.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	if d.PriorityEditor != nil {
		v := *d.PriorityEditor
		c.PriorityEditor = &v
	}
	if d.PriorityEditStartedAt != nil {
		v := *d.PriorityEditStartedAt
		c.PriorityEditStartedAt = &v
	}
	if d.EditedAt != nil {
		v := *d.EditedAt
		c.EditedAt = &v
	}
	if d.Fields != nil {
		c.Fields = make(map[string]interface{}, len(d.Fields))
		for k, v := range d.Fields {
			c.Fields[k] = v
		}
	}
	return &c
}

// ContentSave describes a versioned save. The store applies it only when the
// document is still held by UserID at ExpectedVersion.
type ContentSave struct {
	UserID          string
	ExpectedVersion int64
	Fields          map[string]interface{}
	At              time.Time
}

// LeaseResult is the outcome of an acquire call. A denial is a normal result, not an error.
type LeaseResult struct {
	Granted           bool       `json:"hasPriority"`
	Version           int64      `json:"version"`
	CurrentHolder     string     `json:"priorityEditor,omitempty"`
	CurrentHolderName string     `json:"priorityEditorName,omitempty"`
	HeldSince         *time.Time `json:"priorityEditStartedAt,omitempty"`
}

// ValidateFields rejects keys that cannot be stored as sub-document keys.
func ValidateFields(fields map[string]interface{}) error {
	for k := range fields {
		if k == "" || strings.HasPrefix(k, "$") || strings.Contains(k, ".") {
			return fmt.Errorf("%w: invalid key %q", ErrInvalidFields, k)
		}
	}
	return nil
}
