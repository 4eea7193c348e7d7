package editing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"handbook":    KindHandbook,
		"memorandum":  KindMemorandum,
		"memorandums": KindMemorandum,
		" Policies ":  KindPolicy,
		"policy":      KindPolicy,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := ParseKind("calendar")
	require.Error(t, err)
}

func TestCloneDoesNotAlias(t *testing.T) {
	holder := "alice"
	at := time.Now()
	d := &Document{ID: "d1", PriorityEditor: &holder, PriorityEditStartedAt: &at, Fields: map[string]interface{}{"title": "a"}}
	c := d.Clone()
	*c.PriorityEditor = "bob"
	c.Fields["title"] = "b"
	require.Equal(t, "alice", d.Holder())
	require.Equal(t, "a", d.Fields["title"])
	require.Nil(t, (*Document)(nil).Clone())
}

func TestErrorsMatchSentinels(t *testing.T) {
	since := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	var err error = &NoEditPriorityError{Holder: "u1", HolderName: "Ama", Since: &since}
	require.True(t, errors.Is(err, ErrNoEditPriority))
	require.Equal(t, "no edit priority: held by Ama since 2024-01-02T03:04:05Z", err.Error())
	require.Equal(t, "no edit priority: lease not held", (&NoEditPriorityError{}).Error())

	err = &VersionConflictError{Expected: 1, Current: 2}
	require.True(t, errors.Is(err, ErrVersionConflict))
	require.False(t, errors.Is(err, ErrNoEditPriority))
}

func TestValidateFields(t *testing.T) {
	require.NoError(t, ValidateFields(nil))
	require.NoError(t, ValidateFields(map[string]interface{}{"title": "x", "fileRef": "drive:abc"}))
	require.ErrorIs(t, ValidateFields(map[string]interface{}{"": 1}), ErrInvalidFields)
	require.ErrorIs(t, ValidateFields(map[string]interface{}{"$set": 1}), ErrInvalidFields)
	require.ErrorIs(t, ValidateFields(map[string]interface{}{"a.b": 1}), ErrInvalidFields)
}
