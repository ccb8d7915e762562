package storage

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniqueName(t *testing.T) {
	a := UniqueName("Timesheet.PDF")
	b := UniqueName("Timesheet.PDF")

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(a, ".pdf"), "extension is kept, lower-cased")
	assert.NotContains(t, a, "-")
}

func TestSaveAndOpenRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	name := UniqueName("notes.docx")
	require.NoError(t, store.Save(name, strings.NewReader("claim evidence")))

	rc, err := store.Open(name)
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "claim evidence", string(got))
}

func TestSaveSanitizesName(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)

	// A crafted name cannot climb out of the root directory.
	require.NoError(t, store.Save("../escape.pdf", strings.NewReader("x")))

	rc, err := store.Open("escape.pdf")
	require.NoError(t, err)
	rc.Close()
}

func TestOpenMissingBlob(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open("does-not-exist.pdf")
	assert.Error(t, err)
}
