package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bookgraph/infrastructure/persistence/memory"
	apperrors "bookgraph/pkg/errors"
)

func newWorkspace(t *testing.T) *Workspace {
	w, err := NewWorkspace(memory.NewKV(), zap.NewNop())
	require.NoError(t, err)
	return w
}

func TestNewWorkspaceCreatesDefaultBook(t *testing.T) {
	w := newWorkspace(t)

	books := w.Books()
	require.Len(t, books, 1)
	for _, m := range books {
		assert.Equal(t, "Main", m.Name)
	}
	assert.NotEmpty(t, w.CurrentBook())
	_, ok := books[w.CurrentBook()]
	assert.True(t, ok)
}

func TestConnectRequiresBothEndpoints(t *testing.T) {
	w := newWorkspace(t)
	doc := w.CurrentBook()
	a, err := w.AddChunk(doc, "first")
	require.NoError(t, err)
	b, err := w.AddChunk(doc, "second")
	require.NoError(t, err)

	conn, err := w.Connect(doc, a.ID, b.ID, "causal")
	require.NoError(t, err)
	assert.Equal(t, "causal", conn.Type)

	_, err = w.Connect(doc, a.ID, "missing000000", "reference")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDeleteChunkPrunesConnections(t *testing.T) {
	w := newWorkspace(t)
	doc := w.CurrentBook()
	a, _ := w.AddChunk(doc, "first")
	b, _ := w.AddChunk(doc, "second")
	c, _ := w.AddChunk(doc, "third")
	_, err := w.Connect(doc, a.ID, b.ID, "reference")
	require.NoError(t, err)
	keep, err := w.Connect(doc, a.ID, c.ID, "reference")
	require.NoError(t, err)

	require.NoError(t, w.DeleteChunk(doc, b.ID))

	conns := w.Connections(doc)
	require.Len(t, conns, 1)
	assert.Equal(t, keep.ID, conns[0].ID)
}

func TestDeleteLastBookRecreatesDefault(t *testing.T) {
	w := newWorkspace(t)
	original := w.CurrentBook()

	require.NoError(t, w.DeleteBook(original))

	books := w.Books()
	require.Len(t, books, 1)
	replacement := w.CurrentBook()
	assert.NotEqual(t, original, replacement)
	assert.Equal(t, "Main", books[replacement].Name)
}

func TestDeleteBookMovesSelection(t *testing.T) {
	w := newWorkspace(t)
	first := w.CurrentBook()
	second, err := w.CreateBook("Second")
	require.NoError(t, err)
	require.NoError(t, w.SelectBook(second.ID.String()))

	require.NoError(t, w.DeleteBook(second.ID.String()))
	assert.Equal(t, first, w.CurrentBook())

	err = w.DeleteBook(second.ID.String())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestBookNamesAreUnique(t *testing.T) {
	w := newWorkspace(t)

	math, err := w.CreateBook("Math")
	require.NoError(t, err)

	_, err = w.CreateBook("Math")
	assert.True(t, apperrors.IsConflict(err))

	other, err := w.CreateBook("Physics")
	require.NoError(t, err)
	_, err = w.RenameBook(other.ID.String(), "Math")
	assert.True(t, apperrors.IsConflict(err))

	// renaming a book to its own current name is allowed
	_, err = w.RenameBook(math.ID.String(), "Math")
	require.NoError(t, err)
}

func TestRenameBookKeepsEntriesAndConnections(t *testing.T) {
	w := newWorkspace(t)
	doc := w.CurrentBook()
	a, _ := w.AddChunk(doc, "first")
	b, _ := w.AddChunk(doc, "second")
	_, err := w.Connect(doc, a.ID, b.ID, "subtopic")
	require.NoError(t, err)

	renamed, err := w.RenameBook(doc, "Renamed")
	require.NoError(t, err)
	assert.Equal(t, doc, renamed.ID.String())
	assert.Len(t, w.Entries(doc), 2)
	assert.Len(t, w.Connections(doc), 1)
}

func TestDarkModeAndGraphBookPersist(t *testing.T) {
	w := newWorkspace(t)
	assert.False(t, w.Dark())
	require.NoError(t, w.SetDark(true))
	assert.True(t, w.Dark())

	assert.Equal(t, w.CurrentBook(), w.GraphBook())
	require.NoError(t, w.SetGraphBook("doc_Other123"))
	assert.Equal(t, "doc_Other123", w.GraphBook())
}

func TestPendingEditIsConsumedOnce(t *testing.T) {
	w := newWorkspace(t)
	doc := w.CurrentBook()
	require.NoError(t, w.RequestEdit(doc, "chunkaaaaaaa"))

	pe, ok, err := w.TakePendingEdit()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, doc, pe.Book)
	assert.Equal(t, "chunkaaaaaaa", pe.ChunkID)

	_, ok, err = w.TakePendingEdit()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSnapshotApplyRoundTrip(t *testing.T) {
	w := newWorkspace(t)
	doc := w.CurrentBook()
	a, _ := w.AddChunk(doc, "first")
	b, _ := w.AddChunk(doc, "second")
	_, err := w.Connect(doc, a.ID, b.ID, "example")
	require.NoError(t, err)
	bookCreated := w.Books()[doc].Created

	snapshot := w.Snapshot()

	other := newWorkspace(t)
	require.NoError(t, other.ApplyDataset(snapshot))
	assert.Equal(t, doc, other.CurrentBook())
	assert.Len(t, other.Entries(doc), 2)
	assert.Len(t, other.Connections(doc), 1)
	assert.Equal(t, bookCreated, other.Books()[doc].Created)
}
