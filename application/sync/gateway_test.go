package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bookgraph/application/services"
	"bookgraph/domain/core/entities"
	"bookgraph/infrastructure/persistence/memory"
	apperrors "bookgraph/pkg/errors"
)

type recordingNotifier struct {
	successes []string
	errors    []string
}

func (n *recordingNotifier) Success(msg string) { n.successes = append(n.successes, msg) }
func (n *recordingNotifier) Error(msg string)   { n.errors = append(n.errors, msg) }

func newSyncWorkspace(t *testing.T) *services.Workspace {
	w, err := services.NewWorkspace(memory.NewKV(), zap.NewNop())
	require.NoError(t, err)
	return w
}

func TestSyncUpPostsDatasetAndNotifies(t *testing.T) {
	w := newSyncWorkspace(t)
	doc := w.CurrentBook()
	_, err := w.AddChunk(doc, "hello")
	require.NoError(t, err)

	var received entities.Dataset
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/sync", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(rw).Encode(SyncResult{Status: "ok", Saved: []string{doc + ".json", "manifest.json"}})
	}))
	defer server.Close()

	notifier := &recordingNotifier{}
	g := NewGateway(server.URL, 5*time.Second, w, notifier, zap.NewNop())

	result, err := g.SyncUp(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Status)
	assert.Len(t, result.Saved, 2)
	assert.Len(t, received.EntriesByTopic[doc], 1)
	assert.Equal(t, doc, received.CurrentTopic)
	assert.Contains(t, received.BooksMeta, doc)
	assert.Len(t, notifier.successes, 1)
	assert.Empty(t, notifier.errors)
}

func TestSyncUpFailureNotifiesError(t *testing.T) {
	w := newSyncWorkspace(t)
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		http.Error(rw, `{"detail":"boom"}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := &recordingNotifier{}
	g := NewGateway(server.URL, 5*time.Second, w, notifier, zap.NewNop())

	_, err := g.SyncUp(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsSync(err))
	assert.Len(t, notifier.errors, 1)
}

func TestSilentSyncUpStaysQuiet(t *testing.T) {
	w := newSyncWorkspace(t)
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		http.Error(rw, `{"detail":"boom"}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := &recordingNotifier{}
	g := NewGateway(server.URL, 5*time.Second, w, notifier, zap.NewNop())

	_, err := g.SilentSyncUp(context.Background())
	require.Error(t, err)
	assert.Empty(t, notifier.errors)
	assert.Empty(t, notifier.successes)
}

func TestRestoreDownReplacesState(t *testing.T) {
	w := newSyncWorkspace(t)
	remote := entities.Dataset{
		EntriesByTopic: map[string][]entities.Chunk{
			"doc_Remote12": {{ID: "remotechunk1", Order: 1, Instruct: "This is a default instruction.", Input: "from server"}},
		},
		OrderCounters: map[string]int{"doc_Remote12": 1},
		CurrentTopic:  "doc_Remote12",
		BooksMeta: map[string]entities.BookMeta{
			"doc_Remote12": {ID: "doc_Remote12", Name: "Remote", Created: 1700000000000},
		},
	}
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/restore", r.URL.Path)
		json.NewEncoder(rw).Encode(remote)
	}))
	defer server.Close()

	g := NewGateway(server.URL, 5*time.Second, w, nil, zap.NewNop())
	require.NoError(t, g.RestoreDown(context.Background()))

	assert.Equal(t, "doc_Remote12", w.CurrentBook())
	assert.Len(t, w.Entries("doc_Remote12"), 1)
	assert.Equal(t, "Remote", w.Books()["doc_Remote12"].Name)
}

func TestRestoreDownLeavesStateOnMalformedPayload(t *testing.T) {
	w := newSyncWorkspace(t)
	doc := w.CurrentBook()
	_, err := w.AddChunk(doc, "keep me")
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Write([]byte(`{"unexpected": true}`))
	}))
	defer server.Close()

	g := NewGateway(server.URL, 5*time.Second, w, nil, zap.NewNop())
	err = g.RestoreDown(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsRestore(err))

	assert.Equal(t, doc, w.CurrentBook())
	assert.Len(t, w.Entries(doc), 1)
}

func TestGraphRoundTrip(t *testing.T) {
	w := newSyncWorkspace(t)
	doc := w.CurrentBook()
	a, _ := w.AddChunk(doc, "a")
	b, _ := w.AddChunk(doc, "b")
	_, err := w.Connect(doc, a.ID, b.ID, "reference")
	require.NoError(t, err)

	var stored graphPayload
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sync_graph":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&stored))
			rw.Write([]byte(`{"status":"ok"}`))
		case "/restore_graph":
			json.NewEncoder(rw).Encode(stored)
		}
	}))
	defer server.Close()

	g := NewGateway(server.URL, 5*time.Second, w, nil, zap.NewNop())
	require.NoError(t, g.SyncGraph(context.Background()))
	require.Len(t, stored.GraphConnections[doc], 1)

	require.NoError(t, w.ReplaceConnections(nil))
	assert.Empty(t, w.Connections(doc))

	require.NoError(t, g.RestoreGraph(context.Background()))
	assert.Len(t, w.Connections(doc), 1)
}
