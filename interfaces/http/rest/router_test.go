package rest_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bookgraph/application/services"
	"bookgraph/application/transfer"
	"bookgraph/domain/core/entities"
	"bookgraph/infrastructure/config"
	"bookgraph/infrastructure/persistence/memory"
	"bookgraph/infrastructure/persistence/snapshot"
	"bookgraph/interfaces/http/rest"
	"bookgraph/interfaces/http/rest/handlers"
)

type testApp struct {
	workspace *services.Workspace
	router    http.Handler
}

func newTestApp(t *testing.T) *testApp {
	logger := zap.NewNop()
	workspace, err := services.NewWorkspace(memory.NewKV(), logger)
	require.NoError(t, err)

	fsys, err := mem.NewFS()
	require.NoError(t, err)
	snapshots, err := snapshot.NewStore(fsys, "data", "backups")
	require.NoError(t, err)

	exporter := transfer.NewExporter(workspace, logger)
	importer := transfer.NewImporter(workspace, logger)
	builder := services.NewGraphBuilder(workspace, logger)

	cfg := &config.Config{EnableCORS: true}
	dataset := handlers.NewDatasetHandler(workspace, snapshots, exporter, importer, logger)
	graph := handlers.NewGraphHandler(workspace, builder, snapshots, logger)
	imports := handlers.NewImportHandler(workspace, snapshots, importer, logger)

	return &testApp{
		workspace: workspace,
		router:    rest.NewRouter(cfg, dataset, graph, imports, logger),
	}
}

func (a *testApp) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(t)
	rec := app.request(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestSyncThenRestore(t *testing.T) {
	app := newTestApp(t)
	payload := handlers.SyncRequest{
		EntriesByTopic: map[string][]entities.Chunk{
			"doc_A1b2C3d4": {{ID: "abc123def456", Order: 1, Instruct: "This is a default instruction.", Input: "hello"}},
		},
		CurrentTopic:  "doc_A1b2C3d4",
		OrderCounters: map[string]int{"doc_A1b2C3d4": 1},
		BooksMeta: map[string]entities.BookMeta{
			"doc_A1b2C3d4": {ID: "doc_A1b2C3d4", Name: "Main", Created: 1700000000000},
		},
	}

	rec := app.request(t, http.MethodPost, "/sync", payload)
	require.Equal(t, http.StatusOK, rec.Code)
	var syncResp handlers.SyncResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &syncResp))
	assert.Equal(t, "ok", syncResp.Status)
	assert.Contains(t, syncResp.Saved, "doc_A1b2C3d4.json")
	assert.Contains(t, syncResp.Saved, "manifest.json")

	rec = app.request(t, http.MethodGet, "/restore", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var restored entities.Dataset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &restored))
	assert.Equal(t, "doc_A1b2C3d4", restored.CurrentTopic)
	assert.Len(t, restored.EntriesByTopic["doc_A1b2C3d4"], 1)
}

func TestSyncPersistsRepairedState(t *testing.T) {
	app := newTestApp(t)
	payload := handlers.SyncRequest{
		EntriesByTopic: map[string][]entities.Chunk{
			"my plain topic": {{ID: "abc123def456", Order: 1, Instruct: "This is a default instruction.", Input: "hello"}},
		},
		CurrentTopic:  "my plain topic",
		OrderCounters: map[string]int{"my plain topic": 1},
	}

	rec := app.request(t, http.MethodPost, "/sync", payload)
	require.Equal(t, http.StatusOK, rec.Code)

	// the legacy topic key is migrated to a document id, and the
	// persisted snapshot matches the repaired workspace state
	rec = app.request(t, http.MethodGet, "/restore", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var restored entities.Dataset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &restored))
	require.Len(t, restored.EntriesByTopic, 1)
	assert.NotContains(t, restored.EntriesByTopic, "my plain topic")
	for docID, chunks := range restored.EntriesByTopic {
		assert.True(t, strings.HasPrefix(docID, "doc_"))
		require.Len(t, chunks, 1)
		assert.Equal(t, chunks, app.workspace.Entries(docID))
	}
}

func TestSyncRejectsMissingEntries(t *testing.T) {
	app := newTestApp(t)
	rec := app.request(t, http.MethodPost, "/sync", map[string]any{"currentTopic": "doc_A1b2C3d4"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "detail")
}

func TestGraphSyncAndRestore(t *testing.T) {
	app := newTestApp(t)
	payload := handlers.GraphSyncRequest{
		GraphConnections: map[string][]entities.Connection{
			"doc_A1b2C3d4": {{ID: "link_abc123def456", Source: "abc123def456", Target: "ghi789jkl012", Type: "causal", CreatedAt: 1, UserDefined: true}},
		},
	}
	rec := app.request(t, http.MethodPost, "/sync_graph", payload)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.request(t, http.MethodGet, "/restore_graph", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var restored handlers.GraphSyncRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &restored))
	assert.Len(t, restored.GraphConnections["doc_A1b2C3d4"], 1)
}

func TestGraphSyncRequiresConnections(t *testing.T) {
	app := newTestApp(t)
	rec := app.request(t, http.MethodPost, "/sync_graph", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGraphView(t *testing.T) {
	app := newTestApp(t)
	doc := app.workspace.CurrentBook()
	a, err := app.workspace.AddChunk(doc, "first")
	require.NoError(t, err)
	b, err := app.workspace.AddChunk(doc, "second")
	require.NoError(t, err)
	_, err = app.workspace.Connect(doc, a.ID, b.ID, "subtopic")
	require.NoError(t, err)

	rec := app.request(t, http.MethodGet, "/graph/"+doc, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view services.GraphView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Len(t, view.Nodes, 2)
	require.Len(t, view.Edges, 1)
	assert.Equal(t, 3146, view.Edges[0].MarkerID)

	rec = app.request(t, http.MethodGet, "/graph/doc_Missing1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBackupEndpoint(t *testing.T) {
	app := newTestApp(t)
	rec := app.request(t, http.MethodPost, "/backup", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["message"], "backup created")
}

func TestExportEndpoint(t *testing.T) {
	app := newTestApp(t)
	doc := app.workspace.CurrentBook()
	_, err := app.workspace.AddChunk(doc, "exported")
	require.NoError(t, err)

	rec := app.request(t, http.MethodGet, "/export?books="+doc, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "dataset-")

	var ds entities.Dataset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ds))
	assert.Len(t, ds.EntriesByTopic, 1)
	assert.Equal(t, "1.0", ds.Version)
}

func TestImportGeminiBookEndpoint(t *testing.T) {
	app := newTestApp(t)
	payload := map[string]any{
		"bookName": "Generated",
		"docId":    "doc_Gen45678",
		"chunks": []map[string]any{
			{"id": "genchunkaaaa", "input": "first"},
		},
	}
	rec := app.request(t, http.MethodPost, "/import_gemini_book", payload)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["chunksCount"])
	assert.Len(t, app.workspace.Entries("doc_Gen45678"), 1)
}
