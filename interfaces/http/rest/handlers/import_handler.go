package handlers

import (
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"bookgraph/application/services"
	"bookgraph/application/transfer"
	"bookgraph/infrastructure/persistence/snapshot"
	apperrors "bookgraph/pkg/errors"
)

// ImportHandler serves generated-book imports
type ImportHandler struct {
	workspace *services.Workspace
	snapshots *snapshot.Store
	importer  *transfer.Importer
	logger    *zap.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(
	workspace *services.Workspace,
	snapshots *snapshot.Store,
	importer *transfer.Importer,
	logger *zap.Logger,
) *ImportHandler {
	return &ImportHandler{
		workspace: workspace,
		snapshots: snapshots,
		importer:  importer,
		logger:    logger,
	}
}

// ImportGeminiBook handles POST /import_gemini_book
func (h *ImportHandler) ImportGeminiBook(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, h.logger, apperrors.NewValidationError("reading request body failed"))
		return
	}

	result, err := h.importer.ImportGeminiBook(data)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	// persist the merged state so a later restore sees the new book
	ds := h.workspace.Snapshot()
	if _, err := h.snapshots.Save(ds); err != nil {
		respondError(w, h.logger, err)
		return
	}
	rec := snapshot.GraphRecord{BooksMeta: ds.BooksMeta, GraphConnections: ds.GraphConnections}
	if err := h.snapshots.SaveGraph(rec); err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":               fmt.Sprintf("book %q imported", result.BookName),
		"docId":                 result.DocID,
		"chunksCount":           result.Chunks,
		"graphConnectionsCount": result.GraphConnections,
	})
}
