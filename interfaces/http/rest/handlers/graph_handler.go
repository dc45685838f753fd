package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"bookgraph/application/services"
	"bookgraph/domain/core/entities"
	"bookgraph/infrastructure/persistence/snapshot"
	apperrors "bookgraph/pkg/errors"
)

// GraphSyncRequest is the connection map upload payload
type GraphSyncRequest struct {
	BooksMeta        map[string]entities.BookMeta     `json:"booksMeta"`
	GraphConnections map[string][]entities.Connection `json:"graphConnections"`
}

// GraphHandler serves connection sync, restore and rendered views
type GraphHandler struct {
	workspace *services.Workspace
	builder   *services.GraphBuilder
	snapshots *snapshot.Store
	logger    *zap.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(
	workspace *services.Workspace,
	builder *services.GraphBuilder,
	snapshots *snapshot.Store,
	logger *zap.Logger,
) *GraphHandler {
	return &GraphHandler{
		workspace: workspace,
		builder:   builder,
		snapshots: snapshots,
		logger:    logger,
	}
}

// SyncGraph handles POST /sync_graph
func (h *GraphHandler) SyncGraph(w http.ResponseWriter, r *http.Request) {
	var req GraphSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, apperrors.NewValidationError("request body is not valid JSON"))
		return
	}
	if req.GraphConnections == nil {
		respondError(w, h.logger, apperrors.NewValidationError("graphConnections is required"))
		return
	}

	rec := snapshot.GraphRecord{BooksMeta: req.BooksMeta, GraphConnections: req.GraphConnections}
	if err := h.snapshots.SaveGraph(rec); err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := h.workspace.ReplaceConnections(req.GraphConnections); err != nil {
		respondError(w, h.logger, err)
		return
	}

	h.logger.Info("graph synced", zap.Int("documents", len(req.GraphConnections)))
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RestoreGraph handles GET /restore_graph
func (h *GraphHandler) RestoreGraph(w http.ResponseWriter, r *http.Request) {
	rec, err := h.snapshots.LoadGraph()
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"graphConnections": rec.GraphConnections})
}

// View handles GET /graph/{docID}
func (h *GraphHandler) View(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if _, ok := h.workspace.Books()[docID]; !ok {
		respondError(w, h.logger, apperrors.NewNotFoundError("book"))
		return
	}
	view, err := h.builder.BuildForBook(docID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Overview handles GET /graph
func (h *GraphHandler) Overview(w http.ResponseWriter, r *http.Request) {
	views, err := h.builder.BuildOverview()
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"books": views})
}
