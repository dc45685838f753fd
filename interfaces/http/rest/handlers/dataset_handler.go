package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"bookgraph/application/services"
	"bookgraph/application/transfer"
	"bookgraph/domain/core/entities"
	"bookgraph/infrastructure/persistence/snapshot"
	apperrors "bookgraph/pkg/errors"
	"bookgraph/pkg/utils"
)

// SyncRequest is the dataset upload payload
type SyncRequest struct {
	EntriesByTopic map[string][]entities.Chunk  `json:"entriesByTopic" validate:"required"`
	CurrentTopic   string                       `json:"currentTopic"`
	OrderCounters  map[string]int               `json:"orderCounters"`
	BooksMeta      map[string]entities.BookMeta `json:"booksMeta"`
	TopicMeta      map[string]entities.BookMeta `json:"topicMeta"`
}

// SyncResponse reports which files a sync wrote
type SyncResponse struct {
	Status string   `json:"status"`
	Saved  []string `json:"saved"`
}

// DatasetHandler serves dataset sync, restore, export and import
type DatasetHandler struct {
	workspace *services.Workspace
	snapshots *snapshot.Store
	exporter  *transfer.Exporter
	importer  *transfer.Importer
	logger    *zap.Logger
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(
	workspace *services.Workspace,
	snapshots *snapshot.Store,
	exporter *transfer.Exporter,
	importer *transfer.Importer,
	logger *zap.Logger,
) *DatasetHandler {
	return &DatasetHandler{
		workspace: workspace,
		snapshots: snapshots,
		exporter:  exporter,
		importer:  importer,
		logger:    logger,
	}
}

// Sync handles POST /sync
func (h *DatasetHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, apperrors.NewValidationError("request body is not valid JSON"))
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		respondError(w, h.logger, apperrors.NewValidationError(err.Error()))
		return
	}

	ds := &entities.Dataset{
		EntriesByTopic: req.EntriesByTopic,
		CurrentTopic:   req.CurrentTopic,
		OrderCounters:  req.OrderCounters,
		BooksMeta:      req.BooksMeta,
		TopicMeta:      req.TopicMeta,
	}
	if err := h.workspace.ApplyDataset(ds); err != nil {
		respondError(w, h.logger, err)
		return
	}
	// persist what the workspace actually holds after its repairs, so
	// disk and memory cannot diverge
	saved, err := h.snapshots.Save(h.workspace.Snapshot())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	h.logger.Info("dataset synced", zap.Int("files", len(saved)))
	respondJSON(w, http.StatusOK, SyncResponse{Status: "ok", Saved: saved})
}

// Restore handles GET /restore
func (h *DatasetHandler) Restore(w http.ResponseWriter, r *http.Request) {
	ds, err := h.snapshots.Load()
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, ds)
}

// Backup handles POST /backup
func (h *DatasetHandler) Backup(w http.ResponseWriter, r *http.Request) {
	name, err := h.snapshots.Backup()
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.logger.Info("backup created", zap.String("backup", name))
	respondJSON(w, http.StatusOK, map[string]string{"message": "backup created: " + name})
}

// Export handles GET /export. An optional books query parameter
// restricts the export to a comma-separated list of book ids.
func (h *DatasetHandler) Export(w http.ResponseWriter, r *http.Request) {
	var selected []string
	if books := r.URL.Query().Get("books"); books != "" {
		for _, id := range strings.Split(books, ",") {
			if id = strings.TrimSpace(id); id != "" {
				selected = append(selected, id)
			}
		}
	}

	ds, name, err := h.exporter.ExportFiltered(selected)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	respondJSON(w, http.StatusOK, ds)
}

// Import handles POST /import
func (h *DatasetHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, h.logger, apperrors.NewValidationError("reading request body failed"))
		return
	}
	books, err := h.importer.ImportMerge(data)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "books": books})
}
