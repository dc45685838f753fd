// Package transfer handles dataset export and import, including books
// produced by external generators.
package transfer

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"bookgraph/application/services"
	"bookgraph/domain/core/entities"
	apperrors "bookgraph/pkg/errors"
	"bookgraph/pkg/utils"
)

const exportVersion = "1.0"

// Exporter builds downloadable dataset files from a workspace.
type Exporter struct {
	workspace *services.Workspace
	logger    *zap.Logger
}

// NewExporter creates an exporter over the given workspace.
func NewExporter(workspace *services.Workspace, logger *zap.Logger) *Exporter {
	return &Exporter{workspace: workspace, logger: logger}
}

// ExportFiltered produces a dataset restricted to the selected book
// ids, plus a suggested file name. An empty selection exports every
// book. Connections come along only for selected books.
func (e *Exporter) ExportFiltered(selected []string) (*entities.Dataset, string, error) {
	full := e.workspace.Snapshot()

	include := map[string]bool{}
	if len(selected) == 0 {
		for id := range full.EntriesByTopic {
			include[id] = true
		}
	} else {
		for _, id := range selected {
			include[id] = true
		}
	}

	out := &entities.Dataset{
		EntriesByTopic:   map[string][]entities.Chunk{},
		OrderCounters:    map[string]int{},
		BooksMeta:        map[string]entities.BookMeta{},
		GraphConnections: map[string][]entities.Connection{},
		CurrentTopic:     full.CurrentTopic,
		ExportedAt:       utils.NowRFC3339(),
		Version:          exportVersion,
	}
	if !include[out.CurrentTopic] {
		out.CurrentTopic = ""
	}
	for id := range include {
		if chunks, ok := full.EntriesByTopic[id]; ok {
			out.EntriesByTopic[id] = chunks
			out.OrderCounters[id] = full.OrderCounters[id]
		}
		if m, ok := full.BooksMeta[id]; ok {
			out.BooksMeta[id] = m
		}
		if conns, ok := full.GraphConnections[id]; ok {
			out.GraphConnections[id] = conns
		}
	}

	name := e.fileName(out)
	e.logger.Info("dataset exported",
		zap.Int("books", len(out.EntriesByTopic)), zap.String("file", name))
	return out, name, nil
}

// fileName suggests a download name: the book's name for a single
// selection, "multi" otherwise, with the current date.
func (e *Exporter) fileName(ds *entities.Dataset) string {
	stem := "multi"
	if len(ds.EntriesByTopic) == 1 {
		for id := range ds.EntriesByTopic {
			if m, ok := ds.BooksMeta[id]; ok && m.Name != "" {
				stem = slugify(m.Name)
			} else {
				stem = slugify(id)
			}
		}
	}
	return fmt.Sprintf("dataset-%s-%s.json", stem, time.Now().UTC().Format("2006-01-02"))
}

func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "book"
	}
	return slug
}

// Importer merges uploaded dataset files into a workspace.
type Importer struct {
	workspace *services.Workspace
	logger    *zap.Logger
}

// NewImporter creates an importer over the given workspace.
func NewImporter(workspace *services.Workspace, logger *zap.Logger) *Importer {
	return &Importer{workspace: workspace, logger: logger}
}

// ImportMerge parses an exported dataset and overlays it onto the
// workspace. Books in the file replace local books with the same id;
// everything else stays. Malformed files are rejected before any
// state changes.
func (i *Importer) ImportMerge(data []byte) (int, error) {
	var ds entities.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return 0, apperrors.NewImportFormatError("file is not valid JSON")
	}
	if ds.EntriesByTopic == nil {
		return 0, apperrors.NewImportFormatError("file has no entriesByTopic")
	}

	if err := i.workspace.MergeDataset(&ds); err != nil {
		return 0, err
	}
	i.logger.Info("dataset imported", zap.Int("books", len(ds.EntriesByTopic)))
	return len(ds.EntriesByTopic), nil
}
