package transfer

import (
	"encoding/json"

	"go.uber.org/zap"

	"bookgraph/domain/core/entities"
	"bookgraph/domain/core/valueobjects"
	apperrors "bookgraph/pkg/errors"
	"bookgraph/pkg/utils"
)

// GeminiBook is the payload shape produced by the generation pipeline:
// one complete book with optional pre-built connections.
type GeminiBook struct {
	BookName         string                `json:"bookName" validate:"required"`
	DocID            string                `json:"docId" validate:"required"`
	Chunks           []entities.Chunk      `json:"chunks" validate:"required,min=1"`
	GraphConnections []entities.Connection `json:"graphConnections"`
}

// GeminiResult summarizes what an applied book contained.
type GeminiResult struct {
	BookName         string
	DocID            string
	Chunks           int
	GraphConnections int
}

// ImportGeminiBook parses and installs a generated book, replacing any
// existing book with the same document id.
func (i *Importer) ImportGeminiBook(data []byte) (*GeminiResult, error) {
	var book GeminiBook
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, apperrors.NewImportFormatError("book payload is not valid JSON")
	}
	if err := utils.ValidateStruct(&book); err != nil {
		return nil, apperrors.NewImportFormatError(err.Error())
	}
	return i.ApplyGemini(&book)
}

// ApplyGemini installs an already-parsed generated book. Chunks with
// no id, order or instruct get a fresh id, sequential orders and the
// default instruct respectively.
func (i *Importer) ApplyGemini(book *GeminiBook) (*GeminiResult, error) {
	chunks := entities.CloneChunks(book.Chunks)
	existing := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		if c.ID != "" {
			existing[c.ID] = true
		}
	}
	for idx := range chunks {
		if chunks[idx].ID == "" {
			id, err := valueobjects.NewChunkID(existing)
			if err != nil {
				return nil, apperrors.Wrap(err, "generating chunk id")
			}
			chunks[idx].ID = id
			existing[id] = true
		}
		if chunks[idx].Order == 0 {
			chunks[idx].Order = idx + 1
		}
		if chunks[idx].Instruct == "" {
			chunks[idx].Instruct = entities.DefaultInstruct
		}
	}

	if err := i.workspace.ImportBook(book.DocID, book.BookName, chunks, book.GraphConnections); err != nil {
		return nil, err
	}

	i.logger.Info("generated book imported",
		zap.String("doc_id", book.DocID),
		zap.Int("chunks", len(chunks)),
		zap.Int("connections", len(book.GraphConnections)))
	return &GeminiResult{
		BookName:         book.BookName,
		DocID:            book.DocID,
		Chunks:           len(chunks),
		GraphConnections: len(book.GraphConnections),
	}, nil
}
