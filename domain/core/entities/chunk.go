// Package entities defines the persisted data model: chunks, book metadata,
// typed connections and the dataset envelope used for storage and transfer.
package entities

// DefaultInstruct is assigned to every chunk created without an explicit
// annotation.
const DefaultInstruct = "This is a default instruction."

// Chunk is one unit of text content inside a book.
//
// Order is assigned from a per-book counter and kept dense (1..n) after
// deletions. Depth is an optional visual size hint; nil means default size.
type Chunk struct {
	ID       string `json:"id"`
	Order    int    `json:"order"`
	Instruct string `json:"instruct"`
	Input    string `json:"input"`
	Output   string `json:"output"`
	Depth    *int   `json:"depth,omitempty"`
}

// CloneChunks returns a deep copy of a chunk slice.
func CloneChunks(chunks []Chunk) []Chunk {
	if chunks == nil {
		return nil
	}
	out := make([]Chunk, len(chunks))
	copy(out, chunks)
	for i := range out {
		if chunks[i].Depth != nil {
			d := *chunks[i].Depth
			out[i].Depth = &d
		}
	}
	return out
}
