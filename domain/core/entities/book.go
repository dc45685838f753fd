package entities

import "bookgraph/domain/core/valueobjects"

// DefaultBookName is the book synthesized when the store would otherwise
// be empty. The system is never left in a zero-book state.
const DefaultBookName = "Main"

// BookMeta is the stable identity of a book. The document id is the join
// key used by the connection store; renaming a book changes Name only,
// never ID, so connections survive renames untouched.
type BookMeta struct {
	ID      valueobjects.DocumentID `json:"id"`
	Name    string                  `json:"name"`
	Created int64                   `json:"created"`
}

// CloneMeta returns a copy of a metadata map.
func CloneMeta(meta map[string]BookMeta) map[string]BookMeta {
	if meta == nil {
		return nil
	}
	out := make(map[string]BookMeta, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
