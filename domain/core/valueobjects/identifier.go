// Package valueobjects holds the identifier namespaces and the link-type
// catalog shared by the stores and the view-model builder.
package valueobjects

import (
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Three identifier namespaces coexist: chunk ids (bare, 12 symbols), link
// ids ("link_" + 12 symbols) and document ids ("doc_" + 8 symbols). Chunk
// and link ids share a 64-symbol alphabet; document ids are alphanumeric.
const (
	chunkAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789$#*_"
	docAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	chunkIDLength = 12
	linkIDLength  = 12
	docIDLength   = 8

	// LinkIDPrefix marks connection identifiers.
	LinkIDPrefix = "link_"
	// DocumentIDPrefix marks document identifiers.
	DocumentIDPrefix = "doc_"
)

// DocumentID identifies a book independently of its mutable display name.
type DocumentID string

// String returns the string representation
func (id DocumentID) String() string {
	return string(id)
}

// IsZero reports whether the id is unset.
func (id DocumentID) IsZero() bool {
	return id == ""
}

// Valid reports whether the id carries the current namespace prefix.
// Entries migrated from older schema shapes fail this check and are
// reassigned a fresh id.
func (id DocumentID) Valid() bool {
	return strings.HasPrefix(string(id), DocumentIDPrefix) &&
		len(id) == len(DocumentIDPrefix)+docIDLength
}

// NewChunkID generates a chunk id that is absent from the supplied
// exclusion set. The set holds the ids already present in the owning book;
// generation retries until the candidate is unused.
func NewChunkID(existing map[string]bool) (string, error) {
	for {
		id, err := nanoid.Generate(chunkAlphabet, chunkIDLength)
		if err != nil {
			return "", err
		}
		if !existing[id] {
			return id, nil
		}
	}
}

// NewLinkID generates a connection id. Link ids are not collision-checked;
// the namespace is large enough that duplicates are not a practical concern.
func NewLinkID() (string, error) {
	id, err := nanoid.Generate(chunkAlphabet, linkIDLength)
	if err != nil {
		return "", err
	}
	return LinkIDPrefix + id, nil
}

// NewDocumentID generates a document id.
func NewDocumentID() (DocumentID, error) {
	id, err := nanoid.Generate(docAlphabet, docIDLength)
	if err != nil {
		return "", err
	}
	return DocumentID(DocumentIDPrefix + id), nil
}
