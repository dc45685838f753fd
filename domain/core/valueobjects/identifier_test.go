package valueobjects

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChunkIDUsesAlphabet(t *testing.T) {
	id, err := NewChunkID(nil)
	require.NoError(t, err)
	assert.Len(t, id, 12)
	for _, r := range id {
		assert.Contains(t, chunkAlphabet, string(r))
	}
}

func TestNewChunkIDAvoidsExclusionSet(t *testing.T) {
	taken := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := NewChunkID(taken)
		require.NoError(t, err)
		assert.False(t, taken[id])
		taken[id] = true
	}
}

func TestNewLinkID(t *testing.T) {
	id, err := NewLinkID()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "link_"))
	assert.Len(t, id, len("link_")+12)
}

func TestNewDocumentID(t *testing.T) {
	id, err := NewDocumentID()
	require.NoError(t, err)
	assert.True(t, id.Valid())
	assert.True(t, strings.HasPrefix(id.String(), "doc_"))
	assert.Len(t, id.String(), len("doc_")+8)
}

func TestDocumentIDValid(t *testing.T) {
	assert.True(t, DocumentID("doc_A1b2C3d4").Valid())
	assert.False(t, DocumentID("").Valid())
	assert.False(t, DocumentID("A1b2C3d4").Valid())
	assert.False(t, DocumentID("doc_short").Valid())
	assert.False(t, DocumentID("doc_waytoolongid").Valid())
	assert.False(t, DocumentID("my plain topic").Valid())
}
