package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bookgraph/infrastructure/persistence/memory"
	apperrors "bookgraph/pkg/errors"
)

func newConnectionStore(t *testing.T) *ConnectionStore {
	s, err := NewConnectionStore(memory.NewKV(), zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestCreateConnectionDefaults(t *testing.T) {
	s := newConnectionStore(t)

	conn, err := s.Create("doc_A1b2C3d4", "chunkaaaaaaa", "chunkbbbbbbb", "")
	require.NoError(t, err)
	assert.Equal(t, "reference", conn.Type)
	assert.True(t, conn.UserDefined)
	assert.True(t, strings.HasPrefix(conn.ID, "link_"))
	assert.NotZero(t, conn.CreatedAt)

	// self loops and parallel connections are allowed
	_, err = s.Create("doc_A1b2C3d4", "chunkaaaaaaa", "chunkaaaaaaa", "causal")
	require.NoError(t, err)
	_, err = s.Create("doc_A1b2C3d4", "chunkaaaaaaa", "chunkbbbbbbb", "reference")
	require.NoError(t, err)
	assert.Len(t, s.ForDocument("doc_A1b2C3d4"), 3)
}

func TestDeleteConnectionReportsPresence(t *testing.T) {
	s := newConnectionStore(t)
	conn, err := s.Create("doc_A1b2C3d4", "chunkaaaaaaa", "chunkbbbbbbb", "reference")
	require.NoError(t, err)

	found, err := s.Delete("doc_A1b2C3d4", conn.ID)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = s.Delete("doc_A1b2C3d4", conn.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRetypeAndReverse(t *testing.T) {
	s := newConnectionStore(t)
	conn, err := s.Create("doc_A1b2C3d4", "chunkaaaaaaa", "chunkbbbbbbb", "reference")
	require.NoError(t, err)

	retyped, err := s.Retype("doc_A1b2C3d4", conn.ID, "subtopic")
	require.NoError(t, err)
	assert.Equal(t, "subtopic", retyped.Type)

	reversed, err := s.Reverse("doc_A1b2C3d4", conn.ID)
	require.NoError(t, err)
	assert.Equal(t, "chunkbbbbbbb", reversed.Source)
	assert.Equal(t, "chunkaaaaaaa", reversed.Target)

	// reversing twice restores the original direction
	restored, err := s.Reverse("doc_A1b2C3d4", conn.ID)
	require.NoError(t, err)
	assert.Equal(t, "chunkaaaaaaa", restored.Source)

	_, err = s.Retype("doc_A1b2C3d4", "link_missing0000", "causal")
	assert.True(t, apperrors.IsNotFound(err))
	_, err = s.Reverse("doc_A1b2C3d4", "link_missing0000")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestValidatePrunesDanglingEndpoints(t *testing.T) {
	s := newConnectionStore(t)
	keep, err := s.Create("doc_A1b2C3d4", "chunkaaaaaaa", "chunkbbbbbbb", "reference")
	require.NoError(t, err)
	_, err = s.Create("doc_A1b2C3d4", "chunkaaaaaaa", "chunkgonexxx", "causal")
	require.NoError(t, err)

	live := map[string]bool{"chunkaaaaaaa": true, "chunkbbbbbbb": true}
	removed, err := s.Validate("doc_A1b2C3d4", live)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	conns := s.ForDocument("doc_A1b2C3d4")
	require.Len(t, conns, 1)
	assert.Equal(t, keep.ID, conns[0].ID)

	// validating again removes nothing
	removed, err = s.Validate("doc_A1b2C3d4", live)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestRemapIDsMovesDocumentAndRewritesEndpoints(t *testing.T) {
	s := newConnectionStore(t)
	_, err := s.Create("my-topic", "oldchunkaaaa", "oldchunkbbbb", "reference")
	require.NoError(t, err)

	rewritten, err := s.RemapIDs("my-topic", "doc_A1b2C3d4", map[string]string{
		"oldchunkaaaa": "newchunkaaaa",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rewritten)

	assert.Empty(t, s.ForDocument("my-topic"))
	conns := s.ForDocument("doc_A1b2C3d4")
	require.Len(t, conns, 1)
	assert.Equal(t, "newchunkaaaa", conns[0].Source)
	assert.Equal(t, "oldchunkbbbb", conns[0].Target)
}

func TestRemapIDsWithoutSourceBucketIsNoOp(t *testing.T) {
	s := newConnectionStore(t)

	rewritten, err := s.RemapIDs("absent-topic", "doc_E5f6G7h8", nil)
	require.NoError(t, err)
	assert.Zero(t, rewritten)
	assert.NotContains(t, s.All(), "doc_E5f6G7h8")
}
