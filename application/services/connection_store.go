package services

import (
	"encoding/json"

	"go.uber.org/zap"

	"bookgraph/domain/core/entities"
	"bookgraph/domain/core/valueobjects"
	"bookgraph/infrastructure/persistence/abstractions"
	apperrors "bookgraph/pkg/errors"
	"bookgraph/pkg/utils"
)

const keyGraphConnections = "graphConnections"

// ConnectionStore manages typed connections between chunks, grouped by
// the document id of the book they belong to.
type ConnectionStore struct {
	kv     abstractions.KeyValue
	logger *zap.Logger

	connections map[string][]entities.Connection
}

// NewConnectionStore loads the persisted connection map.
func NewConnectionStore(kv abstractions.KeyValue, logger *zap.Logger) (*ConnectionStore, error) {
	s := &ConnectionStore{
		kv:          kv,
		logger:      logger,
		connections: map[string][]entities.Connection{},
	}
	if raw, ok, err := kv.Get(keyGraphConnections); err != nil {
		return nil, err
	} else if ok {
		if err := json.Unmarshal([]byte(raw), &s.connections); err != nil {
			logger.Warn("discarding unreadable connections record", zap.Error(err))
			s.connections = map[string][]entities.Connection{}
		}
	}
	if s.connections == nil {
		s.connections = map[string][]entities.Connection{}
	}
	return s, nil
}

func (s *ConnectionStore) persist() error {
	data, err := json.Marshal(s.connections)
	if err != nil {
		return apperrors.Wrap(err, "encoding connections")
	}
	return s.kv.Set(keyGraphConnections, string(data))
}

// ForDocument returns a copy of a document's connections.
func (s *ConnectionStore) ForDocument(docID string) []entities.Connection {
	return entities.CloneConnections(s.connections[docID])
}

// All returns a copy of the full connection map.
func (s *ConnectionStore) All() map[string][]entities.Connection {
	return entities.CloneConnectionMap(s.connections)
}

// Create adds a connection between two chunks. An empty type falls
// back to "reference". Self loops and parallel connections are
// allowed; the store does not check that the endpoints exist.
func (s *ConnectionStore) Create(docID, source, target, linkType string) (entities.Connection, error) {
	if linkType == "" {
		linkType = string(valueobjects.LinkTypeReference)
	}
	id, err := valueobjects.NewLinkID()
	if err != nil {
		return entities.Connection{}, apperrors.Wrap(err, "generating link id")
	}
	conn := entities.Connection{
		ID:          id,
		Source:      source,
		Target:      target,
		Type:        linkType,
		CreatedAt:   utils.NowMillis(),
		UserDefined: true,
	}
	s.connections[docID] = append(s.connections[docID], conn)
	return conn, s.persist()
}

// Delete removes a connection by id. It reports whether the connection
// existed.
func (s *ConnectionStore) Delete(docID, connID string) (bool, error) {
	conns := s.connections[docID]
	for i := range conns {
		if conns[i].ID == connID {
			s.connections[docID] = append(conns[:i:i], conns[i+1:]...)
			return true, s.persist()
		}
	}
	return false, nil
}

// Retype changes a connection's type.
func (s *ConnectionStore) Retype(docID, connID, linkType string) (entities.Connection, error) {
	conns := s.connections[docID]
	for i := range conns {
		if conns[i].ID == connID {
			conns[i].Type = linkType
			if err := s.persist(); err != nil {
				return entities.Connection{}, err
			}
			return conns[i], nil
		}
	}
	return entities.Connection{}, apperrors.NewNotFoundError("connection")
}

// Reverse swaps a connection's source and target.
func (s *ConnectionStore) Reverse(docID, connID string) (entities.Connection, error) {
	conns := s.connections[docID]
	for i := range conns {
		if conns[i].ID == connID {
			conns[i].Source, conns[i].Target = conns[i].Target, conns[i].Source
			if err := s.persist(); err != nil {
				return entities.Connection{}, err
			}
			return conns[i], nil
		}
	}
	return entities.Connection{}, apperrors.NewNotFoundError("connection")
}

// Validate drops every connection of a document whose source or target
// is not among the live chunk ids. It persists only when something was
// removed and returns the number of removed connections.
func (s *ConnectionStore) Validate(docID string, live map[string]bool) (int, error) {
	conns := s.connections[docID]
	kept := conns[:0:0]
	for _, c := range conns {
		if live[c.Source] && live[c.Target] {
			kept = append(kept, c)
		}
	}
	removed := len(conns) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	s.connections[docID] = kept
	s.logger.Info("pruned dangling connections",
		zap.String("doc_id", docID), zap.Int("removed", removed))
	return removed, s.persist()
}

// RemapIDs moves a document's connections under a new document id and
// rewrites chunk ids according to the mapping. It returns how many
// endpoint ids were rewritten.
func (s *ConnectionStore) RemapIDs(oldDocID, newDocID string, chunkIDs map[string]string) (int, error) {
	conns, ok := s.connections[oldDocID]
	if !ok {
		return 0, nil
	}
	rewritten := 0
	for i := range conns {
		if mapped, ok := chunkIDs[conns[i].Source]; ok {
			conns[i].Source = mapped
			rewritten++
		}
		if mapped, ok := chunkIDs[conns[i].Target]; ok {
			conns[i].Target = mapped
			rewritten++
		}
	}
	if oldDocID != newDocID {
		delete(s.connections, oldDocID)
		s.connections[newDocID] = conns
	}
	return rewritten, s.persist()
}

// DeleteDocument removes all connections of a document.
func (s *ConnectionStore) DeleteDocument(docID string) error {
	delete(s.connections, docID)
	return s.persist()
}

// MergeDocument overwrites a single document's connection list.
func (s *ConnectionStore) MergeDocument(docID string, conns []entities.Connection) error {
	s.connections[docID] = entities.CloneConnections(conns)
	return s.persist()
}

// ReplaceAll swaps in a whole new connection map.
func (s *ConnectionStore) ReplaceAll(connections map[string][]entities.Connection) error {
	if connections == nil {
		connections = map[string][]entities.Connection{}
	}
	s.connections = connections
	return s.persist()
}
