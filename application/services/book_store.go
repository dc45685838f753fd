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

const (
	keyBooksMeta = "booksMeta"
	keyTopicMeta = "topicMeta" // legacy record, migrated on first load
)

// BookStore manages book metadata keyed by document id. Like the other
// stores it relies on the Workspace for serialization.
type BookStore struct {
	kv     abstractions.KeyValue
	logger *zap.Logger

	meta map[string]entities.BookMeta
}

// NewBookStore loads book metadata, migrating any legacy record it
// finds when no current one exists.
func NewBookStore(kv abstractions.KeyValue, logger *zap.Logger) (*BookStore, error) {
	s := &BookStore{
		kv:     kv,
		logger: logger,
		meta:   map[string]entities.BookMeta{},
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *BookStore) load() error {
	if raw, ok, err := s.kv.Get(keyBooksMeta); err != nil {
		return err
	} else if ok {
		if err := json.Unmarshal([]byte(raw), &s.meta); err != nil {
			s.logger.Warn("discarding unreadable book metadata", zap.Error(err))
			s.meta = map[string]entities.BookMeta{}
		}
	}
	if len(s.meta) > 0 {
		return nil
	}

	raw, ok, err := s.kv.Get(keyTopicMeta)
	if err != nil || !ok {
		return err
	}
	legacy := map[string]entities.BookMeta{}
	if err := json.Unmarshal([]byte(raw), &legacy); err != nil {
		s.logger.Warn("discarding unreadable legacy metadata", zap.Error(err))
		return nil
	}
	if len(legacy) == 0 {
		return nil
	}

	// Legacy records used arbitrary topic names as ids. Assign fresh
	// document ids but keep the original creation times.
	for topic, m := range legacy {
		id, err := valueobjects.NewDocumentID()
		if err != nil {
			return apperrors.Wrap(err, "generating document id")
		}
		created := m.Created
		if created == 0 {
			created = utils.NowMillis()
		}
		name := m.Name
		if name == "" {
			name = topic
		}
		s.meta[id.String()] = entities.BookMeta{ID: id, Name: name, Created: created}
	}
	s.logger.Info("migrated legacy book metadata", zap.Int("books", len(s.meta)))
	return s.persist()
}

func (s *BookStore) persist() error {
	data, err := json.Marshal(s.meta)
	if err != nil {
		return apperrors.Wrap(err, "encoding book metadata")
	}
	return s.kv.Set(keyBooksMeta, string(data))
}

// Get returns the metadata for a book id.
func (s *BookStore) Get(id string) (entities.BookMeta, bool) {
	m, ok := s.meta[id]
	return m, ok
}

// All returns a copy of the full metadata map.
func (s *BookStore) All() map[string]entities.BookMeta {
	return entities.CloneMeta(s.meta)
}

// Create registers a new book and returns its metadata.
func (s *BookStore) Create(name string) (entities.BookMeta, error) {
	id, err := valueobjects.NewDocumentID()
	if err != nil {
		return entities.BookMeta{}, apperrors.Wrap(err, "generating document id")
	}
	m := entities.BookMeta{ID: id, Name: name, Created: utils.NowMillis()}
	s.meta[id.String()] = m
	return m, s.persist()
}

// Rename updates a book's display name. The id and creation time are
// preserved.
func (s *BookStore) Rename(id, name string) (entities.BookMeta, error) {
	m, ok := s.meta[id]
	if !ok {
		return entities.BookMeta{}, apperrors.NewNotFoundError("book")
	}
	m.Name = name
	s.meta[id] = m
	return m, s.persist()
}

// Delete removes a book's metadata.
func (s *BookStore) Delete(id string) error {
	delete(s.meta, id)
	return s.persist()
}

// EnsureMetadata guarantees every known topic has valid metadata under
// a proper document id. Topics keyed by anything that is not a valid
// document id get a fresh id; existing creation times are preserved.
// It returns a mapping of reassigned ids (old topic id to new) so the
// caller can move dependent records.
func (s *BookStore) EnsureMetadata(topics []string) (map[string]string, error) {
	remapped := map[string]string{}
	changed := false

	for _, topic := range topics {
		docID := valueobjects.DocumentID(topic)
		if docID.Valid() {
			if _, ok := s.meta[topic]; !ok {
				s.meta[topic] = entities.BookMeta{ID: docID, Name: topic, Created: utils.NowMillis()}
				changed = true
			}
			continue
		}

		id, err := valueobjects.NewDocumentID()
		if err != nil {
			return nil, apperrors.Wrap(err, "generating document id")
		}
		m, hadMeta := s.meta[topic]
		created := m.Created
		if created == 0 {
			created = utils.NowMillis()
		}
		name := m.Name
		if name == "" {
			name = topic
		}
		s.meta[id.String()] = entities.BookMeta{ID: id, Name: name, Created: created}
		if hadMeta {
			delete(s.meta, topic)
		}
		remapped[topic] = id.String()
		changed = true
	}

	if changed {
		if err := s.persist(); err != nil {
			return nil, err
		}
	}
	return remapped, nil
}

// Replace swaps in a full metadata map, as on restore or import.
func (s *BookStore) Replace(meta map[string]entities.BookMeta) error {
	if meta == nil {
		meta = map[string]entities.BookMeta{}
	}
	s.meta = meta
	return s.persist()
}
