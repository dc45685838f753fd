// Package services holds the application-level stores that keep the
// in-memory working state and its persisted records consistent.
package services

import (
	"encoding/json"
	"sort"
	"strings"

	"go.uber.org/zap"

	"bookgraph/domain/core/entities"
	"bookgraph/domain/core/valueobjects"
	"bookgraph/infrastructure/persistence/abstractions"
	apperrors "bookgraph/pkg/errors"
)

// Persisted record keys. These names are shared with the browser
// client, so they must not change.
const (
	keyEntriesByTopic = "entriesByTopic"
	keyCurrentTopic   = "currentTopic"
	keyOrderCounters  = "orderCounters"
)

// EntryStore manages chunks per book, their per-book order counters
// and the currently selected book. It is not safe for concurrent use;
// the owning Workspace serializes access.
type EntryStore struct {
	kv     abstractions.KeyValue
	logger *zap.Logger

	entries  map[string][]entities.Chunk
	counters map[string]int
	current  string
}

// NewEntryStore loads persisted entries, counters and the current
// topic from the record store.
func NewEntryStore(kv abstractions.KeyValue, logger *zap.Logger) (*EntryStore, error) {
	s := &EntryStore{
		kv:       kv,
		logger:   logger,
		entries:  map[string][]entities.Chunk{},
		counters: map[string]int{},
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *EntryStore) load() error {
	if raw, ok, err := s.kv.Get(keyEntriesByTopic); err != nil {
		return err
	} else if ok {
		if err := json.Unmarshal([]byte(raw), &s.entries); err != nil {
			s.logger.Warn("discarding unreadable entries record", zap.Error(err))
			s.entries = map[string][]entities.Chunk{}
		}
	}
	if raw, ok, err := s.kv.Get(keyOrderCounters); err != nil {
		return err
	} else if ok {
		if err := json.Unmarshal([]byte(raw), &s.counters); err != nil {
			s.logger.Warn("discarding unreadable counters record", zap.Error(err))
			s.counters = map[string]int{}
		}
	}
	if raw, ok, err := s.kv.Get(keyCurrentTopic); err != nil {
		return err
	} else if ok {
		s.current = raw
	}
	if s.entries == nil {
		s.entries = map[string][]entities.Chunk{}
	}
	if s.counters == nil {
		s.counters = map[string]int{}
	}
	return nil
}

func (s *EntryStore) persistEntries() error {
	data, err := json.Marshal(s.entries)
	if err != nil {
		return apperrors.Wrap(err, "encoding entries")
	}
	return s.kv.Set(keyEntriesByTopic, string(data))
}

func (s *EntryStore) persistCounters() error {
	data, err := json.Marshal(s.counters)
	if err != nil {
		return apperrors.Wrap(err, "encoding counters")
	}
	return s.kv.Set(keyOrderCounters, string(data))
}

func (s *EntryStore) persistCurrent() error {
	return s.kv.Set(keyCurrentTopic, s.current)
}

// Current returns the id of the currently selected book.
func (s *EntryStore) Current() string {
	return s.current
}

// SetCurrent switches the selected book and persists the choice.
func (s *EntryStore) SetCurrent(topic string) error {
	s.current = topic
	return s.persistCurrent()
}

// Topics lists every book id that has an entry list, sorted.
func (s *EntryStore) Topics() []string {
	topics := make([]string, 0, len(s.entries))
	for t := range s.entries {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// Entries returns a deep copy of the chunks for a book.
func (s *EntryStore) Entries(topic string) []entities.Chunk {
	return entities.CloneChunks(s.entries[topic])
}

// Counter returns the order counter for a book.
func (s *EntryStore) Counter(topic string) int {
	return s.counters[topic]
}

// HasChunk reports whether a chunk id exists in the given book.
func (s *EntryStore) HasChunk(topic, chunkID string) bool {
	for _, c := range s.entries[topic] {
		if c.ID == chunkID {
			return true
		}
	}
	return false
}

// AddChunk appends a chunk with trimmed input, a fresh id and the next
// order number for the book. Empty input after trimming is rejected.
func (s *EntryStore) AddChunk(topic, input string) (entities.Chunk, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return entities.Chunk{}, apperrors.NewValidationError("input must not be empty")
	}

	existing := make(map[string]bool)
	for _, chunks := range s.entries {
		for _, c := range chunks {
			existing[c.ID] = true
		}
	}
	id, err := valueobjects.NewChunkID(existing)
	if err != nil {
		return entities.Chunk{}, apperrors.Wrap(err, "generating chunk id")
	}

	s.counters[topic]++
	chunk := entities.Chunk{
		ID:       id,
		Order:    s.counters[topic],
		Instruct: entities.DefaultInstruct,
		Input:    input,
		Output:   "",
	}
	s.entries[topic] = append(s.entries[topic], chunk)

	if err := s.persistEntries(); err != nil {
		return entities.Chunk{}, err
	}
	if err := s.persistCounters(); err != nil {
		return entities.Chunk{}, err
	}
	s.logger.Debug("chunk added", zap.String("topic", topic), zap.String("chunk_id", id))
	return chunk, nil
}

// UpdateChunk replaces the input of an existing chunk. Order, instruct
// and output are left untouched.
func (s *EntryStore) UpdateChunk(topic, chunkID, input string) (entities.Chunk, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return entities.Chunk{}, apperrors.NewValidationError("input must not be empty")
	}
	chunks := s.entries[topic]
	for i := range chunks {
		if chunks[i].ID == chunkID {
			chunks[i].Input = input
			if err := s.persistEntries(); err != nil {
				return entities.Chunk{}, err
			}
			return chunks[i], nil
		}
	}
	return entities.Chunk{}, apperrors.NewNotFoundError("chunk")
}

// DeleteChunk removes a chunk and renumbers the survivors densely from
// 1 in their previous relative order. The book's counter becomes the
// new chunk count.
func (s *EntryStore) DeleteChunk(topic, chunkID string) error {
	chunks := s.entries[topic]
	idx := -1
	for i := range chunks {
		if chunks[i].ID == chunkID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return apperrors.NewNotFoundError("chunk")
	}

	remaining := append(chunks[:idx:idx], chunks[idx+1:]...)
	sort.SliceStable(remaining, func(i, j int) bool {
		return remaining[i].Order < remaining[j].Order
	})
	for i := range remaining {
		remaining[i].Order = i + 1
	}
	s.entries[topic] = remaining
	s.counters[topic] = len(remaining)

	if err := s.persistEntries(); err != nil {
		return err
	}
	return s.persistCounters()
}

// SetDepth records a chunk's nesting depth. Values below 1 clear the
// depth. A missing chunk is silently ignored.
func (s *EntryStore) SetDepth(topic, chunkID string, depth int) error {
	chunks := s.entries[topic]
	for i := range chunks {
		if chunks[i].ID != chunkID {
			continue
		}
		if depth < 1 {
			chunks[i].Depth = nil
		} else {
			d := depth
			chunks[i].Depth = &d
		}
		return s.persistEntries()
	}
	return nil
}

// RenameTopic moves a book's entries and counter under a new id. The
// target id must not already hold entries.
func (s *EntryStore) RenameTopic(oldTopic, newTopic string) error {
	if _, exists := s.entries[newTopic]; exists {
		return apperrors.NewConflictError("a book with that id already exists")
	}
	if chunks, ok := s.entries[oldTopic]; ok {
		s.entries[newTopic] = chunks
		delete(s.entries, oldTopic)
	} else {
		s.entries[newTopic] = []entities.Chunk{}
	}
	if counter, ok := s.counters[oldTopic]; ok {
		s.counters[newTopic] = counter
		delete(s.counters, oldTopic)
	}
	if s.current == oldTopic {
		s.current = newTopic
		if err := s.persistCurrent(); err != nil {
			return err
		}
	}
	if err := s.persistEntries(); err != nil {
		return err
	}
	return s.persistCounters()
}

// DeleteTopic drops a book's entries and counter entirely.
func (s *EntryStore) DeleteTopic(topic string) error {
	delete(s.entries, topic)
	delete(s.counters, topic)
	if err := s.persistEntries(); err != nil {
		return err
	}
	return s.persistCounters()
}

// EnsureTopic makes sure a book has an entry list and counter.
func (s *EntryStore) EnsureTopic(topic string) error {
	if _, ok := s.entries[topic]; ok {
		return nil
	}
	s.entries[topic] = []entities.Chunk{}
	if _, ok := s.counters[topic]; !ok {
		s.counters[topic] = 0
	}
	if err := s.persistEntries(); err != nil {
		return err
	}
	return s.persistCounters()
}

// Snapshot returns deep copies of the full entry and counter state.
func (s *EntryStore) Snapshot() (map[string][]entities.Chunk, map[string]int) {
	entries := make(map[string][]entities.Chunk, len(s.entries))
	for t, chunks := range s.entries {
		entries[t] = entities.CloneChunks(chunks)
	}
	counters := make(map[string]int, len(s.counters))
	for t, c := range s.counters {
		counters[t] = c
	}
	return entries, counters
}

// Replace swaps in a whole new entry and counter state, as when
// restoring from the server or importing a file.
func (s *EntryStore) Replace(entries map[string][]entities.Chunk, counters map[string]int, current string) error {
	if entries == nil {
		entries = map[string][]entities.Chunk{}
	}
	if counters == nil {
		counters = map[string]int{}
	}
	s.entries = entries
	s.counters = counters
	s.current = current
	if err := s.persistEntries(); err != nil {
		return err
	}
	if err := s.persistCounters(); err != nil {
		return err
	}
	return s.persistCurrent()
}
