package services

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"bookgraph/domain/core/entities"
	"bookgraph/domain/core/valueobjects"
	"bookgraph/infrastructure/persistence/abstractions"
	apperrors "bookgraph/pkg/errors"
	"bookgraph/pkg/utils"
)

const (
	keyIsDark           = "isDark"
	keyCurrentGraphBook = "currentGraphBook"
	keyPendingEdit      = "pendingEdit"
)

// pendingEditTTLMillis is how long a requested edit stays claimable.
const pendingEditTTLMillis = 5 * 60 * 1000

// Workspace is the single entry point for all dataset mutations. It
// owns the record store, the three sub-stores and the lock that
// serializes every operation on them.
type Workspace struct {
	mu     sync.Mutex
	kv     abstractions.KeyValue
	logger *zap.Logger

	entries     *EntryStore
	books       *BookStore
	connections *ConnectionStore
}

// NewWorkspace loads all stores, repairs book ids where needed and
// guarantees at least one book exists.
func NewWorkspace(kv abstractions.KeyValue, logger *zap.Logger) (*Workspace, error) {
	entries, err := NewEntryStore(kv, logger)
	if err != nil {
		return nil, err
	}
	books, err := NewBookStore(kv, logger)
	if err != nil {
		return nil, err
	}
	connections, err := NewConnectionStore(kv, logger)
	if err != nil {
		return nil, err
	}

	w := &Workspace{
		kv:          kv,
		logger:      logger,
		entries:     entries,
		books:       books,
		connections: connections,
	}
	if err := w.repair(); err != nil {
		return nil, err
	}
	return w, nil
}

// repair migrates topics that are not valid document ids and makes
// sure a default book exists and is selected.
func (w *Workspace) repair() error {
	remapped, err := w.books.EnsureMetadata(w.entries.Topics())
	if err != nil {
		return err
	}
	for oldID, newID := range remapped {
		if err := w.entries.RenameTopic(oldID, newID); err != nil {
			return err
		}
		if _, err := w.connections.RemapIDs(oldID, newID, nil); err != nil {
			return err
		}
	}

	if len(w.entries.Topics()) == 0 {
		if err := w.createDefaultBook(); err != nil {
			return err
		}
	}
	if w.entries.Current() == "" {
		topics := w.entries.Topics()
		if err := w.entries.SetCurrent(topics[0]); err != nil {
			return err
		}
	}
	return nil
}

func (w *Workspace) createDefaultBook() error {
	m, err := w.books.Create(entities.DefaultBookName)
	if err != nil {
		return err
	}
	if err := w.entries.EnsureTopic(m.ID.String()); err != nil {
		return err
	}
	return w.entries.SetCurrent(m.ID.String())
}

// CurrentBook returns the id of the selected book.
func (w *Workspace) CurrentBook() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.entries.Current()
}

// SelectBook switches the selected book.
func (w *Workspace) SelectBook(docID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.books.Get(docID); !ok {
		return apperrors.NewNotFoundError("book")
	}
	return w.entries.SetCurrent(docID)
}

// Books returns the metadata of every book.
func (w *Workspace) Books() map[string]entities.BookMeta {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.books.All()
}

// Entries returns the chunks of a book.
func (w *Workspace) Entries(docID string) []entities.Chunk {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.entries.Entries(docID)
}

// AddChunk appends a new chunk to a book.
func (w *Workspace) AddChunk(docID, input string) (entities.Chunk, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.entries.EnsureTopic(docID); err != nil {
		return entities.Chunk{}, err
	}
	return w.entries.AddChunk(docID, input)
}

// UpdateChunk replaces a chunk's input text.
func (w *Workspace) UpdateChunk(docID, chunkID, input string) (entities.Chunk, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.entries.UpdateChunk(docID, chunkID, input)
}

// DeleteChunk removes a chunk, renumbers the rest and prunes any
// connection that pointed at it.
func (w *Workspace) DeleteChunk(docID, chunkID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.entries.DeleteChunk(docID, chunkID); err != nil {
		return err
	}
	_, err := w.connections.Validate(docID, w.liveChunkIDs(docID))
	return err
}

// SetDepth sets or clears a chunk's nesting depth.
func (w *Workspace) SetDepth(docID, chunkID string, depth int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.entries.SetDepth(docID, chunkID, depth)
}

// nameTaken reports whether another book already uses the name.
// excludeID skips the book being renamed so renaming to the current
// name is allowed.
func (w *Workspace) nameTaken(name, excludeID string) bool {
	for id, m := range w.books.All() {
		if id != excludeID && m.Name == name {
			return true
		}
	}
	return false
}

// CreateBook registers a new named book with an empty entry list.
// Book names are unique; a taken name is rejected.
func (w *Workspace) CreateBook(name string) (entities.BookMeta, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.nameTaken(name, "") {
		return entities.BookMeta{}, apperrors.NewConflictError("a book with that name already exists")
	}
	m, err := w.books.Create(name)
	if err != nil {
		return entities.BookMeta{}, err
	}
	if err := w.entries.EnsureTopic(m.ID.String()); err != nil {
		return entities.BookMeta{}, err
	}
	return m, nil
}

// RenameBook changes a book's display name. The new name must not be
// used by any other book.
func (w *Workspace) RenameBook(docID, name string) (entities.BookMeta, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.nameTaken(name, docID) {
		return entities.BookMeta{}, apperrors.NewConflictError("a book with that name already exists")
	}
	return w.books.Rename(docID, name)
}

// DeleteBook removes a book with its entries, metadata and
// connections. When the last book goes away a fresh default book takes
// its place; otherwise the selection moves to another book if needed.
func (w *Workspace) DeleteBook(docID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.books.Get(docID); !ok {
		return apperrors.NewNotFoundError("book")
	}
	if err := w.entries.DeleteTopic(docID); err != nil {
		return err
	}
	if err := w.books.Delete(docID); err != nil {
		return err
	}
	if err := w.connections.DeleteDocument(docID); err != nil {
		return err
	}

	topics := w.entries.Topics()
	if len(topics) == 0 {
		return w.createDefaultBook()
	}
	if w.entries.Current() == docID {
		return w.entries.SetCurrent(topics[0])
	}
	return nil
}

// Connect creates a typed connection between two chunks of a book.
// Both endpoints must exist in the book.
func (w *Workspace) Connect(docID, source, target, linkType string) (entities.Connection, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.entries.HasChunk(docID, source) || !w.entries.HasChunk(docID, target) {
		return entities.Connection{}, apperrors.NewNotFoundError("chunk")
	}
	return w.connections.Create(docID, source, target, linkType)
}

// Disconnect removes a connection by id.
func (w *Workspace) Disconnect(docID, connID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	found, err := w.connections.Delete(docID, connID)
	if err != nil {
		return err
	}
	if !found {
		return apperrors.NewNotFoundError("connection")
	}
	return nil
}

// RetypeConnection changes a connection's type.
func (w *Workspace) RetypeConnection(docID, connID, linkType string) (entities.Connection, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connections.Retype(docID, connID, linkType)
}

// ReverseConnection swaps a connection's direction.
func (w *Workspace) ReverseConnection(docID, connID string) (entities.Connection, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connections.Reverse(docID, connID)
}

// Connections returns a book's connections.
func (w *Workspace) Connections(docID string) []entities.Connection {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connections.ForDocument(docID)
}

// ValidateConnections prunes connections whose endpoints no longer
// exist and returns how many were removed.
func (w *Workspace) ValidateConnections(docID string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connections.Validate(docID, w.liveChunkIDs(docID))
}

func (w *Workspace) liveChunkIDs(docID string) map[string]bool {
	live := map[string]bool{}
	for _, c := range w.entries.Entries(docID) {
		live[c.ID] = true
	}
	return live
}

// Dark reports whether dark mode is on.
func (w *Workspace) Dark() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok, err := w.kv.Get(keyIsDark)
	if err != nil || !ok {
		return false
	}
	return v == "1"
}

// SetDark persists the dark mode flag.
func (w *Workspace) SetDark(dark bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	v := "0"
	if dark {
		v = "1"
	}
	return w.kv.Set(keyIsDark, v)
}

// GraphBook returns the book last viewed in the graph, falling back to
// the selected book.
func (w *Workspace) GraphBook() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok, err := w.kv.Get(keyCurrentGraphBook)
	if err == nil && ok && v != "" {
		return v
	}
	return w.entries.Current()
}

// SetGraphBook remembers the book shown in the graph view.
func (w *Workspace) SetGraphBook(docID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.kv.Set(keyCurrentGraphBook, docID)
}

// RequestEdit records a chunk the editor should open next. The request
// expires after five minutes.
func (w *Workspace) RequestEdit(docID, chunkID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	pe := entities.PendingEdit{Book: docID, ChunkID: chunkID, Timestamp: utils.NowMillis()}
	data, err := json.Marshal(pe)
	if err != nil {
		return apperrors.Wrap(err, "encoding pending edit")
	}
	return w.kv.Set(keyPendingEdit, string(data))
}

// TakePendingEdit consumes the pending edit request if one exists and
// has not expired.
func (w *Workspace) TakePendingEdit() (entities.PendingEdit, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	raw, ok, err := w.kv.Get(keyPendingEdit)
	if err != nil || !ok {
		return entities.PendingEdit{}, false, err
	}
	if err := w.kv.Delete(keyPendingEdit); err != nil {
		return entities.PendingEdit{}, false, err
	}
	var pe entities.PendingEdit
	if err := json.Unmarshal([]byte(raw), &pe); err != nil {
		return entities.PendingEdit{}, false, nil
	}
	if utils.NowMillis()-pe.Timestamp > pendingEditTTLMillis {
		return entities.PendingEdit{}, false, nil
	}
	return pe, true, nil
}

// Snapshot captures the full dataset as deep copies.
func (w *Workspace) Snapshot() *entities.Dataset {
	w.mu.Lock()
	defer w.mu.Unlock()
	entriesByTopic, counters := w.entries.Snapshot()
	return &entities.Dataset{
		EntriesByTopic:   entriesByTopic,
		OrderCounters:    counters,
		CurrentTopic:     w.entries.Current(),
		BooksMeta:        w.books.All(),
		GraphConnections: w.connections.All(),
	}
}

// ApplyDataset replaces the whole workspace state with the given
// dataset, then runs the same repairs as startup.
func (w *Workspace) ApplyDataset(ds *entities.Dataset) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.entries.Replace(ds.EntriesByTopic, ds.OrderCounters, ds.CurrentTopic); err != nil {
		return err
	}
	if err := w.books.Replace(ds.Meta()); err != nil {
		return err
	}
	if ds.GraphConnections != nil {
		if err := w.connections.ReplaceAll(ds.GraphConnections); err != nil {
			return err
		}
	}
	return w.repair()
}

// MergeDataset overlays an imported dataset onto the workspace. Books
// present in the import replace their local counterparts key by key;
// books absent from the import are left alone.
func (w *Workspace) MergeDataset(ds *entities.Dataset) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	entriesByTopic, counters := w.entries.Snapshot()
	for topic, chunks := range ds.EntriesByTopic {
		entriesByTopic[topic] = entities.CloneChunks(chunks)
		if counter, ok := ds.OrderCounters[topic]; ok {
			counters[topic] = counter
		} else {
			counters[topic] = len(chunks)
		}
	}
	current := w.entries.Current()
	if ds.CurrentTopic != "" {
		if _, ok := entriesByTopic[ds.CurrentTopic]; ok {
			current = ds.CurrentTopic
		}
	}
	if err := w.entries.Replace(entriesByTopic, counters, current); err != nil {
		return err
	}

	meta := w.books.All()
	for id, m := range ds.Meta() {
		meta[id] = m
	}
	if err := w.books.Replace(meta); err != nil {
		return err
	}

	for docID, conns := range ds.GraphConnections {
		if err := w.connections.MergeDocument(docID, conns); err != nil {
			return err
		}
	}
	return w.repair()
}

// ImportBook installs a whole book under a known document id,
// replacing any existing book with that id. The counter is derived
// from the highest order present.
func (w *Workspace) ImportBook(docID, name string, chunks []entities.Chunk, conns []entities.Connection) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	entriesByTopic, counters := w.entries.Snapshot()
	entriesByTopic[docID] = entities.CloneChunks(chunks)
	maxOrder := 0
	for _, c := range chunks {
		if c.Order > maxOrder {
			maxOrder = c.Order
		}
	}
	if maxOrder < len(chunks) {
		maxOrder = len(chunks)
	}
	counters[docID] = maxOrder
	if err := w.entries.Replace(entriesByTopic, counters, w.entries.Current()); err != nil {
		return err
	}

	meta := w.books.All()
	if existing, ok := meta[docID]; ok {
		existing.Name = name
		meta[docID] = existing
	} else {
		meta[docID] = entities.BookMeta{
			ID:      valueobjects.DocumentID(docID),
			Name:    name,
			Created: utils.NowMillis(),
		}
	}
	if err := w.books.Replace(meta); err != nil {
		return err
	}

	if conns != nil {
		if err := w.connections.MergeDocument(docID, conns); err != nil {
			return err
		}
	}
	return w.repair()
}

// ReplaceConnections swaps in a full connection map, as on graph
// restore.
func (w *Workspace) ReplaceConnections(connections map[string][]entities.Connection) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connections.ReplaceAll(connections)
}

// AllConnections returns the full connection map.
func (w *Workspace) AllConnections() map[string][]entities.Connection {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connections.All()
}
