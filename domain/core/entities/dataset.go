package entities

// Dataset is the full transferable state: the shape written to export
// files, sent to the backend on sync and received on restore.
//
// TopicMeta is a deprecated predecessor of BooksMeta; it is read during
// migration and never written back.
type Dataset struct {
	EntriesByTopic   map[string][]Chunk      `json:"entriesByTopic"`
	OrderCounters    map[string]int          `json:"orderCounters"`
	CurrentTopic     string                  `json:"currentTopic"`
	BooksMeta        map[string]BookMeta     `json:"booksMeta,omitempty"`
	TopicMeta        map[string]BookMeta     `json:"topicMeta,omitempty"`
	GraphConnections map[string][]Connection `json:"graphConnections,omitempty"`
	ExportedAt       string                  `json:"exportedAt,omitempty"`
	Version          string                  `json:"version,omitempty"`
}

// PendingEdit is a one-shot handoff record: the graph screen writes it and
// the editor screen consumes it once on load. Timestamp is epoch
// milliseconds; records older than five minutes are discarded unread.
type PendingEdit struct {
	Book      string `json:"book"`
	ChunkID   string `json:"chunkId"`
	Timestamp int64  `json:"timestamp"`
}

// Meta returns the effective metadata map, preferring the current shape
// over the legacy one.
func (d *Dataset) Meta() map[string]BookMeta {
	if len(d.BooksMeta) > 0 {
		return d.BooksMeta
	}
	return d.TopicMeta
}
