// Package snapshot is the server-side persistence for synced datasets.
// Each book's chunks go to their own JSON file named after the book,
// a manifest ties the files back together, and the connection graph
// lives in its own file next to them.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hack-pad/hackpadfs"

	"bookgraph/domain/core/entities"
	apperrors "bookgraph/pkg/errors"
)

const (
	manifestFile = "manifest.json"
	graphFile    = "graph.json"
)

// Manifest records which topics were saved, under which file names,
// and the bookkeeping state that travels with them.
type Manifest struct {
	CurrentTopic  string                       `json:"currentTopic"`
	OrderCounters map[string]int               `json:"orderCounters"`
	BooksMeta     map[string]entities.BookMeta `json:"booksMeta,omitempty"`
	Topics        []string                     `json:"topics"`
	Files         map[string]string            `json:"files"`
}

// Store persists datasets under dir on a hackpadfs filesystem.
type Store struct {
	fs         hackpadfs.FS
	dir        string
	backupsDir string
}

// NewStore creates the data and backup directories if they are missing.
func NewStore(fsys hackpadfs.FS, dir, backupsDir string) (*Store, error) {
	if err := hackpadfs.MkdirAll(fsys, dir, 0o755); err != nil {
		return nil, apperrors.Wrap(err, "creating data directory")
	}
	if err := hackpadfs.MkdirAll(fsys, backupsDir, 0o755); err != nil {
		return nil, apperrors.Wrap(err, "creating backups directory")
	}
	return &Store{fs: fsys, dir: dir, backupsDir: backupsDir}, nil
}

// sanitizeName turns a topic id into a safe file stem. Only letters,
// digits, dash, underscore and space survive; spaces collapse to
// underscores and an empty result falls back to "topic".
func sanitizeName(topic string) string {
	var b strings.Builder
	for _, r := range topic {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == ' ':
			b.WriteRune(r)
		}
	}
	name := strings.TrimSpace(b.String())
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" {
		name = "topic"
	}
	return name
}

// Save writes every topic to its own file and rewrites the manifest.
// It returns the list of file names written, topic files first.
func (s *Store) Save(ds *entities.Dataset) ([]string, error) {
	manifest := Manifest{
		CurrentTopic:  ds.CurrentTopic,
		OrderCounters: ds.OrderCounters,
		BooksMeta:     ds.Meta(),
		Topics:        make([]string, 0, len(ds.EntriesByTopic)),
		Files:         make(map[string]string, len(ds.EntriesByTopic)),
	}

	used := make(map[string]bool)
	var saved []string
	topics := make([]string, 0, len(ds.EntriesByTopic))
	for topic := range ds.EntriesByTopic {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	for _, topic := range topics {
		stem := sanitizeName(topic)
		name := stem + ".json"
		for i := 2; used[name]; i++ {
			name = fmt.Sprintf("%s_%d.json", stem, i)
		}
		used[name] = true

		data, err := json.MarshalIndent(ds.EntriesByTopic[topic], "", "  ")
		if err != nil {
			return nil, apperrors.Wrap(err, "encoding topic entries")
		}
		if err := hackpadfs.WriteFullFile(s.fs, s.dir+"/"+name, data, 0o644); err != nil {
			return nil, apperrors.Wrap(err, "writing topic file")
		}

		manifest.Topics = append(manifest.Topics, topic)
		manifest.Files[topic] = name
		saved = append(saved, name)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, apperrors.Wrap(err, "encoding manifest")
	}
	if err := hackpadfs.WriteFullFile(s.fs, s.dir+"/"+manifestFile, data, 0o644); err != nil {
		return nil, apperrors.Wrap(err, "writing manifest")
	}
	saved = append(saved, manifestFile)
	return saved, nil
}

// GraphRecord is the persisted shape of the connection graph. The
// book metadata uploaded with it rides along so a graph-only restore
// still knows the books it references.
type GraphRecord struct {
	BooksMeta        map[string]entities.BookMeta     `json:"booksMeta,omitempty"`
	GraphConnections map[string][]entities.Connection `json:"graphConnections"`
}

// SaveGraph writes the connection graph to its own file.
func (s *Store) SaveGraph(rec GraphRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return apperrors.Wrap(err, "encoding graph")
	}
	if err := hackpadfs.WriteFullFile(s.fs, s.dir+"/"+graphFile, data, 0o644); err != nil {
		return apperrors.Wrap(err, "writing graph file")
	}
	return nil
}

// LoadGraph reads the connection graph. A missing file yields an
// empty record.
func (s *Store) LoadGraph() (GraphRecord, error) {
	empty := GraphRecord{GraphConnections: map[string][]entities.Connection{}}
	data, err := hackpadfs.ReadFile(s.fs, s.dir+"/"+graphFile)
	if err != nil {
		return empty, nil
	}
	var rec GraphRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return GraphRecord{}, apperrors.Wrap(err, "decoding graph file")
	}
	if rec.GraphConnections == nil {
		rec.GraphConnections = map[string][]entities.Connection{}
	}
	return rec, nil
}

// Load rebuilds a dataset from the manifest and topic files. When the
// manifest is missing it falls back to scanning loose topic files.
func (s *Store) Load() (*entities.Dataset, error) {
	ds := &entities.Dataset{
		EntriesByTopic: map[string][]entities.Chunk{},
		OrderCounters:  map[string]int{},
	}

	data, err := hackpadfs.ReadFile(s.fs, s.dir+"/"+manifestFile)
	if err != nil {
		return s.loadLoose(ds)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, apperrors.Wrap(err, "decoding manifest")
	}
	ds.CurrentTopic = manifest.CurrentTopic
	if manifest.OrderCounters != nil {
		ds.OrderCounters = manifest.OrderCounters
	}
	ds.BooksMeta = manifest.BooksMeta

	for topic, file := range manifest.Files {
		raw, err := hackpadfs.ReadFile(s.fs, s.dir+"/"+file)
		if err != nil {
			continue
		}
		var chunks []entities.Chunk
		if err := json.Unmarshal(raw, &chunks); err != nil {
			return nil, apperrors.Wrap(err, "decoding topic file "+file)
		}
		ds.EntriesByTopic[topic] = chunks
	}
	return ds, nil
}

// loadLoose recovers topics from bare *.json files when no manifest
// exists. The manifest and graph files themselves are skipped.
func (s *Store) loadLoose(ds *entities.Dataset) (*entities.Dataset, error) {
	entries, err := fs.ReadDir(s.fs, s.dir)
	if err != nil {
		return ds, nil
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if name == manifestFile || name == graphFile {
			continue
		}
		raw, err := hackpadfs.ReadFile(s.fs, s.dir+"/"+name)
		if err != nil {
			continue
		}
		var chunks []entities.Chunk
		if err := json.Unmarshal(raw, &chunks); err != nil {
			continue
		}
		topic := strings.TrimSuffix(name, ".json")
		ds.EntriesByTopic[topic] = chunks
		ds.OrderCounters[topic] = len(chunks)
	}
	return ds, nil
}

// Backup copies every current data file into a fresh timestamped
// directory under the backups root and returns its name.
func (s *Store) Backup() (string, error) {
	stamp := time.Now().UTC().Format("20060102-150405")
	name := stamp + "-" + uuid.NewString()[:8]
	dest := s.backupsDir + "/" + name
	if err := hackpadfs.MkdirAll(s.fs, dest, 0o755); err != nil {
		return "", apperrors.Wrap(err, "creating backup directory")
	}

	entries, err := fs.ReadDir(s.fs, s.dir)
	if err != nil {
		return "", apperrors.Wrap(err, "listing data files")
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := hackpadfs.ReadFile(s.fs, s.dir+"/"+e.Name())
		if err != nil {
			return "", apperrors.Wrap(err, "reading data file")
		}
		if err := hackpadfs.WriteFullFile(s.fs, dest+"/"+e.Name(), data, 0o644); err != nil {
			return "", apperrors.Wrap(err, "writing backup file")
		}
	}
	return name, nil
}
