// Package blob persists KeyValue records as one file per key on a
// hackpadfs filesystem, so the same code runs against the OS disk and
// the in-memory filesystem used in tests.
package blob

import (
	"encoding/base64"
	"errors"
	"io/fs"
	"strings"

	"github.com/hack-pad/hackpadfs"

	"bookgraph/infrastructure/persistence/abstractions"
	apperrors "bookgraph/pkg/errors"
)

const recordExt = ".rec"

// KV stores each key as a file under dir. Keys are base64-encoded in
// file names so arbitrary key strings stay path-safe.
type KV struct {
	fs  hackpadfs.FS
	dir string
}

// NewKV creates a store rooted at dir, creating the directory if needed.
func NewKV(fsys hackpadfs.FS, dir string) (*KV, error) {
	if err := hackpadfs.MkdirAll(fsys, dir, 0o755); err != nil {
		return nil, apperrors.Wrap(err, "creating record directory")
	}
	return &KV{fs: fsys, dir: dir}, nil
}

var _ abstractions.KeyValue = (*KV)(nil)

func (s *KV) path(key string) string {
	name := base64.RawURLEncoding.EncodeToString([]byte(key))
	return s.dir + "/" + name + recordExt
}

func (s *KV) Get(key string) (string, bool, error) {
	data, err := hackpadfs.ReadFile(s.fs, s.path(key))
	if err != nil {
		if isNotExist(err) {
			return "", false, nil
		}
		return "", false, apperrors.Wrap(err, "reading record")
	}
	return string(data), true, nil
}

func (s *KV) Set(key, value string) error {
	if err := hackpadfs.WriteFullFile(s.fs, s.path(key), []byte(value), 0o644); err != nil {
		return apperrors.Wrap(err, "writing record")
	}
	return nil
}

func (s *KV) Delete(key string) error {
	err := hackpadfs.Remove(s.fs, s.path(key))
	if err != nil && !isNotExist(err) {
		return apperrors.Wrap(err, "deleting record")
	}
	return nil
}

func (s *KV) Keys() ([]string, error) {
	entries, err := fs.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, apperrors.Wrap(err, "listing records")
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, recordExt) {
			continue
		}
		raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSuffix(name, recordExt))
		if err != nil {
			continue
		}
		keys = append(keys, string(raw))
	}
	return keys, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
