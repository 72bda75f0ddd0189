package pairing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Store persists the full set of pairing records. Save always replaces the
// whole snapshot; there are no incremental writes. Load returns records in
// listing order and the registry keeps that order as is.
type Store interface {
	Load() ([]*Device, error)
	Save(devices []*Device) error
}

// FileStore keeps the snapshot as one indented JSON object keyed by
// pairing token.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

// Load returns the stored records ordered by pairing time. A missing file is
// an empty snapshot.
func (s *FileStore) Load() ([]*Device, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read pairing file: %w", err)
	}

	var raw map[string]*Device
	if err := decodeExact(data, &raw); err != nil {
		return nil, fmt.Errorf("decode pairing file: %w", err)
	}

	devices := make([]*Device, 0, len(raw))
	for token, d := range raw {
		if d == nil {
			continue
		}
		d.Token = token
		if d.SyncedFiles == nil {
			d.SyncedFiles = []any{}
		}
		devices = append(devices, d)
	}
	sortByPairing(devices)
	return devices, nil
}

// Save rewrites the file via a temporary sibling and a rename, so a crash
// never leaves a half-written snapshot behind.
func (s *FileStore) Save(devices []*Device) error {
	snapshot := make(map[string]*Device, len(devices))
	for _, d := range devices {
		snapshot[d.Token] = d
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode pairing file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create pairing dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".pairings-*")
	if err != nil {
		return fmt.Errorf("create temp pairing file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write pairing file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write pairing file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace pairing file: %w", err)
	}
	return nil
}

// decodeExact unmarshals data keeping JSON numbers as json.Number, so
// client-supplied sync descriptors round-trip without float rounding.
func decodeExact(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func sortByPairing(devices []*Device) {
	sort.SliceStable(devices, func(i, j int) bool {
		a, b := devices[i], devices[j]
		if !a.PairedAt.Equal(b.PairedAt) {
			return a.PairedAt.Before(b.PairedAt)
		}
		return a.Token < b.Token
	})
}
