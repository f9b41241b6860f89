package riser

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// SaveState encodes a parameter snapshot as JSON at the given path.
func SaveState(path string, s State) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "Couldn't save snapshot: failed to create %q", path)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	if err = enc.Encode(s); err != nil {
		return errors.Wrapf(err, "Couldn't save snapshot: failed to encode JSON to %q", path)
	}

	return nil
}

// LoadState decodes a parameter snapshot previously written by SaveState.
// A missing or malformed file is an error; there is no partial restore.
func LoadState(path string) (State, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Couldn't load snapshot: failed to open %q", path)
	}
	defer f.Close()

	var s State
	dec := json.NewDecoder(f)
	if err = dec.Decode(&s); err != nil {
		return nil, errors.Wrapf(err, "Couldn't load snapshot: failed to decode JSON from %q", path)
	}

	return s, nil
}

// DirStore is a CheckpointStore backed by JSON files in a single directory.
type DirStore struct {
	Dir string
}

// NewDirStore creates the directory if needed and returns a store over it.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.Wrapf(err, "Couldn't create checkpoint directory %q", dir)
	}
	return &DirStore{Dir: dir}, nil
}

// Save writes the snapshot under the given name.
func (d *DirStore) Save(name string, s State) error {
	return SaveState(filepath.Join(d.Dir, name), s)
}

// Load reads the snapshot with the given name.
func (d *DirStore) Load(name string) (State, error) {
	return LoadState(filepath.Join(d.Dir, name))
}
