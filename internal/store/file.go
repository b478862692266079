package store

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v2"
	"moff.io/wallet-modal/pkg/errors"
)

// File keeps choices in a small yaml document, one key per entry, so several
// modals may share a file under different keys.
type File struct {
	mu   sync.Mutex
	path string
	key  string
}

func NewFile(path, key string) *File {
	return &File{path: path, key: key}
}

func (f *File) read() (map[string]string, error) {
	dat, err := ioutil.ReadFile(f.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read choice file")
	}
	entries := map[string]string{}
	if err := yaml.Unmarshal(dat, &entries); err != nil {
		return nil, errors.Wrap(err, "decode choice file")
	}
	return entries, nil
}

func (f *File) write(entries map[string]string) error {
	dat, err := yaml.Marshal(entries)
	if err != nil {
		return errors.Wrap(err, "encode choice file")
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return errors.Wrap(err, "create choice dir")
	}
	tmp := f.path + ".tmp"
	if err := ioutil.WriteFile(tmp, dat, 0o600); err != nil {
		return errors.Wrap(err, "write choice file")
	}
	return errors.Wrap(os.Rename(tmp, f.path), "replace choice file")
}

func (f *File) Load(context.Context) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.read()
	if err != nil {
		return "", false, err
	}
	id, ok := entries[f.key]
	return id, ok && id != "", nil
}

func (f *File) Save(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.read()
	if err != nil {
		return err
	}
	entries[f.key] = id
	return f.write(entries)
}

func (f *File) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := entries[f.key]; !ok {
		return nil
	}
	delete(entries, f.key)
	return f.write(entries)
}
