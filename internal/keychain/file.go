package keychain

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/desertthunder/wamp/internal/shared"
	"github.com/gofrs/flock"
)

const secretsFileName = "secrets.json"

// FileBackend stores secrets as JSON in dir/secrets.json (mode 0600).
//
// Writes hold an exclusive flock on dir/.secrets.lock and replace the file via temp file + rename.
type FileBackend struct {
	dir string
}

func NewFileBackend(dir string) *FileBackend { return &FileBackend{dir: dir} }

func (f *FileBackend) Name() string { return "file" }

// Path returns the secrets file location.
func (f *FileBackend) Path() string { return filepath.Join(f.dir, secretsFileName) }

func (f *FileBackend) lock() (*flock.Flock, error) {
	if err := os.MkdirAll(f.dir, 0700); err != nil {
		return nil, mapFileErr(err)
	}
	fl := flock.New(filepath.Join(f.dir, ".secrets.lock"))
	if err := fl.Lock(); err != nil {
		return nil, mapFileErr(err)
	}
	return fl, nil
}

func (f *FileBackend) Set(service, account, value string) error {
	fl, err := f.lock()
	if err != nil {
		return err
	}
	defer fl.Unlock()

	all, err := f.load()
	if err != nil {
		return err
	}
	if all[service] == nil {
		all[service] = make(map[string]string)
	}
	all[service][account] = value
	return f.write(all)
}

func (f *FileBackend) Get(service, account string) (string, error) {
	fl, err := f.lock()
	if err != nil {
		return "", err
	}
	defer fl.Unlock()

	all, err := f.load()
	if err != nil {
		return "", err
	}
	v, ok := all[service][account]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (f *FileBackend) Delete(service, account string) error {
	fl, err := f.lock()
	if err != nil {
		return err
	}
	defer fl.Unlock()

	all, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := all[service][account]; !ok {
		return nil
	}
	delete(all[service], account)
	if len(all[service]) == 0 {
		delete(all, service)
	}
	return f.write(all)
}

// load reads service -> account -> value. A missing file is an empty map.
func (f *FileBackend) load() (map[string]map[string]string, error) {
	data, err := os.ReadFile(f.Path())
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]map[string]string), nil
	}
	if err != nil {
		return nil, mapFileErr(err)
	}

	all := make(map[string]map[string]string)
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, shared.NewError(shared.KindKeychainUnexpected, fmt.Errorf("corrupt secrets file: %w", err))
	}
	return all, nil
}

func (f *FileBackend) write(all map[string]map[string]string) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return shared.NewError(shared.KindKeychainUnexpected, err)
	}

	tmp, err := os.CreateTemp(f.dir, "secrets-*.json.tmp")
	if err != nil {
		return mapFileErr(err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return mapFileErr(err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return mapFileErr(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return mapFileErr(err)
	}

	dest := f.Path()
	if err := os.Rename(tmpPath, dest); err != nil {
		if runtime.GOOS == "windows" {
			_ = os.Remove(dest)
			return mapFileErr(os.Rename(tmpPath, dest))
		}
		os.Remove(tmpPath)
		return mapFileErr(err)
	}
	return nil
}

func mapFileErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrPermission):
		return shared.NewError(shared.KindKeychainAccessDenied, err)
	default:
		return shared.NewError(shared.KindKeychainUnexpected, err)
	}
}
