package keychain

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/wamp/internal/shared"
)

// NewBackend builds the backend selected by cfg.
//
// "keyring" probes the OS keyring first and falls back to the file backend with a warning when it is unavailable.
// "sqlite" opens (and migrates) the configured database; the returned close func releases it.
func NewBackend(ctx context.Context, cfg *shared.Config, logger *log.Logger) (Backend, func() error, error) {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	noop := func() error { return nil }
	dir := shared.ExpandHome(cfg.Keychain.Path)

	switch cfg.Keychain.Backend {
	case "memory":
		return NewMemoryBackend(), noop, nil
	case "file":
		return NewFileBackend(dir), noop, nil
	case "sqlite":
		db, err := shared.OpenDatabase(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return NewSQLiteBackend(db), db.Close, nil
	case "keyring", "":
		kr := NewKeyringBackend()
		if err := kr.Probe(cfg.Keychain.Service); err != nil {
			path := filepath.Join(dir, secretsFileName)
			logger.Warn("system keyring unavailable, tokens stored in plaintext", "path", path, "err", err)
			return NewFileBackend(dir), noop, nil
		}
		return kr, noop, nil
	default:
		return nil, nil, fmt.Errorf("%w: keychain.backend %q", shared.ErrInvalidConfig, cfg.Keychain.Backend)
	}
}

// MemoryBackend keeps secrets in a map.
type MemoryBackend struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: make(map[string]string)}
}

func memoryKey(service, account string) string { return service + "::" + account }

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) Set(service, account, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[memoryKey(service, account)] = value
	return nil
}

func (m *MemoryBackend) Get(service, account string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[memoryKey(service, account)]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryBackend) Delete(service, account string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, memoryKey(service, account))
	return nil
}

// Len reports how many items are stored.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
