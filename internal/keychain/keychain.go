package keychain

import (
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/wamp/internal/shared"
)

// Kind names one of the two stored secrets.
type Kind string

const (
	AccessToken  Kind = "spotify_access_token"
	RefreshToken Kind = "spotify_refresh_token"
)

// DefaultService is the service identifier items are scoped to.
const DefaultService = "com.winamp-spotify-player"

// maxSecretSize mirrors the smallest platform keyring limit (Windows credential blobs).
const maxSecretSize = 2560

// ErrNotFound is returned by a [Backend] when the item does not exist. [Store] turns it into absent.
var ErrNotFound = errors.New("secret not found")

// Backend is the raw secret storage a [Store] delegates to.
type Backend interface {
	Set(service, account, value string) error
	Get(service, account string) (string, error)
	Delete(service, account string) error
	Name() string
}

// Store is the token store. Operations are serialized internally and safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	backend Backend
	service string
	logger  *log.Logger
}

// NewStore creates a [Store] over backend. An empty service falls back to [DefaultService].
func NewStore(backend Backend, service string, logger *log.Logger) *Store {
	if service == "" {
		service = DefaultService
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Store{backend: backend, service: service, logger: logger}
}

// Backend returns the name of the underlying backend.
func (s *Store) Backend() string { return s.backend.Name() }

// Save creates or overwrites the secret for kind.
func (s *Store) Save(kind Kind, value string) error {
	if !utf8.ValidString(value) || len(value) > maxSecretSize {
		return shared.NewError(shared.KindInvalidSecretData, fmt.Errorf("%s: %d bytes", kind, len(value)))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Set(s.service, string(kind), value); err != nil {
		return s.wrap("save", kind, err)
	}
	s.logger.Debug("secret saved", "kind", kind, "backend", s.backend.Name())
	return nil
}

// Get returns the secret for kind. found is false, with a nil error, when nothing is stored.
func (s *Store) Get(kind Kind) (value string, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, err = s.backend.Get(s.service, string(kind))
	switch {
	case errors.Is(err, ErrNotFound):
		return "", false, nil
	case err != nil:
		return "", false, s.wrap("get", kind, err)
	}

	if !utf8.ValidString(value) {
		return "", false, shared.NewError(shared.KindInvalidSecretData, fmt.Errorf("%s is not valid UTF-8", kind))
	}
	return value, true, nil
}

// Delete removes the secret for kind. Deleting a missing item succeeds.
func (s *Store) Delete(kind Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(kind)
}

// DeleteAll removes both tokens. Both deletions are attempted even if the first fails.
func (s *Store) DeleteAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return errors.Join(s.deleteLocked(AccessToken), s.deleteLocked(RefreshToken))
}

func (s *Store) deleteLocked(kind Kind) error {
	if err := s.backend.Delete(s.service, string(kind)); err != nil && !errors.Is(err, ErrNotFound) {
		return s.wrap("delete", kind, err)
	}
	return nil
}

// wrap maps backend failures onto the keychain error kinds, keeping ones that are already typed.
func (s *Store) wrap(op string, kind Kind, err error) error {
	if shared.KindOf(err) != shared.KindUnknown {
		return err
	}
	s.logger.Warn("keychain operation failed", "op", op, "kind", kind, "backend", s.backend.Name(), "err", err)
	return shared.NewError(shared.KindKeychainUnexpected, fmt.Errorf("%s %s: %w", op, kind, err))
}

func (s *Store) SaveAccessToken(token string) error  { return s.Save(AccessToken, token) }
func (s *Store) SaveRefreshToken(token string) error { return s.Save(RefreshToken, token) }

func (s *Store) AccessToken() (string, bool, error)  { return s.Get(AccessToken) }
func (s *Store) RefreshToken() (string, bool, error) { return s.Get(RefreshToken) }

// DeleteTokens is an alias of [Store.DeleteAll].
func (s *Store) DeleteTokens() error { return s.DeleteAll() }

