package keychain

import (
	"errors"
	"os"

	"github.com/desertthunder/wamp/internal/shared"
	"github.com/zalando/go-keyring"
)

const probeAccount = "wamp::probe"

// KeyringBackend stores secrets in the OS credential store.
type KeyringBackend struct{}

func NewKeyringBackend() *KeyringBackend { return &KeyringBackend{} }

func (KeyringBackend) Name() string { return "keyring" }

// Probe writes and removes a throwaway item to check the keyring is usable.
func (k KeyringBackend) Probe(service string) error {
	if err := keyring.Set(service, probeAccount, "probe"); err != nil {
		return err
	}
	_ = keyring.Delete(service, probeAccount)
	return nil
}

func (KeyringBackend) Set(service, account, value string) error {
	return mapKeyringErr(keyring.Set(service, account, value))
}

func (KeyringBackend) Get(service, account string) (string, error) {
	v, err := keyring.Get(service, account)
	if err != nil {
		return "", mapKeyringErr(err)
	}
	return v, nil
}

func (KeyringBackend) Delete(service, account string) error {
	return mapKeyringErr(keyring.Delete(service, account))
}

func mapKeyringErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, keyring.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, keyring.ErrSetDataTooBig):
		return shared.NewError(shared.KindInvalidSecretData, err)
	case errors.Is(err, os.ErrPermission):
		return shared.NewError(shared.KindKeychainAccessDenied, err)
	default:
		return shared.NewError(shared.KindKeychainUnexpected, err)
	}
}
