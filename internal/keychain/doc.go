// package keychain persists the access and refresh tokens behind a small
// key-value contract. A missing item is reported as absent, never as an error.
//
// Backends:
//   - keyring: the OS credential store (macOS Keychain, Secret Service, Windows Credential Manager)
//   - file: a 0600 JSON file guarded by a cross-process lock
//   - sqlite: the secrets table of the application database
//   - memory: process-local, mostly for tests
package keychain
