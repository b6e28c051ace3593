package keychain

import (
	"database/sql"
	"errors"

	"github.com/desertthunder/wamp/internal/shared"
)

// SQLiteBackend stores secrets in the secrets table created by the embedded migrations.
type SQLiteBackend struct {
	db *sql.DB
}

func NewSQLiteBackend(db *sql.DB) *SQLiteBackend { return &SQLiteBackend{db: db} }

func (b *SQLiteBackend) Name() string { return "sqlite" }

func (b *SQLiteBackend) Set(service, account, value string) error {
	_, err := b.db.Exec(`
		INSERT INTO secrets (service, account, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(service, account) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, service, account, value)
	return mapSQLErr(err)
}

func (b *SQLiteBackend) Get(service, account string) (string, error) {
	var value string
	err := b.db.QueryRow("SELECT value FROM secrets WHERE service = ? AND account = ?", service, account).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", mapSQLErr(err)
	}
	return value, nil
}

func (b *SQLiteBackend) Delete(service, account string) error {
	_, err := b.db.Exec("DELETE FROM secrets WHERE service = ? AND account = ?", service, account)
	return mapSQLErr(err)
}

func mapSQLErr(err error) error {
	if err == nil {
		return nil
	}
	return shared.NewError(shared.KindKeychainUnexpected, err)
}
