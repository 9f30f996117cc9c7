package database

import (
	"database/sql"
	"errors"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cgillinger/skysplitter/internal/bluesky"
)

var DB *sql.DB

var ErrSessionNotFound = errors.New("no stored session")

func Open(databaseFile string) error {
	db, err := sql.Open("sqlite3", databaseFile+"?_journal_mode=WAL")
	if err != nil {
		return err
	}

	DB = db
	return nil
}

func CreateTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS sessions (
			identifier TEXT PRIMARY KEY,
			did TEXT NOT NULL,
			handle TEXT NOT NULL,
			access_jwt TEXT NOT NULL,
			refresh_jwt TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`
	_, err := DB.Exec(query)
	return err
}

func Close() {
	if DB != nil {
		if err := DB.Close(); err != nil {
			slog.Error(
				"Error closing database",
				"error", err.Error(),
			)
		}
	}
}

// SaveSession stores the tokens for an identifier, replacing any previous
// session so restarts can resume without a fresh login.
func SaveSession(identifier string, session bluesky.Session) error {
	query := `
		INSERT INTO sessions (identifier, did, handle, access_jwt, refresh_jwt, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(identifier) DO UPDATE SET
			did = excluded.did,
			handle = excluded.handle,
			access_jwt = excluded.access_jwt,
			refresh_jwt = excluded.refresh_jwt,
			updated_at = excluded.updated_at
	`

	_, err := DB.Exec(query, identifier, session.DID, session.Handle,
		session.AccessJwt, session.RefreshJwt, time.Now().UTC())
	return err
}

func GetSession(identifier string) (bluesky.Session, error) {
	row := DB.QueryRow(
		"SELECT did, handle, access_jwt, refresh_jwt FROM sessions WHERE identifier = ?",
		identifier,
	)

	var session bluesky.Session
	err := row.Scan(&session.DID, &session.Handle, &session.AccessJwt, &session.RefreshJwt)
	if errors.Is(err, sql.ErrNoRows) {
		return bluesky.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return bluesky.Session{}, err
	}

	return session, nil
}

func DeleteSession(identifier string) error {
	_, err := DB.Exec("DELETE FROM sessions WHERE identifier = ?", identifier)
	return err
}
