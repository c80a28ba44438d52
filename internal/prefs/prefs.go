// Package prefs persists small namespaced settings such as WiFi credentials.
package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	wifiNamespace = "wifi"
	ssidKey       = "ssid"
	passKey       = "pass"
)

const schema = `
CREATE TABLE IF NOT EXISTS prefs (
	namespace  TEXT NOT NULL,
	name       TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (namespace, name)
)`

// Credentials are the station network settings entered in the setup portal.
type Credentials struct {
	SSID string
	Pass string
}

// Store wraps sqlx.DB. driver is "sqlite" (modernc) or "postgres" (lib/pq).
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open connects and creates the prefs table if needed.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case "sqlite":
		if dir := sqliteDir(dsn); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("prefs: create %s: %w", dir, err)
			}
		}
	case "postgres":
	default:
		return nil, fmt.Errorf("prefs: unknown driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("prefs: open: %w", err)
	}
	if driver == "sqlite" {
		// One writer keeps SQLITE_BUSY away.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("prefs: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("prefs: migrate: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func sqliteDir(dsn string) string {
	if dsn == "" || dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return ""
	}
	return filepath.Dir(dsn)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value and whether it was present.
func (s *Store) Get(ctx context.Context, namespace, name string) (string, bool, error) {
	var v string
	err := s.db.GetContext(ctx, &v, s.db.Rebind(`SELECT value FROM prefs WHERE namespace = ? AND name = ?`), namespace, name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("prefs: get %s/%s: %w", namespace, name, err)
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, namespace, name, value string) error {
	return set(ctx, s.db, s.now(), namespace, name, value)
}

func (s *Store) Delete(ctx context.Context, namespace, name string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM prefs WHERE namespace = ? AND name = ?`), namespace, name)
	if err != nil {
		return fmt.Errorf("prefs: delete %s/%s: %w", namespace, name, err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Rebind(query string) string
}

func set(ctx context.Context, db execer, at time.Time, namespace, name, value string) error {
	q := db.Rebind(`
		INSERT INTO prefs (namespace, name, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	if _, err := db.ExecContext(ctx, q, namespace, name, value, at.UTC()); err != nil {
		return fmt.Errorf("prefs: set %s/%s: %w", namespace, name, err)
	}
	return nil
}

// SaveCredentials writes both keys in one transaction.
func (s *Store) SaveCredentials(ctx context.Context, c Credentials) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("prefs: begin: %w", err)
	}
	defer tx.Rollback()

	now := s.now()
	if err := set(ctx, tx, now, wifiNamespace, ssidKey, c.SSID); err != nil {
		return err
	}
	if err := set(ctx, tx, now, wifiNamespace, passKey, c.Pass); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadCredentials reports ok=false when no SSID is stored.
func (s *Store) LoadCredentials(ctx context.Context) (Credentials, bool, error) {
	ssid, ok, err := s.Get(ctx, wifiNamespace, ssidKey)
	if err != nil || !ok || ssid == "" {
		return Credentials{}, false, err
	}
	pass, _, err := s.Get(ctx, wifiNamespace, passKey)
	if err != nil {
		return Credentials{}, false, err
	}
	return Credentials{SSID: ssid, Pass: pass}, true, nil
}

func (s *Store) ClearCredentials(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM prefs WHERE namespace = ?`), wifiNamespace)
	if err != nil {
		return fmt.Errorf("prefs: clear credentials: %w", err)
	}
	return nil
}
