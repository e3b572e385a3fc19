package settings

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/gnss-track/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store persists committed setting values so accepted writes survive a
// restart. The schema is managed by embedded migrations.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and if needed migrates) the settings database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings database: %w", err)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// Note: we don't close m because it would close the underlying DB
	// connection.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("settings migration failed: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Save upserts one accepted setting value.
func (s *Store) Save(section, name, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (section, name, value)
		VALUES (?, ?, ?)
		ON CONFLICT(section, name) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, section, name, value)
	if err != nil {
		return fmt.Errorf("failed to save setting %s.%s: %w", section, name, err)
	}
	return nil
}

// Load replays every persisted value through apply. A value the current
// validators reject is logged and skipped rather than aborting the
// replay; the binding keeps its default for that key.
func (s *Store) Load(apply func(section, name, value string) error) error {
	rows, err := s.db.Query(`SELECT section, name, value FROM settings ORDER BY section, name`)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var section, name, value string
		if err := rows.Scan(&section, &name, &value); err != nil {
			return fmt.Errorf("failed to scan setting row: %w", err)
		}
		if err := apply(section, name, value); err != nil {
			monitoring.Logf("settings: skipping persisted %s.%s: %v", section, name, err)
		}
	}
	return rows.Err()
}
