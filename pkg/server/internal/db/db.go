package db

import (
	"context"
	"database/sql"
	"fmt"
)

// DB represents the database connection
type DB struct {
	*sql.DB
}

// NewDB opens (creating if needed) the sqlite database at dbPath. The
// sqlite3 driver must be registered by the caller.
func NewDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// createTables creates the necessary database tables
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS wins (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			amount INTEGER NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS pots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			amount INTEGER NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS wins_name ON wins(name)`)
	return err
}

// InsertWin stores a single pot win.
func (db *DB) InsertWin(ctx context.Context, name string, amount int64) error {
	_, err := db.ExecContext(ctx, `INSERT INTO wins (name, amount) VALUES (?, ?)`, name, amount)
	if err != nil {
		return fmt.Errorf("failed to insert win: %v", err)
	}
	return nil
}

// InsertPot stores the total of a settled hand.
func (db *DB) InsertPot(ctx context.Context, amount int64) error {
	_, err := db.ExecContext(ctx, `INSERT INTO pots (amount) VALUES (?)`, amount)
	if err != nil {
		return fmt.Errorf("failed to insert pot: %v", err)
	}
	return nil
}

// MaxWin returns the largest single win, or zero.
func (db *DB) MaxWin(ctx context.Context) (int64, error) {
	var v int64
	err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(amount), 0) FROM wins`).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("failed to query biggest win: %v", err)
	}
	return v, nil
}

// MaxPot returns the largest settled hand total, or zero.
func (db *DB) MaxPot(ctx context.Context) (int64, error) {
	var v int64
	err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(amount), 0) FROM pots`).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("failed to query highest pot: %v", err)
	}
	return v, nil
}

// WinCounts returns the number of pots won per player name.
func (db *DB) WinCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT name, COUNT(*) FROM wins GROUP BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query wins: %v", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			name  string
			count int64
		)
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		counts[name] = count
	}
	return counts, rows.Err()
}

// Truncate removes every stored win and pot.
func (db *DB) Truncate(ctx context.Context) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM wins`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pots`); err != nil {
		return err
	}
	return tx.Commit()
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
