package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/decred/slog"
	"github.com/vctt94/holdemtable/pkg/poker"
	"github.com/vctt94/holdemtable/pkg/server/internal/db"
)

// Records is the historical statistics report served on /records.
type Records struct {
	HighestPot int64            `json:"highestPot"`
	BiggestWin int64            `json:"biggestWin"`
	WinsByName map[string]int64 `json:"winsByName"`
}

// RecordsStore persists win statistics across restarts.
type RecordsStore interface {
	poker.RecordsStore
	Records(ctx context.Context) (Records, error)
	Reset(ctx context.Context) error
	Close() error
}

// sqlRecords is the sqlite backed RecordsStore.
type sqlRecords struct {
	log slog.Logger
	db  *db.DB
}

// NewRecordsStore opens the records database at dbPath, creating the
// directory and schema as needed.
func NewRecordsStore(dbPath string, log slog.Logger) (RecordsStore, error) {
	if log == nil {
		log = slog.Disabled
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	d, err := db.NewDB(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open records database: %w", err)
	}
	return &sqlRecords{log: log, db: d}, nil
}

// RecordWin stores one pot won by name. A win also counts toward the highest
// pot since a single winner takes the whole pot.
func (s *sqlRecords) RecordWin(ctx context.Context, name string, amount int64) error {
	if name == "" || amount <= 0 {
		return nil
	}
	s.log.Debugf("recording win of %d for %s", amount, name)
	return s.db.InsertWin(ctx, name, amount)
}

func (s *sqlRecords) RecordPot(ctx context.Context, amount int64) error {
	if amount <= 0 {
		return nil
	}
	return s.db.InsertPot(ctx, amount)
}

func (s *sqlRecords) Records(ctx context.Context) (Records, error) {
	biggest, err := s.db.MaxWin(ctx)
	if err != nil {
		return Records{}, err
	}
	highest, err := s.db.MaxPot(ctx)
	if err != nil {
		return Records{}, err
	}
	wins, err := s.db.WinCounts(ctx)
	if err != nil {
		return Records{}, err
	}
	return Records{
		HighestPot: max(highest, biggest),
		BiggestWin: biggest,
		WinsByName: wins,
	}, nil
}

func (s *sqlRecords) Reset(ctx context.Context) error {
	s.log.Infof("resetting records")
	return s.db.Truncate(ctx)
}

func (s *sqlRecords) Close() error {
	return s.db.Close()
}
