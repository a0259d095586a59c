// Package battledb is a small local archive of finished battles. Writes
// go through a single writer goroutine so the delivery loop never blocks
// on disk.
package battledb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// BattleRecord is one finished battle as remembered locally.
type BattleRecord struct {
	BattleID    string
	WinnerID    string
	WinnerName  string
	TotalEpochs int
	EventsSeen  int
	RecordedAt  time.Time
}

type Archive struct {
	db *sql.DB

	ch   chan BattleRecord
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

func Open(path string) (*Archive, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &Archive{
		db: db,
		ch: make(chan BattleRecord, 256),
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.loop()
	}()
	return a, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS battles (
			battle_id TEXT PRIMARY KEY,
			winner_id TEXT NOT NULL,
			winner_name TEXT NOT NULL,
			total_epochs INTEGER NOT NULL,
			events_seen INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_battles_recorded_at ON battles(recorded_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (a *Archive) loop() {
	for rec := range a.ch {
		_, err := a.db.Exec(`INSERT INTO battles
			(battle_id, winner_id, winner_name, total_epochs, events_seen, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(battle_id) DO UPDATE SET
				winner_id=excluded.winner_id,
				winner_name=excluded.winner_name,
				total_epochs=excluded.total_epochs,
				events_seen=excluded.events_seen,
				recorded_at=excluded.recorded_at`,
			rec.BattleID, rec.WinnerID, rec.WinnerName,
			rec.TotalEpochs, rec.EventsSeen,
			rec.RecordedAt.UTC().Format(time.RFC3339Nano),
		)
		_ = err // a failed archive write never disturbs the viewer
	}
}

// RecordBattle enqueues the record. A backed-up writer drops it rather
// than blocking the delivery loop.
func (a *Archive) RecordBattle(rec BattleRecord) {
	if a == nil || a.closed.Load() {
		return
	}
	if rec.BattleID == "" {
		return
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}
	select {
	case a.ch <- rec:
	default:
	}
}

// RecentBattles returns up to n battles, newest first.
func (a *Archive) RecentBattles(n int) ([]BattleRecord, error) {
	if n <= 0 {
		n = 10
	}
	rows, err := a.db.Query(`SELECT battle_id, winner_id, winner_name,
		total_epochs, events_seen, recorded_at
		FROM battles ORDER BY recorded_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BattleRecord
	for rows.Next() {
		var rec BattleRecord
		var recordedAt string
		if err := rows.Scan(&rec.BattleID, &rec.WinnerID, &rec.WinnerName,
			&rec.TotalEpochs, &rec.EventsSeen, &recordedAt); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, recordedAt); err == nil {
			rec.RecordedAt = t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close drains pending writes and closes the database.
func (a *Archive) Close() error {
	var err error
	a.once.Do(func() {
		a.closed.Store(true)
		close(a.ch)
		a.wg.Wait()
		err = a.db.Close()
	})
	return err
}
