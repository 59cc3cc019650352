// Package state keeps the SQLite ledger of arbor runs, so interrupted
// two-phase runs can be listed and resumed by workspace.
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection holding run records.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// DefaultPath returns the XDG data path of the run ledger.
func DefaultPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "arbor", "arbor.db")
}

// Open opens the ledger at the given path, creating parent directories.
// WAL mode is enabled for concurrent reads.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			problem TEXT NOT NULL,
			workspace TEXT NOT NULL,
			status TEXT NOT NULL,
			max_nodes INTEGER NOT NULL,
			max_depth INTEGER NOT NULL,
			nodes_created INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME NOT NULL,
			finished_at DATETIME
		)
	`)
	if err != nil {
		return fmt.Errorf("create runs table: %w", err)
	}
	return nil
}

// Run statuses.
const (
	RunStatusDecomposing = "decomposing"
	RunStatusDecomposed  = "decomposed"
	RunStatusExecuting   = "executing"
	RunStatusDone        = "done"
	RunStatusFailed      = "failed"
)

// Run is one recorded arbor run.
type Run struct {
	ID           string
	Problem      string
	Workspace    string
	Status       string
	MaxNodes     int
	MaxDepth     int
	NodesCreated int
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// CreateRun inserts a new run record and returns it.
func (db *DB) CreateRun(problem, workspace string, maxNodes, maxDepth int, status string) (*Run, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	run := &Run{
		ID:        uuid.New().String(),
		Problem:   problem,
		Workspace: workspace,
		Status:    status,
		MaxNodes:  maxNodes,
		MaxDepth:  maxDepth,
		StartedAt: time.Now(),
	}
	_, err := db.conn.Exec(
		`INSERT INTO runs (id, problem, workspace, status, max_nodes, max_depth, nodes_created, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		run.ID, run.Problem, run.Workspace, run.Status, run.MaxNodes, run.MaxDepth, run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// UpdateRun records the run's status and node count; terminal statuses
// also stamp the finish time.
func (db *DB) UpdateRun(id, status string, nodesCreated int) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var finishedAt interface{}
	if status == RunStatusDone || status == RunStatusFailed {
		finishedAt = time.Now()
	}
	_, err := db.conn.Exec(
		`UPDATE runs SET status = ?, nodes_created = ?, finished_at = COALESCE(?, finished_at) WHERE id = ?`,
		status, nodesCreated, finishedAt, id,
	)
	if err != nil {
		return fmt.Errorf("update run %s: %w", id, err)
	}
	return nil
}

// FindByWorkspace returns the most recent run for a workspace path, or
// nil when none is recorded.
func (db *DB) FindByWorkspace(workspace string) (*Run, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.conn.QueryRow(
		`SELECT id, problem, workspace, status, max_nodes, max_depth, nodes_created, started_at, finished_at
		 FROM runs WHERE workspace = ? ORDER BY started_at DESC LIMIT 1`, workspace)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

// ListRuns returns all runs, most recent first.
func (db *DB) ListRuns() ([]*Run, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(
		`SELECT id, problem, workspace, status, max_nodes, max_depth, nodes_created, started_at, finished_at
		 FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*Run, error) {
	var run Run
	var finishedAt sql.NullTime
	err := s.Scan(&run.ID, &run.Problem, &run.Workspace, &run.Status,
		&run.MaxNodes, &run.MaxDepth, &run.NodesCreated, &run.StartedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	return &run, nil
}
