package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"huddle-cli/internal/model"
)

// Store is the local snapshot cache: the last-fetched task list and user
// directory, plus unsent composer drafts keyed by task id. It exists so
// the TUI can paint instantly on startup and so mention suggestions keep
// working when the directory is unreachable. Snapshots are replaced whole
// after every successful fetch, never merged.
type Store struct {
	Dir string
}

func (s Store) dbPath() string {
	return filepath.Join(s.Dir, "cache.sqlite")
}

func (s Store) open(ctx context.Context) (*sql.DB, error) {
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", s.dbPath())
	if err != nil {
		return nil, err
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			doc TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			doc TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS drafts (
			task_id TEXT PRIMARY KEY,
			body TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveTasks replaces the whole task snapshot.
func (s Store) SaveTasks(ctx context.Context, tasks []model.Task) error {
	return s.replaceSnapshot(ctx, "tasks", len(tasks), func(i int) (string, any) {
		return tasks[i].ID, tasks[i]
	})
}

// LoadTasks returns the cached task snapshot in its original order. An
// empty cache yields an empty slice, not an error.
func (s Store) LoadTasks(ctx context.Context) ([]model.Task, error) {
	var out []model.Task
	err := s.loadSnapshot(ctx, "tasks", func(doc []byte) error {
		var t model.Task
		if err := json.Unmarshal(doc, &t); err != nil {
			return err
		}
		out = append(out, t)
		return nil
	})
	return out, err
}

// SaveUsers replaces the whole user directory snapshot.
func (s Store) SaveUsers(ctx context.Context, users []model.User) error {
	return s.replaceSnapshot(ctx, "users", len(users), func(i int) (string, any) {
		return users[i].ID, users[i]
	})
}

// LoadUsers returns the cached user directory in its original order.
func (s Store) LoadUsers(ctx context.Context) ([]model.User, error) {
	var out []model.User
	err := s.loadSnapshot(ctx, "users", func(doc []byte) error {
		var u model.User
		if err := json.Unmarshal(doc, &u); err != nil {
			return err
		}
		out = append(out, u)
		return nil
	})
	return out, err
}

func (s Store) replaceSnapshot(ctx context.Context, table string, n int, row func(i int) (string, any)) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		id, doc := row(i)
		if id == "" {
			continue
		}
		b, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO `+table+`(id, position, doc) VALUES(?, ?, ?)`,
			id, i, string(b)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s Store) loadSnapshot(ctx context.Context, table string, each func(doc []byte) error) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT doc FROM `+table+` ORDER BY position`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return err
		}
		if err := each([]byte(doc)); err != nil {
			return err
		}
	}
	return rows.Err()
}

// SaveDraft stores unsent composition text for a task. Empty text deletes
// the draft.
func (s Store) SaveDraft(ctx context.Context, taskID, body string) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if body == "" {
		_, err = db.ExecContext(ctx, `DELETE FROM drafts WHERE task_id = ?`, taskID)
		return err
	}
	_, err = db.ExecContext(ctx, `INSERT OR REPLACE INTO drafts(task_id, body) VALUES(?, ?)`, taskID, body)
	return err
}

// LoadDraft returns the stored draft for a task, or "" when none exists.
func (s Store) LoadDraft(ctx context.Context, taskID string) (string, error) {
	db, err := s.open(ctx)
	if err != nil {
		return "", err
	}
	defer db.Close()

	var body string
	err = db.QueryRowContext(ctx, `SELECT body FROM drafts WHERE task_id = ?`, taskID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return body, nil
}
