package todos

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type SQLiteGateway struct {
	db *sql.DB
}

func NewSQLiteGateway(dsn string) (*SQLiteGateway, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Reasonable pragmas for an app server
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteGateway{db: db}, nil
}

func (g *SQLiteGateway) Close() error { return g.db.Close() }

// List returns todos in insertion order.
func (g *SQLiteGateway) List(ctx context.Context) ([]Todo, error) {
	rows, err := g.db.QueryContext(ctx, `
		SELECT id, title, complete
		FROM todos
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, gatewayErr("list", err)
	}
	defer rows.Close()

	out := []Todo{}
	for rows.Next() {
		var t Todo
		if err := rows.Scan(&t.ID, &t.Title, &t.Complete); err != nil {
			return nil, gatewayErr("list", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, gatewayErr("list", err)
	}
	return out, nil
}

func (g *SQLiteGateway) Create(ctx context.Context, t Todo) error {
	_, err := g.db.ExecContext(ctx, `
		INSERT INTO todos (id, title, complete)
		VALUES (?, ?, ?)
	`, t.ID, t.Title, t.Complete)
	return gatewayErr("create", err)
}

func (g *SQLiteGateway) Read(ctx context.Context, id string) (Todo, error) {
	var t Todo
	err := g.db.QueryRowContext(ctx, `
		SELECT id, title, complete
		FROM todos
		WHERE id = ?
	`, id).Scan(&t.ID, &t.Title, &t.Complete)
	if errors.Is(err, sql.ErrNoRows) {
		return Todo{}, ErrNotFound
	}
	if err != nil {
		return Todo{}, gatewayErr("read", err)
	}
	return t, nil
}

func (g *SQLiteGateway) Replace(ctx context.Context, t Todo) error {
	res, err := g.db.ExecContext(ctx, `
		UPDATE todos SET title = ?, complete = ?
		WHERE id = ?
	`, t.Title, t.Complete, t.ID)
	return affectedOne("replace", res, err)
}

func (g *SQLiteGateway) Delete(ctx context.Context, id string) error {
	res, err := g.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	return affectedOne("delete", res, err)
}

func affectedOne(op string, res sql.Result, err error) error {
	if err != nil {
		return gatewayErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return gatewayErr(op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyMigrations ensures schema exists
func (g *SQLiteGateway) ApplyMigrations(ctx context.Context) error {
	_, err := g.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS todos (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	complete INTEGER NOT NULL DEFAULT 0
);
	`)
	return err
}

// Helper to build DSN like: file:/absolute/path?_pragma=busy_timeout(5000)
func SQLiteFileDSN(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return "file:" + filepath.ToSlash(abs) + "?_pragma=busy_timeout(5000)", nil
}
