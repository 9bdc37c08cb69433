package todos

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxDB is the part of *pgxpool.Pool the gateway uses.
type pgxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresGateway struct {
	database pgxDB
}

func NewPostgresGateway(database pgxDB) *PostgresGateway {
	return &PostgresGateway{database: database}
}

// OpenPostgresPool connects and pings with a short timeout so a dead database
// fails start-up instead of the first request.
func OpenPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func (g *PostgresGateway) ApplyMigrations(ctx context.Context) error {
	_, err := g.database.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS todos (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			complete BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	return err
}

func (g *PostgresGateway) List(ctx context.Context) ([]Todo, error) {
	const query = `
		SELECT id, title, complete
		FROM todos
		ORDER BY created_at ASC, id ASC;
	`

	rows, err := g.database.Query(ctx, query)
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

func (g *PostgresGateway) Create(ctx context.Context, t Todo) error {
	const query = `
		INSERT INTO todos (id, title, complete)
		VALUES ($1, $2, $3);
	`
	_, err := g.database.Exec(ctx, query, t.ID, t.Title, t.Complete)
	return gatewayErr("create", err)
}

func (g *PostgresGateway) Read(ctx context.Context, id string) (Todo, error) {
	const query = `
		SELECT id, title, complete
		FROM todos
		WHERE id = $1;
	`

	var t Todo
	err := g.database.QueryRow(ctx, query, id).Scan(&t.ID, &t.Title, &t.Complete)
	if errors.Is(err, pgx.ErrNoRows) {
		return Todo{}, ErrNotFound
	}
	if err != nil {
		return Todo{}, gatewayErr("read", err)
	}
	return t, nil
}

func (g *PostgresGateway) Replace(ctx context.Context, t Todo) error {
	const query = `
		UPDATE todos SET title = $2, complete = $3
		WHERE id = $1;
	`
	tag, err := g.database.Exec(ctx, query, t.ID, t.Title, t.Complete)
	return commandAffectedOne("replace", tag, err)
}

func (g *PostgresGateway) Delete(ctx context.Context, id string) error {
	tag, err := g.database.Exec(ctx, `DELETE FROM todos WHERE id = $1;`, id)
	return commandAffectedOne("delete", tag, err)
}

func commandAffectedOne(op string, tag pgconn.CommandTag, err error) error {
	if err != nil {
		return gatewayErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
