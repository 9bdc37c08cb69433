package todos

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestPostgresGateway_List(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		database := &fakeDB{}
		gateway := NewPostgresGateway(database)

		rows := &fakeRows{rows: [][]any{
			{"id-1", "first", false},
			{"id-2", "second", true},
		}}
		database.queryFn = func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			return rows, nil
		}

		list, err := gateway.List(context.Background())

		require.NoError(t, err)
		require.Equal(t, []Todo{
			{ID: "id-1", Title: "first"},
			{ID: "id-2", Title: "second", Complete: true},
		}, list)
		require.True(t, rows.closed)
		require.Contains(t, normalizeSQL(database.lastQuery), "SELECT id, title, complete FROM todos")
	})

	t.Run("query error", func(t *testing.T) {
		database := &fakeDB{}
		gateway := NewPostgresGateway(database)

		database.queryFn = func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			return nil, errors.New("connection reset")
		}

		_, err := gateway.List(context.Background())

		var ge *GatewayError
		require.ErrorAs(t, err, &ge)
		require.Equal(t, "list", ge.Op)
	})

	t.Run("rows error", func(t *testing.T) {
		database := &fakeDB{}
		gateway := NewPostgresGateway(database)

		database.queryFn = func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			return &fakeRows{err: errors.New("broken stream")}, nil
		}

		_, err := gateway.List(context.Background())

		var ge *GatewayError
		require.ErrorAs(t, err, &ge)
	})
}

func TestPostgresGateway_Create(t *testing.T) {
	database := &fakeDB{}
	gateway := NewPostgresGateway(database)

	database.execFn = func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}

	err := gateway.Create(context.Background(), Todo{ID: "id-1", Title: "Buy milk"})

	require.NoError(t, err)
	require.Contains(t, database.lastQuery, "INSERT INTO todos")
	require.Equal(t, []any{"id-1", "Buy milk", false}, database.lastArgs)
}

func TestPostgresGateway_Read(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		database := &fakeDB{}
		gateway := NewPostgresGateway(database)

		database.queryRowFn = func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &fakeRow{values: []any{"id-1", "Buy milk", true}}
		}

		got, err := gateway.Read(context.Background(), "id-1")

		require.NoError(t, err)
		require.Equal(t, Todo{ID: "id-1", Title: "Buy milk", Complete: true}, got)
		require.Equal(t, []any{"id-1"}, database.lastArgs)
	})

	t.Run("not found", func(t *testing.T) {
		database := &fakeDB{}
		gateway := NewPostgresGateway(database)

		database.queryRowFn = func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &fakeRow{err: pgx.ErrNoRows}
		}

		_, err := gateway.Read(context.Background(), "missing")

		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("other error", func(t *testing.T) {
		database := &fakeDB{}
		gateway := NewPostgresGateway(database)

		database.queryRowFn = func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &fakeRow{err: errors.New("timeout")}
		}

		_, err := gateway.Read(context.Background(), "id-1")

		require.NotErrorIs(t, err, ErrNotFound)
		var ge *GatewayError
		require.ErrorAs(t, err, &ge)
		require.Equal(t, "read", ge.Op)
	})
}

func TestPostgresGateway_ReplaceAndDelete(t *testing.T) {
	tests := []struct {
		name    string
		tag     string
		execErr error
		call    func(g *PostgresGateway) error
		check   func(t *testing.T, err error)
	}{
		{
			name: "replace ok",
			tag:  "UPDATE 1",
			call: func(g *PostgresGateway) error {
				return g.Replace(context.Background(), Todo{ID: "id-1", Title: "t", Complete: true})
			},
			check: func(t *testing.T, err error) { require.NoError(t, err) },
		},
		{
			name: "replace missing",
			tag:  "UPDATE 0",
			call: func(g *PostgresGateway) error {
				return g.Replace(context.Background(), Todo{ID: "id-1"})
			},
			check: func(t *testing.T, err error) { require.ErrorIs(t, err, ErrNotFound) },
		},
		{
			name: "delete ok",
			tag:  "DELETE 1",
			call: func(g *PostgresGateway) error {
				return g.Delete(context.Background(), "id-1")
			},
			check: func(t *testing.T, err error) { require.NoError(t, err) },
		},
		{
			name: "delete missing",
			tag:  "DELETE 0",
			call: func(g *PostgresGateway) error {
				return g.Delete(context.Background(), "id-1")
			},
			check: func(t *testing.T, err error) { require.ErrorIs(t, err, ErrNotFound) },
		},
		{
			name:    "delete failure",
			execErr: errors.New("throttled"),
			call: func(g *PostgresGateway) error {
				return g.Delete(context.Background(), "id-1")
			},
			check: func(t *testing.T, err error) {
				var ge *GatewayError
				require.ErrorAs(t, err, &ge)
				require.Equal(t, "delete", ge.Op)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			database := &fakeDB{}
			database.execFn = func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
				return pgconn.NewCommandTag(tt.tag), tt.execErr
			}

			tt.check(t, tt.call(NewPostgresGateway(database)))
		})
	}
}

type fakeDB struct {
	execFn     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
	queryFn    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)

	lastQuery string
	lastArgs  []any
}

func (db *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.lastQuery = sql
	db.lastArgs = args
	if db.execFn == nil {
		return pgconn.CommandTag{}, errors.New("unexpected Exec call")
	}
	return db.execFn(ctx, sql, args...)
}

func (db *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	db.lastQuery = sql
	db.lastArgs = args
	if db.queryRowFn == nil {
		return &fakeRow{err: errors.New("unexpected QueryRow call")}
	}
	return db.queryRowFn(ctx, sql, args...)
}

func (db *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	db.lastQuery = sql
	db.lastArgs = args
	if db.queryFn == nil {
		return nil, errors.New("unexpected Query call")
	}
	return db.queryFn(ctx, sql, args...)
}

type fakeRow struct {
	values []any
	err    error
}

func (row *fakeRow) Scan(dest ...any) error {
	if row.err != nil {
		return row.err
	}
	return assignValues(dest, row.values)
}

type fakeRows struct {
	rows   [][]any
	idx    int
	closed bool
	err    error
}

func (rows *fakeRows) Close() {
	rows.closed = true
}

func (rows *fakeRows) Err() error {
	return rows.err
}

func (rows *fakeRows) CommandTag() pgconn.CommandTag {
	return pgconn.CommandTag{}
}

func (rows *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	return nil
}

func (rows *fakeRows) Next() bool {
	if rows.closed {
		return false
	}
	if rows.idx >= len(rows.rows) {
		rows.closed = true
		return false
	}
	rows.idx++
	return true
}

func (rows *fakeRows) Scan(dest ...any) error {
	if rows.idx == 0 || rows.idx > len(rows.rows) {
		return errors.New("scan called without next")
	}
	return assignValues(dest, rows.rows[rows.idx-1])
}

func (rows *fakeRows) Values() ([]any, error) {
	return nil, errors.New("not implemented")
}

func (rows *fakeRows) RawValues() [][]byte {
	return nil
}

func (rows *fakeRows) Conn() *pgx.Conn {
	return nil
}

func assignValues(dest []any, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("dest len %d does not match values len %d", len(dest), len(values))
	}
	for i, d := range dest {
		destValue := reflect.ValueOf(d)
		if destValue.Kind() != reflect.Ptr {
			return fmt.Errorf("dest %d is not a pointer", i)
		}
		destValue.Elem().Set(reflect.ValueOf(values[i]).Convert(destValue.Elem().Type()))
	}
	return nil
}

func normalizeSQL(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
