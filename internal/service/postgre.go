package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"tablero/internal/model"
	"tablero/internal/query"
)

// Supported database/sql driver names.
const (
	DriverPQ  = "postgres"
	DriverPGX = "pgx"
)

type PostgresClient struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// NewPostgresClient returns an unconnected client. A zero queryTimeout leaves
// statements bounded only by the request context.
func NewPostgresClient(queryTimeout time.Duration) *PostgresClient {
	return &PostgresClient{queryTimeout: queryTimeout}
}

// NewPostgresClientFromDB wraps an already opened pool.
func NewPostgresClientFromDB(db *sql.DB) *PostgresClient {
	return &PostgresClient{db: db}
}

func (p *PostgresClient) Connect(driver, dsn string) error {
	switch driver {
	case DriverPQ, DriverPGX:
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return err
	}
	p.db = db
	return nil
}

func (p *PostgresClient) Disconnect() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func (p *PostgresClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.queryTimeout > 0 {
		return context.WithTimeout(ctx, p.queryTimeout)
	}
	return ctx, func() {}
}

func (p *PostgresClient) ListTables(ctx context.Context, schema string) ([]string, error) {
	if p.db == nil {
		return nil, ErrNotConnected
	}
	if schema == "" {
		schema = "public"
	}

	query := `SELECT table_name FROM information_schema.tables WHERE table_schema = $1 ORDER BY table_name`
	rows, err := p.db.QueryContext(ctx, query, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (p *PostgresClient) ListColumns(ctx context.Context, schema, table string) ([]model.Column, error) {
	if p.db == nil {
		return nil, ErrNotConnected
	}

	query := `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position;
	`

	rows, err := p.db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []model.Column
	for rows.Next() {
		var col model.Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable); err != nil {
			return nil, err
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}

	return columns, rows.Err()
}

func (p *PostgresClient) ListConstraints(ctx context.Context, schema, table string) ([]model.ConstraintInfo, error) {
	if p.db == nil {
		return nil, ErrNotConnected
	}

	query := `
		SELECT tc.constraint_name, tc.constraint_type, tc.table_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = $1 AND tc.table_name = $2
		ORDER BY tc.constraint_name, kcu.ordinal_position;
	`

	rows, err := p.db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var constraints []model.ConstraintInfo
	index := map[string]int{}
	for rows.Next() {
		var info model.ConstraintInfo
		var column string
		if err := rows.Scan(&info.ConstraintName, &info.ConstraintType, &info.TableName, &column); err != nil {
			return nil, err
		}
		if i, ok := index[info.ConstraintName]; ok {
			constraints[i].Columns = append(constraints[i].Columns, column)
			continue
		}
		info.Columns = []string{column}
		index[info.ConstraintName] = len(constraints)
		constraints = append(constraints, info)
	}
	return constraints, rows.Err()
}

func (p *PostgresClient) Query(ctx context.Context, stmt query.Statement) (model.TableData, error) {
	if p.db == nil {
		return model.TableData{}, ErrNotConnected
	}
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	text, args := stmt.Positional()
	rows, err := p.db.QueryContext(ctx, text, args...)
	if err != nil {
		return model.TableData{}, queryError(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return model.TableData{}, queryError(err)
	}

	result := model.TableData{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		columns := make([]any, len(cols))
		columnPointers := make([]any, len(cols))

		for i := range columns {
			columnPointers[i] = &columns[i]
		}

		if err := rows.Scan(columnPointers...); err != nil {
			return model.TableData{}, queryError(err)
		}

		for i, v := range columns {
			if b, ok := v.([]byte); ok {
				columns[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, columns)
	}

	return result, queryError(rows.Err())
}

func (p *PostgresClient) Exec(ctx context.Context, stmt query.Statement) (int64, error) {
	if p.db == nil {
		return 0, ErrNotConnected
	}
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	text, args := stmt.Positional()
	res, err := p.db.ExecContext(ctx, text, args...)
	if err != nil {
		return 0, queryError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, queryError(err)
	}
	return n, nil
}

// quote is used for the fixed account table, whose password column is not a
// plain identifier.
func quote(name string) string {
	return pq.QuoteIdentifier(name)
}
