package service

import (
	"context"

	"tablero/internal/model"
	"tablero/internal/query"
)

type DBClient interface {
	Connect(driver, dsn string) error
	Disconnect() error
	ListTables(ctx context.Context, schema string) ([]string, error)
	ListColumns(ctx context.Context, schema, table string) ([]model.Column, error)
	ListConstraints(ctx context.Context, schema, table string) ([]model.ConstraintInfo, error)

	// Query runs a read statement and returns its full result set.
	Query(ctx context.Context, stmt query.Statement) (model.TableData, error)
	// Exec runs a write statement once, outside any explicit transaction, and
	// returns the number of affected rows.
	Exec(ctx context.Context, stmt query.Statement) (int64, error)

	EnsureAccounts(ctx context.Context) error
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateUser(ctx context.Context, user model.User) (int64, error)
}
