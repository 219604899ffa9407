package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tablero/internal/model"
)

const (
	accountsTable  = "usuarios"
	passwordColumn = "contraseña"
)

func (p *PostgresClient) EnsureAccounts(ctx context.Context) error {
	if p.db == nil {
		return ErrNotConnected
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id SERIAL PRIMARY KEY,
			nombre VARCHAR(100) NOT NULL,
			correo VARCHAR(120) NOT NULL UNIQUE,
			%s VARCHAR(256) NOT NULL,
			rol VARCHAR(20) NOT NULL DEFAULT 'usuario'
		)`, quote(accountsTable), quote(passwordColumn))

	if _, err := p.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating %s: %w", accountsTable, err)
	}
	return nil
}

func (p *PostgresClient) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if p.db == nil {
		return nil, ErrNotConnected
	}

	q := fmt.Sprintf(`SELECT id, nombre, correo, %s, rol FROM %s WHERE correo = $1`,
		quote(passwordColumn), quote(accountsTable))

	var user model.User
	var role string
	err := p.db.QueryRowContext(ctx, q, email).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	user.Role = model.Role(role)
	return &user, nil
}

func (p *PostgresClient) CreateUser(ctx context.Context, user model.User) (int64, error) {
	if p.db == nil {
		return 0, ErrNotConnected
	}

	q := fmt.Sprintf(`INSERT INTO %s (nombre, correo, %s, rol) VALUES ($1, $2, $3, $4) RETURNING id`,
		quote(accountsTable), quote(passwordColumn))

	var id int64
	if err := p.db.QueryRowContext(ctx, q, user.Name, user.Email, user.PasswordHash, string(user.Role)).Scan(&id); err != nil {
		return 0, queryError(err)
	}
	return id, nil
}
