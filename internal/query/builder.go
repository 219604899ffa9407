// Package query builds the parameterized statements run against a catalog
// table. Identifiers are checked against the table's allow-list before they
// reach the SQL text; values are always bound.
package query

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"tablero/helper"
	"tablero/internal/model"
)

var (
	ErrNoData            = errors.New("no data")
	ErrMalformedKey      = errors.New("malformed key")
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// Statement is a SQL text with named ":param" placeholders and the values
// bound to them.
type Statement struct {
	SQL    string
	Params map[string]any

	positional string
	order      []string
}

// Positional returns the statement with "$n" placeholders and its arguments in
// placeholder order, the form database/sql drivers for PostgreSQL accept.
func (s Statement) Positional() (string, []any) {
	args := make([]any, len(s.order))
	for i, name := range s.order {
		args[i] = s.Params[name]
	}
	return s.positional, args
}

// writer renders the named and positional forms side by side.
type writer struct {
	named      strings.Builder
	positional strings.Builder
	order      []string
	params     map[string]any
}

func newWriter() *writer {
	return &writer{params: map[string]any{}}
}

func (w *writer) sql(parts ...string) {
	for _, p := range parts {
		w.named.WriteString(p)
		w.positional.WriteString(p)
	}
}

func (w *writer) param(name string) {
	idx := slices.Index(w.order, name)
	if idx < 0 {
		w.order = append(w.order, name)
		idx = len(w.order) - 1
	}
	w.named.WriteString(":" + name)
	w.positional.WriteString("$" + strconv.Itoa(idx+1))
}

func (w *writer) bind(name string, value any) {
	w.params[name] = value
}

func (w *writer) statement() Statement {
	return Statement{
		SQL:        w.named.String(),
		Params:     w.params,
		positional: w.positional.String(),
		order:      w.order,
	}
}

func checkTable(table model.TableSpec) error {
	if !helper.IsValidIdentifier(table.Name) {
		return fmt.Errorf("%w: table %q", ErrInvalidIdentifier, table.Name)
	}
	if err := helper.ValidateIdentifiers("key column", table.PrimaryKey...); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidIdentifier, err)
	}
	return nil
}

func checkColumn(table model.TableSpec, column string) error {
	if !helper.IsValidIdentifier(column) {
		return fmt.Errorf("%w: column %q", ErrInvalidIdentifier, column)
	}
	if table.HasColumnList() && !table.KnowsColumn(column) {
		return fmt.Errorf("%w: column %q is not part of %s", ErrInvalidIdentifier, column, table.Name)
	}
	return nil
}

// sortedColumns returns the keys of m in lexical order.
func sortedColumns[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

// stripKeys drops the table's key columns from a mutation payload.
func stripKeys(table model.TableSpec, payload model.MutationPayload) model.MutationPayload {
	out := make(model.MutationPayload, len(payload))
	for col, val := range payload {
		if !table.IsPrimaryKey(col) {
			out[col] = val
		}
	}
	return out
}

// BuildSelect returns SELECT * over the table, restricted by a case-insensitive
// substring match for each non-blank filter.
func BuildSelect(table model.TableSpec, filters model.FilterSpec) (Statement, error) {
	if err := checkTable(table); err != nil {
		return Statement{}, err
	}

	w := newWriter()
	w.sql("SELECT * FROM ", table.Name)

	first := true
	for _, col := range sortedColumns(filters) {
		value := filters[col]
		if strings.TrimSpace(value) == "" {
			continue
		}
		if err := checkColumn(table, col); err != nil {
			return Statement{}, err
		}

		if first {
			w.sql(" WHERE ")
			first = false
		} else {
			w.sql(" AND ")
		}
		w.sql(col, "::TEXT ILIKE ")
		w.param(col)
		w.bind(col, "%"+value+"%")
	}
	return w.statement(), nil
}

// BuildInsert returns an INSERT of payload with the key columns removed.
func BuildInsert(table model.TableSpec, payload model.MutationPayload) (Statement, error) {
	if err := checkTable(table); err != nil {
		return Statement{}, err
	}

	data := stripKeys(table, payload)
	if len(data) == 0 {
		return Statement{}, ErrNoData
	}

	cols := sortedColumns(data)
	for _, col := range cols {
		if err := checkColumn(table, col); err != nil {
			return Statement{}, err
		}
	}

	w := newWriter()
	w.sql("INSERT INTO ", table.Name, " (", strings.Join(cols, ", "), ") VALUES (")
	for i, col := range cols {
		if i > 0 {
			w.sql(", ")
		}
		w.param(col)
		w.bind(col, data[col])
	}
	w.sql(")")
	return w.statement(), nil
}

// BuildUpdate returns an UPDATE of the row identified by key. Key columns
// are never updated; their values only feed the WHERE clause.
func BuildUpdate(table model.TableSpec, payload model.MutationPayload, key model.CompositeKey) (Statement, error) {
	if err := checkTable(table); err != nil {
		return Statement{}, err
	}
	keyCols, err := KeyColumns(table, key)
	if err != nil {
		return Statement{}, err
	}

	data := stripKeys(table, payload)
	if len(data) == 0 {
		return Statement{}, ErrNoData
	}

	cols := sortedColumns(data)
	for _, col := range cols {
		if err := checkColumn(table, col); err != nil {
			return Statement{}, err
		}
	}

	w := newWriter()
	w.sql("UPDATE ", table.Name, " SET ")
	for i, col := range cols {
		if i > 0 {
			w.sql(", ")
		}
		w.sql(col, " = ")
		w.param(col)
		w.bind(col, data[col])
	}
	w.sql(" WHERE ")
	whereKey(w, table, keyCols)
	return w.statement(), nil
}

// BuildDelete returns a DELETE of the row identified by key.
func BuildDelete(table model.TableSpec, key model.CompositeKey) (Statement, error) {
	if err := checkTable(table); err != nil {
		return Statement{}, err
	}
	keyCols, err := KeyColumns(table, key)
	if err != nil {
		return Statement{}, err
	}

	w := newWriter()
	w.sql("DELETE FROM ", table.Name, " WHERE ")
	whereKey(w, table, keyCols)
	return w.statement(), nil
}

// whereKey writes one equality per key column, binding key values last so
// they win over any payload entry of the same name.
func whereKey(w *writer, table model.TableSpec, key map[string]string) {
	for i, col := range table.PrimaryKey {
		if i > 0 {
			w.sql(" AND ")
		}
		w.sql(col, " = ")
		w.param(col)
		w.bind(col, key[col])
	}
}

func checkKey(table model.TableSpec, key model.CompositeKey) error {
	if len(key) != len(table.PrimaryKey) {
		return fmt.Errorf("%w: %s expects %d key values, got %d",
			ErrMalformedKey, table.Name, len(table.PrimaryKey), len(key))
	}
	return nil
}
