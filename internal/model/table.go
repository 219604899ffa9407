package model

import (
	"slices"
	"strings"
)

// DefaultPrimaryKey is used for tables that declare no key columns.
var DefaultPrimaryKey = []string{"id"}

// TableSpec is the static configuration record of one table or view.
type TableSpec struct {
	Name       string   `json:"name" yaml:"name"`
	PrimaryKey []string `json:"primary_key" yaml:"primary_key"`
	UserOwned  bool     `json:"user_owned" yaml:"user_owned"`
	View       bool     `json:"view" yaml:"view"`
	// Columns optionally restricts the column names accepted in filters and
	// payloads. Empty means any plain identifier.
	Columns []string `json:"columns,omitempty" yaml:"columns,omitempty"`
}

// IsPrimaryKey reports whether column is one of the table's key columns.
// PostgreSQL folds unquoted identifiers to lower case, so the match ignores case.
func (t TableSpec) IsPrimaryKey(column string) bool {
	return containsFold(t.PrimaryKey, column)
}

// HasColumnList reports whether the table carries an explicit column allow-list.
func (t TableSpec) HasColumnList() bool {
	return len(t.Columns) > 0
}

// KnowsColumn reports whether column appears in the allow-list or the key.
func (t TableSpec) KnowsColumn(column string) bool {
	return containsFold(t.Columns, column) || t.IsPrimaryKey(column)
}

func containsFold(names []string, name string) bool {
	return slices.ContainsFunc(names, func(n string) bool {
		return strings.EqualFold(n, name)
	})
}
