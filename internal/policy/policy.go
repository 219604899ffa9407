// Package policy decides which role may run which operation on which table.
//
// Decisions are pure: they depend only on the role, the catalog record of the
// target and the operation, and never touch the database.
package policy

import (
	"errors"
	"fmt"

	"tablero/internal/catalog"
	"tablero/internal/model"
)

var ErrUnauthorized = errors.New("unauthorized")

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed  bool
	ReadOnly bool
	Reason   string
	Table    model.TableSpec
}

// Err returns nil for allowed decisions and an error wrapping ErrUnauthorized
// with the user-visible reason otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnauthorized, d.Reason)
}

// class groups catalog entries that share the same access rules.
type class int

const (
	classView class = iota
	classBase
	classUserOwned
)

func classOf(spec model.TableSpec) class {
	switch {
	case spec.View:
		return classView
	case spec.UserOwned:
		return classUserOwned
	default:
		return classBase
	}
}

type grant struct {
	read     bool
	readOnly bool
	create   bool
	update   bool
	delete   bool
}

func (g grant) allows(op model.Operation) bool {
	switch op {
	case model.OperationView, model.OperationFilter:
		return g.read
	case model.OperationCreate:
		return g.create
	case model.OperationUpdate:
		return g.update
	case model.OperationDelete:
		return g.delete
	}
	return false
}

var (
	readWrite = grant{read: true, create: true, update: true, delete: true}
	readOnly  = grant{read: true, readOnly: true}
)

// grants is the whole rule set. A missing entry denies everything.
var grants = map[model.Role]map[class]grant{
	model.RoleAdmin: {
		classView:      readOnly,
		classBase:      readWrite,
		classUserOwned: readWrite,
	},
	model.RoleAuditor: {
		classView: readOnly,
	},
	model.RoleUser: {
		classUserOwned: {read: true, readOnly: true, create: true},
	},
}

const (
	ReasonUnknownTable   = "unknown table or view"
	ReasonLoginRequired  = "unauthorized role, please log in"
	ReasonAuditorViews   = "auditors may only browse views"
	ReasonViewRestricted = "you do not have permission to see this view"
	ReasonViewReadOnly   = "views are read-only"
	ReasonTableDenied    = "you do not have permission to see this table"
	ReasonCreateDenied   = "you do not have permission to create records in this table"
	ReasonUpdateDenied   = "you do not have permission to update records"
	ReasonDeleteDenied   = "you do not have permission to delete records"
)

func reason(role model.Role, c class, op model.Operation) string {
	switch {
	case role == model.RoleUnauthenticated:
		return ReasonLoginRequired
	case c == classView && op.IsMutation():
		return ReasonViewReadOnly
	case c == classView:
		return ReasonViewRestricted
	case role == model.RoleAuditor && !op.IsMutation():
		return ReasonAuditorViews
	}

	switch op {
	case model.OperationCreate:
		return ReasonCreateDenied
	case model.OperationUpdate:
		return ReasonUpdateDenied
	case model.OperationDelete:
		return ReasonDeleteDenied
	}
	if _, known := grants[role]; !known {
		return ReasonLoginRequired
	}
	return ReasonTableDenied
}

type Policy struct {
	catalog *catalog.Catalog
}

func New(c *catalog.Catalog) *Policy {
	return &Policy{catalog: c}
}

// Authorize decides whether role may run op on the table or view called name.
func (p *Policy) Authorize(role model.Role, name string, op model.Operation) Decision {
	spec, ok := p.catalog.Lookup(name)
	if !ok {
		return Decision{Reason: ReasonUnknownTable}
	}
	return Check(role, spec, op)
}

// Check applies the rule set to an already resolved catalog record.
func Check(role model.Role, spec model.TableSpec, op model.Operation) Decision {
	c := classOf(spec)
	g := grants[role][c]
	if !g.allows(op) {
		return Decision{Reason: reason(role, c, op), Table: spec}
	}
	return Decision{Allowed: true, ReadOnly: g.readOnly, Table: spec}
}

// Visible returns the entries of specs that role may view, in their order.
func Visible(role model.Role, specs []model.TableSpec) []model.TableSpec {
	var out []model.TableSpec
	for _, spec := range specs {
		if Check(role, spec, model.OperationView).Allowed {
			out = append(out, spec)
		}
	}
	return out
}
