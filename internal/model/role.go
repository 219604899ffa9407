package model

import "strings"

// Role is attached to a session at login and drives every authorization
// decision.
type Role string

const (
	RoleAdmin           Role = "admin"
	RoleAuditor         Role = "auditor"
	RoleUser            Role = "usuario"
	RoleUnauthenticated Role = ""
)

// Roles lists the roles that can be held by an account.
var Roles = []Role{RoleAdmin, RoleAuditor, RoleUser}

func (r Role) String() string {
	if r == RoleUnauthenticated {
		return "anonymous"
	}
	return string(r)
}

// RoleForNewAccount assigns the role of a freshly registered account from its
// display name.
func RoleForNewAccount(name string) Role {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "admin":
		return RoleAdmin
	case "auditor":
		return RoleAuditor
	default:
		return RoleUser
	}
}

// Operation represents a table operation checked by the access policy.
type Operation string

const (
	OperationView   Operation = "view"
	OperationFilter Operation = "filter"
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

var Operations = []Operation{OperationView, OperationFilter, OperationCreate, OperationUpdate, OperationDelete}

// IsMutation reports whether the operation writes to the table.
func (o Operation) IsMutation() bool {
	return o == OperationCreate || o == OperationUpdate || o == OperationDelete
}
