package model

type ConstraintInfo struct {
	ConstraintName string   `json:"constraint_name"`
	ConstraintType string   `json:"constraint_type"` // "PRIMARY KEY", "FOREIGN KEY", "UNIQUE", "CHECK"
	TableName      string   `json:"table_name"`
	Columns        []string `json:"columns"`
}
