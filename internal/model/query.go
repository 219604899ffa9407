package model

// FilterSpec maps a column name to the substring it must contain.
type FilterSpec map[string]string

// MutationPayload maps a column name to its new value.
type MutationPayload map[string]string

// CompositeKey holds primary key values in declared column order.
type CompositeKey []string
