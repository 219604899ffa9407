package model

type TableData struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}
