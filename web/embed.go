// Package web embeds the HTML templates rendered by the handlers.
package web

import (
	"embed"
	"fmt"
	"html/template"

	"tablero/helper"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"cell": helper.FormatValue,
	"at":   at,
}

// Templates parses every embedded page. Each file is registered under its
// base name, e.g. "ver_tabla.html".
func Templates() (*template.Template, error) {
	t, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return t, nil
}

// at returns the string at index i of s, or "" when out of range.
func at(s []string, i int) string {
	if i < 0 || i >= len(s) {
		return ""
	}
	return s[i]
}
