package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"tablero/internal/catalog"
	"tablero/internal/service"
)

var checkSchema string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the catalog against the database",
	Long: `Verify that every catalog entry exists in the database, that declared
column lists match, and that base tables carry the declared primary key.`,
	Example: `  # Check a custom catalog
  tablero check --catalog catalog.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog(cfg.CatalogFile)
		if err != nil {
			return err
		}

		db := service.NewPostgresClient(cfg.QueryTimeout)
		if err := db.Connect(cfg.DatabaseDriver, cfg.DatabaseURL); err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer func() { _ = db.Disconnect() }()

		problems, err := checkCatalog(cmd.Context(), db, cat, checkSchema)
		if err != nil {
			return err
		}
		return reportProblems(cmd.OutOrStdout(), len(cat.All()), problems)
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkSchema, "schema", "public", "database schema holding the catalog tables")
}

// checkCatalog returns one line per mismatch between cat and the live schema.
func checkCatalog(ctx context.Context, db service.DBClient, cat *catalog.Catalog, schema string) ([]string, error) {
	names, err := db.ListTables(ctx, schema)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}

	var problems []string
	for _, spec := range cat.All() {
		if !slices.Contains(names, spec.Name) {
			problems = append(problems, fmt.Sprintf("%s: not found in schema %s", spec.Name, schema))
			continue
		}

		if spec.HasColumnList() {
			cols, err := db.ListColumns(ctx, schema, spec.Name)
			if err != nil {
				return nil, fmt.Errorf("listing columns of %s: %w", spec.Name, err)
			}
			present := make([]string, len(cols))
			for i, c := range cols {
				present[i] = c.Name
			}
			for _, col := range spec.Columns {
				if !slices.Contains(present, col) {
					problems = append(problems, fmt.Sprintf("%s: column %s not found", spec.Name, col))
				}
			}
		}

		if spec.View {
			continue
		}

		constraints, err := db.ListConstraints(ctx, schema, spec.Name)
		if err != nil {
			return nil, fmt.Errorf("listing constraints of %s: %w", spec.Name, err)
		}
		var pk []string
		for _, c := range constraints {
			if c.ConstraintType == "PRIMARY KEY" {
				pk = c.Columns
				break
			}
		}
		switch {
		case pk == nil:
			problems = append(problems, fmt.Sprintf("%s: no primary key, catalog declares (%s)",
				spec.Name, strings.Join(spec.PrimaryKey, ", ")))
		case !slices.Equal(pk, spec.PrimaryKey):
			problems = append(problems, fmt.Sprintf("%s: primary key is (%s), catalog declares (%s)",
				spec.Name, strings.Join(pk, ", "), strings.Join(spec.PrimaryKey, ", ")))
		}
	}
	return problems, nil
}

func reportProblems(out io.Writer, checked int, problems []string) error {
	for _, p := range problems {
		fmt.Fprintln(out, p)
	}
	if len(problems) > 0 {
		return fmt.Errorf("%d of %d catalog entries do not match the database", len(problems), checked)
	}
	fmt.Fprintf(out, "All %d catalog entries match the database\n", checked)
	return nil
}
