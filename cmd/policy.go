package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tablero/internal/catalog"
	"tablero/internal/model"
	"tablero/internal/policy"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Print the access decision matrix",
	Long: `Print, for every catalog entry and role, which operations the access policy
allows. "ro" marks a read-only grant and "-" a denial.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog(cfg.CatalogFile)
		if err != nil {
			return err
		}
		return printPolicy(cmd.OutOrStdout(), cat)
	},
}

func printPolicy(out io.Writer, cat *catalog.Catalog) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	header := []string{"TABLE", "ROLE"}
	for _, op := range model.Operations {
		header = append(header, strings.ToUpper(string(op)))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	roles := append(slices.Clone(model.Roles), model.RoleUnauthenticated)
	for _, spec := range cat.All() {
		for _, role := range roles {
			row := []string{spec.Name, role.String()}
			for _, op := range model.Operations {
				row = append(row, cell(policy.Check(role, spec, op), op))
			}
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
	}
	return tw.Flush()
}

func cell(d policy.Decision, op model.Operation) string {
	switch {
	case !d.Allowed:
		return "-"
	case d.ReadOnly && !op.IsMutation():
		return "ro"
	default:
		return "yes"
	}
}
