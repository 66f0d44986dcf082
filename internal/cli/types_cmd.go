package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

type typeView struct {
	Name     string   `json:"name"`
	Base     string   `json:"base"`
	Columns  []string `json:"columns"`
	Identity string   `json:"identity,omitempty"`
}

func newTypesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the record types of the configured bases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, b := range a.cfg.Bases {
				base, err := a.cfg.Base(b.Name)
				if err != nil {
					return err
				}
				a.registry.BaseType(base)
			}

			types := a.registry.Types()
			views := make([]typeView, len(types))
			for i, rt := range types {
				views[i] = typeView{Name: rt.String(), Columns: rt.ColumnNames()}
				if rt.Base() != nil {
					views[i].Base = rt.Base().Name()
				}
				views[i].Identity, _ = rt.IdentityColumn()
			}

			w := cmd.OutOrStdout()
			if getOutputFormat(cmd) == "json" {
				return printJSON(w, views)
			}
			rows := make([][]string, len(views))
			for i, v := range views {
				rows[i] = []string{v.Name, v.Base, strings.Join(v.Columns, ","), v.Identity}
			}
			printTable(w, []string{"type", "base", "columns", "identity"}, rows)
			return nil
		},
	}
}
