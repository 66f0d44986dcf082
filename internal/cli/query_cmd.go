package cli

import (
	"github.com/spf13/cobra"

	"github.com/go-mizu/lightrecord"
)

func newQueryCmd(a *app) *cobra.Command {
	var params []string

	cmd := &cobra.Command{
		Use:   "query SQL",
		Short: "Run a query and print every row",
		Long:  "Fetch the whole result eagerly, then print it as a table or a JSON array.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := a.base(cmd)
			if err != nil {
				return err
			}
			lr, err := a.open()
			if err != nil {
				return err
			}
			defer a.close()

			recs, err := lr.Query(cmd.Context(), base, args[0], queryArgs(params)...)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if getOutputFormat(cmd) == "json" {
				return printJSON(w, recs)
			}
			if len(recs) == 0 {
				return nil
			}
			rows := make([][]string, len(recs))
			for i, r := range recs {
				rows[i] = formatRow(r)
			}
			printTable(w, recs[0].ColumnNames(), rows)
			return nil
		},
	}

	cmd.Flags().String("base", "", "Base structure declared in the config file")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Positional query parameter (repeatable)")
	return cmd
}

func getOutputFormat(cmd *cobra.Command) string {
	v, _ := cmd.Root().PersistentFlags().GetString("output")
	return v
}

func queryArgs(params []string) []any {
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = p
	}
	return args
}

func formatRow(r *lightrecord.Record) []string {
	vals := r.Values()
	row := make([]string, len(vals))
	for i, v := range vals {
		row[i] = formatValue(v)
	}
	return row
}
