package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/go-mizu/lightrecord"
)

func newStreamCmd(a *app) *cobra.Command {
	var (
		params []string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "stream SQL",
		Short: "Stream a query as JSON lines",
		Long: "Read the result one row at a time on a pooled connection and print each\n" +
			"record as a JSON object on its own line. Memory stays flat for any result size.",
		Args: cobra.ExactArgs(1),
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

			enc := json.NewEncoder(cmd.OutOrStdout())
			n := 0
			err = lr.Each(cmd.Context(), base, args[0], func(r *lightrecord.Record) error {
				if err := enc.Encode(r); err != nil {
					return err
				}
				n++
				if limit > 0 && n >= limit {
					return lightrecord.ErrStop
				}
				return nil
			}, queryArgs(params)...)
			if err != nil {
				return err
			}
			a.logger.Info("stream finished", "rows", n)
			return nil
		},
	}

	cmd.Flags().String("base", "", "Base structure declared in the config file")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Positional query parameter (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Stop after N rows (0 for all)")
	return cmd
}
