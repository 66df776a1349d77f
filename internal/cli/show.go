package cli

import (
	"fmt"

	"github.com/chararch/bulkop"
	"github.com/chararch/bulkop/util"
	"github.com/spf13/cobra"
)

func newShowCmd(cfgPath *string) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <run-id|action>",
		Short: "Show a run, or the last run of an action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *cfgPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()
			snap, err := bulkop.Status(ctx, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				str, err := util.JsonIndent(snap)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), str)
				return nil
			}
			renderSnapshot(cmd.OutOrStdout(), snap)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run as json")
	return cmd
}
