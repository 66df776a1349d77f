package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the bulkop root command with every bulk action attached.
func NewRootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:   "bulkop",
		Short: "Apply bulk actions to consigned items",
		Long: `Applies one action to many items, one item at a time, with bounded retries,
a per attempt timeout and a live progress view. Ctrl-C stops after the current item.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default $BULKOP_CONFIG or ./bulkop.yaml)")

	root.AddCommand(
		newStatusCmd(&cfgPath),
		newSendBackCmd(&cfgPath),
		newDiscountCmd(&cfgPath),
		newImportCmd(&cfgPath),
		newShowCmd(&cfgPath),
	)
	return root
}
