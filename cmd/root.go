package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nsx-v2t",
	Short: "nsx-v2t validates VMware Cloud Director org VDCs before NSX-V to NSX-T migration.",
	Long: `nsx-v2t runs the preflight validation for migrating a VMware Cloud Director
org VDC from an NSX-V backed provider VDC to an NSX-T backed one. It checks
every known blocker up front, records what it discovers in a local discovery
document, and undoes its own mutations when a check fails.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
