package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hbcalsoft/nsx-v2t/internal/wizard"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize an nsx-v2t config",
	Long:  `Initialize an nsx-v2t config in the current directory`,
	Run:   runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) {
	if err := wizard.Run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
