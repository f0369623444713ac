package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/hbcalsoft/nsx-v2t/internal/config"
	"github.com/hbcalsoft/nsx-v2t/internal/docstore"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [key]",
	Short: "Print the discovery document, or one entry of it",
	Long: `Inspect prints the discovery document written by a validation run. Without
arguments the whole document is printed; with a key argument only that entry.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	store := docstore.New(discoveryPath(cfg))
	doc, err := store.Read()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(doc) == 0 {
		fmt.Fprintf(os.Stderr, "Discovery document %s is empty; run 'nsx-v2t validate' first.\n", store.Path())
		os.Exit(1)
	}

	if len(args) == 1 {
		raw, ok := doc[args[0]]
		if !ok {
			keys := make([]string, 0, len(doc))
			for key := range doc {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "No entry %q; available keys: %v\n", args[0], keys)
			os.Exit(1)
		}
		printJSON(raw)
		return
	}
	printJSON(doc)
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}
