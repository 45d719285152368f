package main

import (
	"fmt"

	"github.com/aretw0/authtree/internal/presentation/graph"
	"github.com/aretw0/authtree/pkg/adapters/realm"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <tree>",
	Short: "Export a tree as a Mermaid diagram",
	Long:  `Loads a tree from the realm directory and prints a Mermaid flowchart (graph TD) of its nodes and outcomes.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		tree, err := realm.New(cfg.TreesDir).LoadTree(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(tree, nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
