package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/authtree"
	"github.com/aretw0/authtree/pkg/adapters/realm"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <dir> [tree...]",
	Short: "Check tree definitions against the node types",
	Long: `Loads every tree of the realm directory (or only the named ones) and reports
undeclared targets, unknown node types, bad configuration, unwired outcomes and
nodes that cannot be reached from the entry.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := realm.LoadIdentities(args[0])
		if err != nil {
			return err
		}
		eng, err := authtree.New(realm.New(args[0]), authtree.WithCredentials(ids), authtree.WithSecrets(ids))
		if err != nil {
			return err
		}

		names := args[1:]
		if len(names) == 0 {
			if names, err = eng.Trees(cmd.Context()); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		failed := 0
		for _, name := range names {
			if err := eng.Validate(cmd.Context(), name); err != nil {
				failed++
				fmt.Fprintf(out, "✗ %s: %v\n", name, err)
				continue
			}
			tree, err := eng.Inspect(cmd.Context(), name)
			if err != nil {
				failed++
				fmt.Fprintf(out, "✗ %s: %v\n", name, err)
				continue
			}
			fmt.Fprintf(out, "✓ %s\n", name)
			for _, id := range tree.Unreachable() {
				fmt.Fprintf(out, "  warning: node '%s' is unreachable\n", id)
			}
		}
		if failed > 0 {
			return errors.New("validation failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
