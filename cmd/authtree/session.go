package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/authtree/internal/cli"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage suspended sessions in the vault",
	Long:  `List, inspect, and remove the suspended evaluations held by the configured session vault.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all suspended sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := openBackend(cmd)
		if err != nil {
			return err
		}
		defer backend.Close()

		handles, err := backend.Store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing sessions: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(handles) == 0 {
			fmt.Fprintln(out, "No suspended sessions found.")
			return nil
		}
		fmt.Fprintln(out, "Suspended Sessions:")
		for _, h := range handles {
			fmt.Fprintln(out, "- "+h)
		}
		return nil
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <handle>",
	Short: "Inspect the state of a session, with credentials masked",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := openBackend(cmd)
		if err != nil {
			return err
		}
		defer backend.Close()

		state, err := backend.Inspector().Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error loading session '%s': %w", args[0], err)
		}

		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <handle>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := openBackend(cmd)
		if err != nil {
			return err
		}
		defer backend.Close()

		out := cmd.OutOrStdout()
		var errs []error
		for _, handle := range args {
			if err := backend.Store.Delete(cmd.Context(), handle); err != nil {
				errs = append(errs, fmt.Errorf("error removing '%s': %w", handle, err))
				continue
			}
			fmt.Fprintf(out, "Removed session '%s'\n", handle)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
}

func openBackend(cmd *cobra.Command) (*cli.Backend, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}
	return cli.OpenBackend(cmd.Context(), cfg, logger)
}
