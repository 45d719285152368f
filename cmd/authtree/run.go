package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/aretw0/authtree"
	"github.com/aretw0/authtree/internal/cli"
	"github.com/aretw0/authtree/internal/presentation/tui"
	"github.com/aretw0/authtree/pkg/domain"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <tree>",
	Short: "Authenticate interactively against a tree",
	Long:  `Drives a tree of the realm directory on the terminal, prompting for each callback until it terminates.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("log-level") && !cmd.Flags().Changed("config") {
			cfg.LogLevel = "warn"
		}
		logger, err := newLogger(cmd, cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := cli.NewRuntime(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		if term.IsTerminal(int(os.Stdout.Fd())) {
			tui.PrintBanner(cmd.OutOrStdout(), authtree.Version)
		}

		var target *int
		if cmd.Flags().Changed("target-level") {
			level, _ := cmd.Flags().GetInt("target-level")
			target = &level
		}

		resp, err := cli.Drive(ctx, rt.Engine, args[0], target, cli.NewTerminalPrompter())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if resp.Status != domain.ResultTrue {
			return errors.New("authentication failed")
		}
		fmt.Fprintf(out, ">>> Authenticated as %q (auth level %d)\n", resp.Identity, resp.AuthLevel)
		keys := make([]string, 0, len(resp.SessionProperties))
		for k := range resp.SessionProperties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "    %s = %s\n", k, resp.SessionProperties[k])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Int("target-level", 0, "Auth level the choice collectors should aim for")
}
