package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/authtree/pkg/nodes"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var hashCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Print the bcrypt hash of a password for identities.yaml",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var password string
		if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
			fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			password = string(b)
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return err
			}
			password = strings.TrimRight(line, "\r\n")
		}
		if password == "" {
			return errors.New("empty password")
		}

		hash, err := nodes.HashPassword(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashCmd)
}
