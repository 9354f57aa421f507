package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/classbook/internal/auth"
)

func newHashPasswordCmd() *cobra.Command {
	var password string

	c := &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for OPERATOR_PASSWORD_BCRYPT (reads stdin when --password is omitted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "export OPERATOR_PASSWORD_BCRYPT='%s'\n", hash)
			return nil
		},
	}

	c.Flags().StringVar(&password, "password", "", "password to hash")
	return c
}
