package cmd

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"
)

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Generate a TELEGRAM_WEBHOOK_SECRET value",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := make([]byte, 32)
			if _, err := rand.Read(secret); err != nil {
				return err
			}
			// Telegram accepts only A-Z, a-z, 0-9, _ and - in secret tokens.
			fmt.Fprintf(cmd.OutOrStdout(), "export TELEGRAM_WEBHOOK_SECRET=%s\n", base64.RawURLEncoding.EncodeToString(secret))
			return nil
		},
	}
}
