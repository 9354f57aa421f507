package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

type rootOptions struct {
	configPath string
	console    bool
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "classbook",
		Short:         "Daily class booking bot: finds preferred fitness classes and books the first one available",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML file overriding schedule and booking preferences (default $CLASSBOOK_CONFIG)")
	root.PersistentFlags().BoolVar(&opts.console, "console", false, "human readable logs instead of JSON")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newKeysCmd())
	root.AddCommand(newHashPasswordCmd())
	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newRunOnceCmd(opts))
	root.AddCommand(newHistoryCmd(opts))
	root.AddCommand(newPingCmd(opts))

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
