package main

import (
	"os"

	cmd "github.com/mosaicnetworks/ledgerpool/cmd/ledgerpool/commands"
)

func main() {
	rootCmd := cmd.RootCmd

	rootCmd.AddCommand(
		cmd.NewConfigCmd(),
		cmd.NewOpenCmd(),
		cmd.NewNodeCmd(),
		cmd.NewKeygenCmd(),
		cmd.NewVersionCmd(),
	)

	//Do not print usage when error occurs
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
