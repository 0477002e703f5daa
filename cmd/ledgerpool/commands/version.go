package commands

import (
	"fmt"

	"github.com/mosaicnetworks/ledgerpool/src/version"
	"github.com/spf13/cobra"
)

// NewVersionCmd produces a VersionCmd which shows version information
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Version)
		},
	}
}
