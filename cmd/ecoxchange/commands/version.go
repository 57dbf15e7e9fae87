package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ali-3-3-3/EcoXChange/version"
)

var verbose bool

// VersionCmd ...
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version info",
	Run: func(cmd *cobra.Command, args []string) {
		if !verbose {
			fmt.Println(version.Version)
			return
		}
		values, _ := json.MarshalIndent(version.Current(), "", "  ")
		fmt.Println(string(values))
	},
}

func init() {
	VersionCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show the app protocol version")
}
