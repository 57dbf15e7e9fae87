package main

import (
	"os"
	"path/filepath"

	"github.com/tendermint/tendermint/libs/cli"

	cmd "github.com/ali-3-3-3/EcoXChange/cmd/ecoxchange/commands"
	cfg "github.com/ali-3-3-3/EcoXChange/config"
)

func main() {
	rootCmd := cmd.RootCmd
	rootCmd.AddCommand(
		cmd.InitFilesCmd,
		cmd.StartCmd,
		cmd.VersionCmd,
	)

	executor := cli.PrepareBaseCmd(rootCmd, "ECOX", os.ExpandEnv(filepath.Join("$HOME", cfg.DefaultHomeDir)))
	if err := executor.Execute(); err != nil {
		panic(err)
	}
}
