package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/creachadair/atomicfile"
	"github.com/spf13/cobra"
	"github.com/tendermint/tendermint/crypto"
	"github.com/tendermint/tendermint/crypto/ed25519"
	tmos "github.com/tendermint/tendermint/libs/os"

	"github.com/ali-3-3-3/EcoXChange/app"
	cfg "github.com/ali-3-3-3/EcoXChange/config"
)

// InitFilesCmd initializes a fresh EcoXChange home: config file, admin key
// and genesis app state.
var InitFilesCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the config, admin key and genesis app state",
	RunE:  initFiles,
}

func initFiles(cmd *cobra.Command, args []string) error {
	return initFilesWithConfig(config)
}

// AdminKey is the on-disk form of the genesis admin key.
type AdminKey struct {
	Address crypto.Address  `json:"address"`
	PubKey  []byte          `json:"pub_key"`
	PrivKey ed25519.PrivKey `json:"priv_key"`
}

// LoadAdminKey reads the admin key written by init.
func LoadAdminKey(path string) (AdminKey, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return AdminKey{}, err
	}
	var key AdminKey
	if err := json.Unmarshal(bz, &key); err != nil {
		return AdminKey{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(key.PrivKey) != ed25519.PrivateKeySize {
		return AdminKey{}, fmt.Errorf("%s: malformed private key", path)
	}
	return key, nil
}

func initFilesWithConfig(config *cfg.Config) error {
	keyFile := config.AdminKeyFile()
	var key AdminKey
	if tmos.FileExists(keyFile) {
		var err error
		if key, err = LoadAdminKey(keyFile); err != nil {
			return err
		}
		logger.Info("Found admin key", "path", keyFile)
	} else {
		priv := ed25519.GenPrivKey()
		key = AdminKey{
			Address: priv.PubKey().Address(),
			PubKey:  priv.PubKey().Bytes(),
			PrivKey: priv,
		}
		if err := writeJSONFile(keyFile, key, 0600); err != nil {
			return err
		}
		logger.Info("Generated admin key", "path", keyFile, "address", key.Address)
	}

	genFile := config.GenesisFile()
	if tmos.FileExists(genFile) {
		logger.Info("Found genesis app state", "path", genFile)
		return nil
	}
	if err := writeJSONFile(genFile, app.DefaultGenesisState(key.Address), 0644); err != nil {
		return err
	}
	logger.Info("Generated genesis app state", "path", genFile)
	return nil
}

func writeJSONFile(path string, v interface{}, mode os.FileMode) error {
	bz, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if _, err := atomicfile.WriteAll(path, bytes.NewReader(bz), mode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
