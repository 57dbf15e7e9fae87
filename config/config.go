package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	dbm "github.com/tendermint/tm-db"

	"github.com/ali-3-3-3/EcoXChange/libs/log"
)

const (
	// TransportSocket and TransportGRPC are the ABCI transports the server
	// can listen on.
	TransportSocket = "socket"
	TransportGRPC   = "grpc"
)

// NOTE: Most of the structs & relevant comments + the
// default configuration options were used to manually
// generate the config.toml. Please reflect any changes
// made here in the defaultConfigTemplate constant in
// config/toml.go
var (
	DefaultHomeDir   = ".ecoxchange"
	defaultConfigDir = "config"
	defaultDataDir   = "data"

	defaultConfigFileName   = "config.toml"
	defaultGenesisFileName  = "app_state.json"
	defaultAdminKeyFileName = "admin_key.json"

	defaultConfigFilePath = filepath.Join(defaultConfigDir, defaultConfigFileName)
	defaultGenesisPath    = filepath.Join(defaultConfigDir, defaultGenesisFileName)
	defaultAdminKeyPath   = filepath.Join(defaultConfigDir, defaultAdminKeyFileName)
)

// Config defines the top level configuration of an EcoXChange application
// server.
type Config struct {
	// Top level options use an anonymous struct
	BaseConfig `mapstructure:",squash"`

	// Options for services
	ABCI            *ABCIConfig            `mapstructure:"abci"`
	Instrumentation *InstrumentationConfig `mapstructure:"instrumentation"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseConfig:      DefaultBaseConfig(),
		ABCI:            DefaultABCIConfig(),
		Instrumentation: DefaultInstrumentationConfig(),
	}
}

// TestConfig returns a configuration that can be used for testing.
func TestConfig() *Config {
	return &Config{
		BaseConfig:      TestBaseConfig(),
		ABCI:            TestABCIConfig(),
		Instrumentation: TestInstrumentationConfig(),
	}
}

// SetRoot sets the RootDir for all Config structs
func (cfg *Config) SetRoot(root string) *Config {
	cfg.BaseConfig.RootDir = root
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *Config) ValidateBasic() error {
	if err := cfg.BaseConfig.ValidateBasic(); err != nil {
		return err
	}
	if err := cfg.ABCI.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [abci] section: %w", err)
	}
	if err := cfg.Instrumentation.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [instrumentation] section: %w", err)
	}
	return nil
}

//-----------------------------------------------------------------------------
// BaseConfig

// BaseConfig defines the base configuration of the application server.
type BaseConfig struct {
	// The root directory for all data.
	// This should be set in viper so it can unmarshal into this struct
	RootDir string `mapstructure:"home"`

	// A custom human readable name for this server
	Moniker string `mapstructure:"moniker"`

	// Database backend: goleveldb | memdb
	DBBackend string `mapstructure:"db_backend"`

	// Database directory
	DBPath string `mapstructure:"db_dir"`

	// Output level for logging
	LogLevel string `mapstructure:"log_level"`

	// Output format: 'plain' (text) or 'json'
	LogFormat string `mapstructure:"log_format"`

	// Path to the JSON file holding the genesis app state, to be copied
	// into the app_state field of the Tendermint genesis document
	Genesis string `mapstructure:"genesis_file"`

	// Path to the JSON file holding the key of the genesis admin
	AdminKey string `mapstructure:"admin_key_file"`
}

// DefaultBaseConfig returns a default base configuration.
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		Moniker:   "ecoxchange",
		DBBackend: string(dbm.GoLevelDBBackend),
		DBPath:    "data",
		LogLevel:  log.LogLevelInfo,
		LogFormat: log.LogFormatPlain,
		Genesis:   defaultGenesisPath,
		AdminKey:  defaultAdminKeyPath,
	}
}

// TestBaseConfig returns a base configuration for testing.
func TestBaseConfig() BaseConfig {
	cfg := DefaultBaseConfig()
	cfg.Moniker = "ecoxchange-test"
	cfg.DBBackend = string(dbm.MemDBBackend)
	cfg.LogLevel = log.LogLevelDebug
	return cfg
}

// GenesisFile returns the full path to the genesis app state file.
func (cfg BaseConfig) GenesisFile() string {
	return rootify(cfg.Genesis, cfg.RootDir)
}

// AdminKeyFile returns the full path to the admin key file.
func (cfg BaseConfig) AdminKeyFile() string {
	return rootify(cfg.AdminKey, cfg.RootDir)
}

// DBDir returns the full path to the database directory.
func (cfg BaseConfig) DBDir() string {
	return rootify(cfg.DBPath, cfg.RootDir)
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg BaseConfig) ValidateBasic() error {
	switch cfg.LogFormat {
	case log.LogFormatPlain, log.LogFormatText, log.LogFormatJSON:
	default:
		return errors.New("unknown log_format (must be 'plain', 'text' or 'json')")
	}
	switch strings.ToLower(cfg.LogLevel) {
	case log.LogLevelDebug, log.LogLevelInfo, log.LogLevelWarn, log.LogLevelError:
	default:
		return fmt.Errorf("unknown log_level %q", cfg.LogLevel)
	}
	switch dbm.BackendType(cfg.DBBackend) {
	case dbm.GoLevelDBBackend, dbm.MemDBBackend:
	default:
		return fmt.Errorf("unsupported db_backend %q (must be 'goleveldb' or 'memdb')", cfg.DBBackend)
	}
	return nil
}

//-----------------------------------------------------------------------------
// ABCIConfig

// ABCIConfig defines where the application listens for the consensus
// engine.
type ABCIConfig struct {
	// TCP or UNIX socket address the application server listens on
	ListenAddress string `mapstructure:"laddr"`

	// Transport protocol: socket | grpc
	Transport string `mapstructure:"transport"`
}

// DefaultABCIConfig returns a default configuration for the ABCI server.
func DefaultABCIConfig() *ABCIConfig {
	return &ABCIConfig{
		ListenAddress: "tcp://127.0.0.1:26658",
		Transport:     TransportSocket,
	}
}

// TestABCIConfig returns a configuration for testing the ABCI server.
func TestABCIConfig() *ABCIConfig {
	cfg := DefaultABCIConfig()
	cfg.ListenAddress = "tcp://127.0.0.1:36658"
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *ABCIConfig) ValidateBasic() error {
	if cfg.ListenAddress == "" {
		return errors.New("laddr can't be empty")
	}
	switch cfg.Transport {
	case TransportSocket, TransportGRPC:
		return nil
	}
	return fmt.Errorf("unknown transport %q (must be 'socket' or 'grpc')", cfg.Transport)
}

//-----------------------------------------------------------------------------
// InstrumentationConfig

// InstrumentationConfig defines the configuration for metrics reporting.
type InstrumentationConfig struct {
	// When true, Prometheus metrics are served under /metrics on
	// PrometheusListenAddr.
	// Check out the documentation for the list of available metrics.
	Prometheus bool `mapstructure:"prometheus"`

	// Address to listen for Prometheus collector(s) connections.
	PrometheusListenAddr string `mapstructure:"prometheus_listen_addr"`

	// Maximum number of simultaneous connections.
	// If you want to accept a larger number than the default, make sure
	// you increase your OS limits.
	// 0 - unlimited.
	MaxOpenConnections int `mapstructure:"max_open_connections"`

	// Instrumentation namespace.
	Namespace string `mapstructure:"namespace"`
}

// DefaultInstrumentationConfig returns a default configuration for metrics
// reporting.
func DefaultInstrumentationConfig() *InstrumentationConfig {
	return &InstrumentationConfig{
		Prometheus:           false,
		PrometheusListenAddr: ":26670",
		MaxOpenConnections:   3,
		Namespace:            "ecoxchange",
	}
}

// TestInstrumentationConfig returns a default configuration for metrics
// reporting.
func TestInstrumentationConfig() *InstrumentationConfig {
	return DefaultInstrumentationConfig()
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *InstrumentationConfig) ValidateBasic() error {
	if cfg.MaxOpenConnections < 0 {
		return errors.New("max_open_connections can't be negative")
	}
	if cfg.Prometheus && cfg.PrometheusListenAddr == "" {
		return errors.New("prometheus_listen_addr can't be empty when prometheus is on")
	}
	return nil
}

//-----------------------------------------------------------------------------
// Utils

// helper function to make config creation independent of root dir
func rootify(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
