package node

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/kongsikongsideveloper/WaykiChain/node/store"
)

// Config holds the options shared by every ledgerd command. Field tags are
// read by go-flags.
type Config struct {
	Network       string `long:"network" description:"network name (mainnet/testnet/regtest)" json:"network"`
	DataDir       string `long:"datadir" description:"ledger data directory" json:"data_dir"`
	DBBackend     string `long:"db-backend" description:"storage backend (bolt/leveldb)" json:"db_backend"`
	LogLevel      string `long:"log-level" description:"debug/info/warn/error" json:"log_level"`
	LogDir        string `long:"log-dir" description:"also write rotated logs here" json:"log_dir"`
	MetricsListen string `long:"metrics-listen" description:"serve prometheus metrics on host:port" json:"metrics_listen"`
	Workers       int    `long:"workers" description:"parallel validators per block" json:"workers"`
}

var allowedLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

var allowedNetworks = map[string]struct{}{
	"mainnet": {},
	"testnet": {},
	"regtest": {},
}

func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".waykichain"
	}
	return filepath.Join(home, ".waykichain")
}

func DefaultConfig() Config {
	return Config{
		Network:   "regtest",
		DataDir:   DefaultDataDir(),
		DBBackend: store.BackendBolt,
		LogLevel:  "info",
		Workers:   4,
	}
}

func ValidateConfig(cfg Config) error {
	if _, ok := allowedNetworks[strings.TrimSpace(cfg.Network)]; !ok {
		return fmt.Errorf("invalid network %q", cfg.Network)
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return errors.New("data_dir is required")
	}
	switch cfg.DBBackend {
	case store.BackendBolt, store.BackendLevelDB:
	default:
		return fmt.Errorf("invalid db_backend %q", cfg.DBBackend)
	}
	logLevel := strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if _, ok := allowedLogLevels[logLevel]; !ok {
		return fmt.Errorf("invalid log_level %q", cfg.LogLevel)
	}
	if cfg.MetricsListen != "" {
		if err := validateAddr(cfg.MetricsListen); err != nil {
			return fmt.Errorf("invalid metrics_listen: %w", err)
		}
	}
	if cfg.Workers <= 0 {
		return errors.New("workers must be > 0")
	}
	if cfg.Workers > 256 {
		return errors.New("workers must be <= 256")
	}
	return nil
}

func validateAddr(addr string) error {
	if strings.TrimSpace(addr) == "" {
		return errors.New("empty address")
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if strings.TrimSpace(port) == "" {
		return errors.New("missing port")
	}
	if strings.Contains(host, " ") {
		return errors.New("invalid host")
	}
	return nil
}
