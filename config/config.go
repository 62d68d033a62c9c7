package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"

	"vaultbank/vault"
)

// Config carries the construction parameters for a vault instance. Amounts
// are decimal strings: the deposit cap in canonical units, the withdrawal
// ceiling in native units.
type Config struct {
	DataDir               string `toml:"DataDir"`
	Admin                 string `toml:"Admin"`
	Custody               string `toml:"Custody"`
	DepositCap            string `toml:"DepositCap"`
	NativeWithdrawCeiling string `toml:"NativeWithdrawCeiling"`
	NativeOracle          string `toml:"NativeOracle"`
	Router                string `toml:"Router"`
	ReferenceAsset        string `toml:"ReferenceAsset"`
}

// Load loads the configuration from the given path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "vaultdata"
	}
	return cfg, nil
}

// Validate verifies the addresses and limits without constructing a vault.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"Admin", c.Admin},
		{"Custody", c.Custody},
		{"Router", c.Router},
		{"ReferenceAsset", c.ReferenceAsset},
	}
	for _, field := range required {
		if _, err := parseAddress(field.value); err != nil {
			return fmt.Errorf("config: %s: %w", field.name, err)
		}
	}
	if strings.TrimSpace(c.NativeOracle) != "" {
		if _, err := parseAddress(c.NativeOracle); err != nil {
			return fmt.Errorf("config: NativeOracle: %w", err)
		}
	}
	if _, err := c.Params(); err != nil {
		return err
	}
	return nil
}

// Params converts the textual limits into engine parameters.
func (c *Config) Params() (vault.Params, error) {
	depositCap, err := vault.ParseAmount(c.DepositCap)
	if err != nil {
		return vault.Params{}, fmt.Errorf("config: DepositCap: %w", err)
	}
	ceiling, err := vault.ParseAmount(c.NativeWithdrawCeiling)
	if err != nil {
		return vault.Params{}, fmt.Errorf("config: NativeWithdrawCeiling: %w", err)
	}
	params := vault.Params{Cap: depositCap, NativeWithdrawCeiling: ceiling}
	if err := params.Validate(); err != nil {
		return vault.Params{}, err
	}
	return params, nil
}

// AdminAddress returns the parsed administrator address.
func (c *Config) AdminAddress() (common.Address, error) { return parseAddress(c.Admin) }

// CustodyAddress returns the parsed custody address.
func (c *Config) CustodyAddress() (common.Address, error) { return parseAddress(c.Custody) }

// RouterAddress returns the parsed router address.
func (c *Config) RouterAddress() (common.Address, error) { return parseAddress(c.Router) }

// ReferenceAssetAddress returns the parsed reference asset address.
func (c *Config) ReferenceAssetAddress() (common.Address, error) {
	return parseAddress(c.ReferenceAsset)
}

// NativeOracleAddress returns the parsed native oracle reference. An empty
// value resolves to the zero address, leaving the native currency without a
// legacy pricing path.
func (c *Config) NativeOracleAddress() (common.Address, error) {
	if strings.TrimSpace(c.NativeOracle) == "" {
		return common.Address{}, nil
	}
	return parseAddress(c.NativeOracle)
}

func parseAddress(raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(trimmed), nil
}
