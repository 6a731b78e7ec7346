package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

// TokenConfig describes the stablecoin the settlement engine moves. When
// Address is empty it is resolved from the network preset table.
type TokenConfig struct {
	Address   string `toml:"Address"`
	Symbol    string `toml:"Symbol"`
	Decimals  uint8  `toml:"Decimals"`
	Authority string `toml:"Authority"`
}

// EscrowConfig carries the constructor arguments of the settlement engine.
// PlatformFeePercent is a human percentage (e.g. 10.0 for 10%) and is
// converted to basis points exactly once, at load time.
type EscrowConfig struct {
	PlatformFeePercent float64 `toml:"PlatformFeePercent"`
	AdminAddress       string  `toml:"AdminAddress"`
}

type Config struct {
	ListenAddress string       `toml:"ListenAddress"`
	DataDir       string       `toml:"DataDir"`
	NetworkName   string       `toml:"NetworkName"`
	RPCAuthToken  string       `toml:"RPCAuthToken"`
	Token         TokenConfig  `toml:"Token"`
	Escrow        EscrowConfig `toml:"Escrow"`
}

// Canonical USDC deployments per supported network. Unknown networks must
// configure an explicit token address.
var networkTokenAddresses = map[string]string{
	"mainnet": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
	"base":    "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
	"sepolia": "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238",
}

const (
	defaultListenAddress = ":8545"
	defaultDataDir       = "./escrow-data"
	defaultNetworkName   = "sepolia"
	defaultTokenSymbol   = "USDC"
	defaultTokenDecimals = uint8(6)
	defaultFeePercent    = 10.0
)

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress: defaultListenAddress,
		DataDir:       defaultDataDir,
		NetworkName:   defaultNetworkName,
		Token: TokenConfig{
			Symbol:   defaultTokenSymbol,
			Decimals: defaultTokenDecimals,
		},
		Escrow: EscrowConfig{
			PlatformFeePercent: defaultFeePercent,
		},
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = defaultListenAddress
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = defaultDataDir
	}
	c.NetworkName = strings.ToLower(strings.TrimSpace(c.NetworkName))
	if c.NetworkName == "" {
		c.NetworkName = defaultNetworkName
	}
	if strings.TrimSpace(c.Token.Symbol) == "" {
		c.Token.Symbol = defaultTokenSymbol
	}
	if c.Token.Decimals == 0 {
		c.Token.Decimals = defaultTokenDecimals
	}
	if strings.TrimSpace(c.Token.Address) == "" {
		preset, ok := networkTokenAddresses[c.NetworkName]
		if !ok {
			return fmt.Errorf("config: no token address preset for network %q; set [Token].Address", c.NetworkName)
		}
		c.Token.Address = preset
	}
	return nil
}

// Validate checks the loaded configuration for deployment readiness.
func (c *Config) Validate() error {
	if _, err := parseAddress(c.Token.Address, "token address"); err != nil {
		return err
	}
	admin, err := parseAddress(c.Escrow.AdminAddress, "admin address")
	if err != nil {
		return err
	}
	if admin == (common.Address{}) {
		return fmt.Errorf("config: admin address must not be the zero address")
	}
	if strings.TrimSpace(c.Token.Authority) != "" {
		if _, err := parseAddress(c.Token.Authority, "token authority"); err != nil {
			return err
		}
	}
	if c.Escrow.PlatformFeePercent < 0 || c.Escrow.PlatformFeePercent > 100 {
		return fmt.Errorf("config: platform fee percent %v outside [0, 100]", c.Escrow.PlatformFeePercent)
	}
	if _, err := c.PlatformFeeBps(); err != nil {
		return err
	}
	return nil
}

// PlatformFeeBps converts the human fee percentage to basis points. Fractions
// finer than a single basis point are rejected rather than silently rounded.
func (c *Config) PlatformFeeBps() (uint32, error) {
	scaled := c.Escrow.PlatformFeePercent * 100
	rounded := math.Round(scaled)
	if math.Abs(scaled-rounded) > 1e-9 {
		return 0, fmt.Errorf("config: platform fee percent %v is finer than one basis point", c.Escrow.PlatformFeePercent)
	}
	if rounded < 0 || rounded > 10_000 {
		return 0, fmt.Errorf("config: platform fee percent %v outside [0, 100]", c.Escrow.PlatformFeePercent)
	}
	return uint32(rounded), nil
}

// TokenAddress returns the parsed stablecoin address.
func (c *Config) TokenAddress() (common.Address, error) {
	return parseAddress(c.Token.Address, "token address")
}

// AdminAddress returns the parsed platform admin address.
func (c *Config) AdminAddress() (common.Address, error) {
	return parseAddress(c.Escrow.AdminAddress, "admin address")
}

// TokenAuthority returns the mint authority, falling back to the admin
// address when unset.
func (c *Config) TokenAuthority() (common.Address, error) {
	if strings.TrimSpace(c.Token.Authority) == "" {
		return c.AdminAddress()
	}
	return parseAddress(c.Token.Authority, "token authority")
}

func parseAddress(raw, label string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return common.Address{}, fmt.Errorf("config: %s is required", label)
	}
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("config: invalid %s: %s", label, raw)
	}
	return common.HexToAddress(trimmed), nil
}
