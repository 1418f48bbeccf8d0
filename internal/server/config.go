package server

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/thejustinfagan/Battle-Dinghy-ORE/internal/escrow"
)

// Config is the complete server configuration.
type Config struct {
	Server   ServerSettings  `hcl:"server,block"`
	Escrow   *EscrowSettings `hcl:"escrow,block"`
	Accounts []AccountConfig `hcl:"account,block"`
	Tokens   []TokenConfig   `hcl:"token,block"`
}

// ServerSettings contains server-level configuration.
type ServerSettings struct {
	Addr     string `hcl:"addr,optional"`
	LogLevel string `hcl:"log_level,optional"`
	DataDir  string `hcl:"data_dir,optional"`

	// Faucet enables the dev-mode deposit message. Never enable this
	// where balances mean anything.
	Faucet bool `hcl:"faucet,optional"`
}

// EscrowSettings tunes the escrow machine.
type EscrowSettings struct {
	// Reserve is the per-record balance floor that is never distributed.
	Reserve int64 `hcl:"reserve,optional"`

	// MinimumGameTimeSecs overrides the default 60s winner-declaration
	// delay. Zero keeps the default.
	MinimumGameTimeSecs int `hcl:"minimum_game_time_secs,optional"`
}

// AccountConfig seeds a ledger balance at boot.
type AccountConfig struct {
	Name    string `hcl:"name,label"`
	Balance int64  `hcl:"balance"`
}

// TokenConfig maps an auth token to a player identity. When any token
// blocks are present, authentication is required; with none, the server
// runs with the noop validator and trusts requested names.
type TokenConfig struct {
	Token  string `hcl:"token,label"`
	Player string `hcl:"player"`
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Addr:     "localhost:8080",
			LogLevel: "info",
			DataDir:  "dinghyd-data",
		},
	}
}

// LoadConfig loads configuration from an HCL file. A missing file yields
// the defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	if config.Server.Addr == "" {
		config.Server.Addr = "localhost:8080"
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Server.DataDir == "" {
		config.Server.DataDir = "dinghyd-data"
	}

	return &config, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		return fmt.Errorf("invalid addr %q: %w", c.Server.Addr, err)
	}

	switch c.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Server.LogLevel)
	}

	if c.Escrow != nil {
		if c.Escrow.Reserve < 0 {
			return fmt.Errorf("reserve must not be negative")
		}
		if c.Escrow.MinimumGameTimeSecs < 0 {
			return fmt.Errorf("minimum game time must not be negative")
		}
	}

	for _, acct := range c.Accounts {
		if acct.Name == "" {
			return fmt.Errorf("account name must not be empty")
		}
		if acct.Balance <= 0 {
			return fmt.Errorf("account %s: balance must be positive", acct.Name)
		}
	}

	for _, tok := range c.Tokens {
		if tok.Token == "" || tok.Player == "" {
			return fmt.Errorf("token blocks need both a token label and a player")
		}
	}

	return nil
}

// MachineConfig converts the escrow settings for the state machine.
func (c *Config) MachineConfig() escrow.Config {
	if c.Escrow == nil {
		return escrow.Config{}
	}
	return escrow.Config{
		Reserve:         c.Escrow.Reserve,
		MinimumGameTime: time.Duration(c.Escrow.MinimumGameTimeSecs) * time.Second,
	}
}

// Validator builds the auth validator described by the config.
func (c *Config) Validator() Validator {
	if len(c.Tokens) == 0 {
		return NewNoopValidator()
	}
	tokens := make(map[string]string, len(c.Tokens))
	for _, tok := range c.Tokens {
		tokens[tok.Token] = tok.Player
	}
	return NewStaticValidator(tokens)
}
