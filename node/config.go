// Package node assembles the beacon node: storage, campaign ledger, command
// pool, scheduling agent and the HTTP collaborators, driven by a height
// ticker.
package node

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/quantum-metachain/qmc/agent"
	"github.com/quantum-metachain/qmc/core/types"
	"github.com/quantum-metachain/qmc/election"
	"github.com/quantum-metachain/qmc/log"
)

// Config holds all configuration for a beacon node. Every field can be
// overridden from the environment with the QMC_ variable in its tag.
type Config struct {
	// DataDir is the root directory for all data storage.
	DataDir string `env:"QMC_DATADIR"`

	// Name is a human-readable node identifier (used in logs).
	Name string `env:"QMC_NAME"`

	// LogLevel controls log verbosity (debug, info, warn, error).
	LogLevel string `env:"QMC_LOG_LEVEL"`

	// LogFormat selects the log encoding (json, text).
	LogFormat string `env:"QMC_LOG_FORMAT"`

	// BlockTime is the interval between two heights.
	BlockTime time.Duration `env:"QMC_BLOCK_TIME"`

	// Campaign scheduling, see agent.Config.
	Lookahead       uint64 `env:"QMC_LOOKAHEAD"`
	Balkline        uint64 `env:"QMC_BALKLINE"`
	Deadline        uint64 `env:"QMC_DEADLINE"`
	RotationDelay   uint64 `env:"QMC_ROTATION_DELAY"`
	SelfParticipate bool   `env:"QMC_SELF_PARTICIPATE"`

	// Difficulty1 and Difficulty2 are the 128-bit halves of the election
	// difficulty, decimal or 0x-hex.
	Difficulty1 string `env:"QMC_DIFFICULTY1"`
	Difficulty2 string `env:"QMC_DIFFICULTY2"`

	// EntropyURL is the QRNG or QKD endpoint. Empty uses local randomness.
	EntropyURL     string        `env:"QMC_ENTROPY_URL"`
	EntropyTimeout time.Duration `env:"QMC_ENTROPY_TIMEOUT"`

	// PeerRPCURL is the host node's JSON-RPC endpoint. When empty, PeerID
	// is used as the local id and no remote peers are known.
	PeerRPCURL string `env:"QMC_PEER_RPC_URL"`
	PeerID     string `env:"QMC_PEER_ID"`

	// RunnerURL is the base URL of the runner. Empty disables key rotation.
	RunnerURL string `env:"QMC_RUNNER_URL"`

	// RPCPort serves the read-only beacon JSON-RPC API and /metrics. 0
	// disables both.
	RPCPort int `env:"QMC_RPC_PORT"`

	// InMemory keeps all state in memory instead of DataDir.
	InMemory bool `env:"QMC_IN_MEMORY"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	ac := agent.DefaultConfig()
	return Config{
		DataDir:         "qmc-data",
		Name:            "qmc",
		LogLevel:        "info",
		LogFormat:       "json",
		BlockTime:       6 * time.Second,
		Lookahead:       ac.Lookahead,
		Balkline:        ac.Balkline,
		Deadline:        ac.Deadline,
		RotationDelay:   ac.RotationDelay,
		SelfParticipate: ac.SelfParticipate,
		Difficulty1:     "1000000",
		Difficulty2:     "0xffffffffffffffffffffffffffffffff",
		EntropyTimeout:  ac.EntropyTimeout,
		RPCPort:         9955,
	}
}

// ApplyEnv overrides fields from QMC_ environment variables.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("config: env: %w", err)
	}
	return nil
}

// Validate checks configuration values for correctness.
func (c *Config) Validate() error {
	if c.DataDir == "" && !c.InMemory {
		return errors.New("config: datadir must not be empty")
	}
	if c.BlockTime <= 0 {
		return fmt.Errorf("config: invalid block time: %v", c.BlockTime)
	}
	if c.RPCPort < 0 || c.RPCPort > 65535 {
		return fmt.Errorf("config: invalid rpc port: %d", c.RPCPort)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("config: unknown log format %q", c.LogFormat)
	}
	if c.PeerRPCURL == "" {
		if _, err := types.PeerIDFromString(c.PeerID); err != nil {
			return fmt.Errorf("config: peer id required without peer rpc url: %w", err)
		}
	}
	ac, err := c.AgentConfig()
	if err != nil {
		return err
	}
	if err := ac.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// AgentConfig derives the scheduling agent's configuration.
func (c *Config) AgentConfig() (agent.Config, error) {
	d, err := election.ParseDifficulty(c.Difficulty1, c.Difficulty2)
	if err != nil {
		return agent.Config{}, fmt.Errorf("config: difficulty: %w", err)
	}
	return agent.Config{
		Lookahead:       c.Lookahead,
		Balkline:        c.Balkline,
		Deadline:        c.Deadline,
		RotationDelay:   c.RotationDelay,
		EntropyTimeout:  c.EntropyTimeout,
		Difficulty:      d,
		SelfParticipate: c.SelfParticipate,
	}, nil
}

// ResolvePath resolves a path relative to the data directory.
func (c *Config) ResolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.DataDir, path)
}

// RPCAddr returns the RPC listen address string.
func (c *Config) RPCAddr() string {
	return fmt.Sprintf("127.0.0.1:%d", c.RPCPort)
}
