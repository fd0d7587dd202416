package agent

import (
	"errors"
	"time"

	"github.com/quantum-metachain/qmc/election"
)

// Config holds the scheduling parameters of the agent. Heights are counted
// in blocks.
type Config struct {
	// Lookahead is how far ahead of the current height new campaigns target.
	Lookahead uint64

	// Balkline and Deadline set the commit window [T-Balkline, T-Deadline]
	// of each created campaign.
	Balkline uint64
	Deadline uint64

	// RotationDelay is the number of heights between an election and the
	// key rotation it schedules.
	RotationDelay uint64

	// EntropyTimeout bounds a single entropy source fetch.
	EntropyTimeout time.Duration

	Difficulty election.Difficulty

	// SelfParticipate makes the agent commit and reveal its own secret in
	// every campaign it creates.
	SelfParticipate bool
}

// DefaultConfig returns the parameters the network runs with.
func DefaultConfig() Config {
	return Config{
		Lookahead:       10,
		Balkline:        8,
		Deadline:        4,
		RotationDelay:   60,
		EntropyTimeout:  5 * time.Second,
		Difficulty:      election.DefaultDifficulty(),
		SelfParticipate: true,
	}
}

// Validate checks that campaigns created with this config can be created,
// committed to and revealed. Commands submitted at height h are applied at
// h+1, so the commit window must be at least one height past the creation
// and the reveal window must span at least one height.
func (c Config) Validate() error {
	if c.Deadline < 2 {
		return errors.New("agent: deadline must be at least 2")
	}
	if c.Balkline <= c.Deadline {
		return errors.New("agent: balkline must exceed deadline")
	}
	if c.Lookahead <= c.Balkline+1 {
		return errors.New("agent: lookahead must exceed balkline by at least 2")
	}
	if c.RotationDelay == 0 {
		return errors.New("agent: rotation delay must be positive")
	}
	if c.EntropyTimeout <= 0 {
		return errors.New("agent: entropy timeout must be positive")
	}
	return nil
}
