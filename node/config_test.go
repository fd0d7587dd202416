package node

import (
	"testing"
	"time"
)

func TestDefaultConfigNeedsPeer(t *testing.T) {
	c := DefaultConfig()
	if err := c.Validate(); err == nil {
		t.Fatal("default config without peer id or peer rpc url should fail")
	}
	c.PeerRPCURL = "http://127.0.0.1:9933"
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty datadir", func(c *Config) { c.DataDir = "" }},
		{"zero block time", func(c *Config) { c.BlockTime = 0 }},
		{"bad rpc port", func(c *Config) { c.RPCPort = 70000 }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
		{"bad peer id", func(c *Config) { c.PeerID = "short" }},
		{"bad difficulty", func(c *Config) { c.Difficulty1 = "nope" }},
		{"deadline above balkline", func(c *Config) { c.Balkline, c.Deadline = 2, 6 }},
	}
	for _, tt := range tests {
		c := DefaultConfig()
		c.PeerID = testPeerID
		tt.mutate(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestConfigApplyEnv(t *testing.T) {
	t.Setenv("QMC_DATADIR", "/var/lib/qmc")
	t.Setenv("QMC_BLOCK_TIME", "2s")
	t.Setenv("QMC_LOOKAHEAD", "12")
	t.Setenv("QMC_SELF_PARTICIPATE", "false")
	t.Setenv("QMC_PEER_ID", testPeerID)

	c := DefaultConfig()
	if err := c.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if c.DataDir != "/var/lib/qmc" || c.BlockTime != 2*time.Second || c.Lookahead != 12 {
		t.Fatalf("env not applied: %+v", c)
	}
	if c.SelfParticipate {
		t.Fatal("QMC_SELF_PARTICIPATE=false not applied")
	}
	// Unset variables keep their values.
	if c.Balkline != 8 || c.Name != "qmc" {
		t.Fatalf("unset fields changed: balkline=%d name=%q", c.Balkline, c.Name)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestConfigApplyEnvInvalid(t *testing.T) {
	t.Setenv("QMC_LOOKAHEAD", "many")
	c := DefaultConfig()
	if err := c.ApplyEnv(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestAgentConfigDifficulty(t *testing.T) {
	c := DefaultConfig()
	ac, err := c.AgentConfig()
	if err != nil {
		t.Fatalf("AgentConfig: %v", err)
	}
	if ac.Difficulty.Hex() != "0x40420f00000000000000000000000000ffffffffffffffffffffffffffffffff" {
		t.Fatalf("difficulty = %s", ac.Difficulty.Hex())
	}
}
