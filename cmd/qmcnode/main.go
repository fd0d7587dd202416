// Command qmcnode runs the quantum randomness beacon node.
//
// Usage:
//
//	qmcnode [flags]
//
// Every flag defaults to its QMC_ environment variable when set, and to the
// built-in default otherwise.
//
// Flags:
//
//	--datadir          Data directory path (default: qmc-data)
//	--blocktime        Interval between heights (default: 6s)
//	--peer.rpc         Host node JSON-RPC URL for the peer directory
//	--peer.id          Local peer id when no peer directory is configured
//	--entropy.url      QRNG or QKD endpoint
//	--runner.url       Runner base URL for key rotation
//	--rpc.port         Beacon JSON-RPC port, 0 disables (default: 9955)
//	--lookahead        Heights between campaign creation and target (default: 10)
//	--balkline         Commit window opens at target-balkline (default: 8)
//	--deadline         Commit window closes at target-deadline (default: 4)
//	--rotation.delay   Heights between election and rotation (default: 60)
//	--log.level        debug, info, warn, error (default: info)
//	--log.format       json or text (default: json)
//	--version          Print version and exit
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/quantum-metachain/qmc/log"
	"github.com/quantum-metachain/qmc/node"
)

// Build-time version info, overridable with ldflags:
//
//	go build -ldflags "-X main.version=v0.2.0 -X main.commit=abc1234"
var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the actual entry point, returning an exit code. Accepts CLI
// arguments (without the program name) so it can be tested in isolation.
func run(args []string) int {
	cfg, exit, code := parseFlags(args)
	if exit {
		return code
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	logger := log.NewWriter(os.Stderr, level, cfg.LogFormat)
	log.SetDefault(logger)

	logger.Info("qmcnode starting",
		"version", version,
		"datadir", cfg.DataDir,
		"blocktime", cfg.BlockTime,
		"lookahead", cfg.Lookahead,
		"balkline", cfg.Balkline,
		"deadline", cfg.Deadline,
		"rpc_port", cfg.RPCPort,
		"entropy", cfg.EntropyURL != "",
	)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "err", err)
		return 1
	}
	if !cfg.InMemory {
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			logger.Error("Failed to initialize datadir", "err", err)
			return 1
		}
	}

	n, err := node.New(&cfg)
	if err != nil {
		logger.Error("Failed to create node", "err", err)
		return 1
	}
	if err := n.Start(); err != nil {
		logger.Error("Failed to start node", "err", err)
		n.Close()
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("Received signal, shutting down", "signal", sig.String(), "head", n.Head())

	if err := n.Stop(); err != nil {
		logger.Error("Error during shutdown", "err", err)
		return 1
	}
	logger.Info("Shutdown complete")
	return 0
}

// parseFlags parses CLI arguments into a Config. Environment overrides are
// applied first so flags win. Returns the config, whether the caller should
// exit immediately, and the exit code.
func parseFlags(args []string) (node.Config, bool, int) {
	cfg := node.DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cfg, true, 2
	}
	fs := newFlagSet(&cfg)

	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cfg, true, 2
	}

	if *showVersion {
		fmt.Printf("qmcnode %s (commit %s)\n", version, commit)
		return cfg, true, 0
	}

	return cfg, false, 0
}

// newFlagSet binds all CLI flags to the given Config.
func newFlagSet(cfg *node.Config) *flagSet {
	fs := newCustomFlagSet("qmcnode")
	fs.StringVar(&cfg.DataDir, "datadir", cfg.DataDir, "data directory path")
	fs.StringVar(&cfg.Name, "name", cfg.Name, "node name used in logs")
	fs.DurationVar(&cfg.BlockTime, "blocktime", cfg.BlockTime, "interval between heights")
	fs.StringVar(&cfg.PeerRPCURL, "peer.rpc", cfg.PeerRPCURL, "host node JSON-RPC URL")
	fs.StringVar(&cfg.PeerID, "peer.id", cfg.PeerID, "local peer id when no peer directory is configured")
	fs.StringVar(&cfg.EntropyURL, "entropy.url", cfg.EntropyURL, "QRNG or QKD endpoint")
	fs.DurationVar(&cfg.EntropyTimeout, "entropy.timeout", cfg.EntropyTimeout, "entropy fetch timeout")
	fs.StringVar(&cfg.RunnerURL, "runner.url", cfg.RunnerURL, "runner base URL for key rotation")
	fs.IntVar(&cfg.RPCPort, "rpc.port", cfg.RPCPort, "beacon JSON-RPC port (0 disables)")
	fs.Uint64Var(&cfg.Lookahead, "lookahead", cfg.Lookahead, "heights between campaign creation and target")
	fs.Uint64Var(&cfg.Balkline, "balkline", cfg.Balkline, "commit window opens at target minus balkline")
	fs.Uint64Var(&cfg.Deadline, "deadline", cfg.Deadline, "commit window closes at target minus deadline")
	fs.Uint64Var(&cfg.RotationDelay, "rotation.delay", cfg.RotationDelay, "heights between election and key rotation")
	fs.BoolVar(&cfg.SelfParticipate, "self", cfg.SelfParticipate, "commit and reveal in own campaigns")
	fs.StringVar(&cfg.Difficulty1, "difficulty1", cfg.Difficulty1, "first 128-bit half of the election difficulty")
	fs.StringVar(&cfg.Difficulty2, "difficulty2", cfg.Difficulty2, "second 128-bit half of the election difficulty")
	fs.StringVar(&cfg.LogLevel, "log.level", cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log.format", cfg.LogFormat, "log format (json, text)")
	fs.BoolVar(&cfg.InMemory, "dev", cfg.InMemory, "keep all state in memory")
	return fs
}
