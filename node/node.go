package node

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/quantum-metachain/qmc/agent"
	"github.com/quantum-metachain/qmc/core/rawdb"
	"github.com/quantum-metachain/qmc/core/types"
	"github.com/quantum-metachain/qmc/log"
	"github.com/quantum-metachain/qmc/metrics"
	"github.com/quantum-metachain/qmc/randao"
	"github.com/quantum-metachain/qmc/rpc"
	"github.com/quantum-metachain/qmc/txpool"
)

// Node is the top-level beacon node that manages all subsystems.
type Node struct {
	config *Config
	log    *log.Logger

	// Subsystems.
	db        rawdb.Database
	ledger    *randao.Ledger
	pool      *txpool.Pool
	agent     *agent.Agent
	rpcServer *http.Server

	mu      sync.Mutex
	running bool
	head    uint64
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option customizes collaborators at construction. Used by tests and
// embedders that supply their own peer directory or node control.
type Option func(*agent.Deps)

// WithPeerDirectory overrides the peer directory.
func WithPeerDirectory(p agent.PeerDirectory) Option {
	return func(d *agent.Deps) { d.Peers = p }
}

// WithNodeControl overrides the key rotation target.
func WithNodeControl(c agent.NodeControl) Option {
	return func(d *agent.Deps) { d.Control = c }
}

// New creates a new Node with the given configuration. It opens storage and
// builds all subsystems but does not start the tick loop.
func New(config *Config, opts ...Option) (*Node, error) {
	if config == nil {
		c := DefaultConfig()
		config = &c
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	level, err := log.ParseLevel(config.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := log.NewWriter(os.Stderr, level, config.LogFormat).With("node", config.Name)

	n := &Node{config: config, log: logger.Module("node")}

	if config.InMemory {
		n.db = rawdb.NewMemoryDB()
	} else {
		db, err := rawdb.OpenLevelDB(config.ResolvePath("chaindata"), false)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		n.db = db
	}
	head, err := rawdb.ReadHeadHeight(n.db)
	if err != nil {
		n.db.Close()
		return nil, fmt.Errorf("read head: %w", err)
	}
	n.head = head

	n.ledger = randao.NewLedger(n.db, logger)
	n.pool = txpool.New(txpool.DefaultConfig(), n.ledger, logger)

	ac, err := config.AgentConfig()
	if err != nil {
		n.db.Close()
		return nil, err
	}
	deps := agent.Deps{
		Ledger:    n.ledger,
		Submitter: n.pool,
		Peers:     n.peerDirectory(logger),
		Control:   n.nodeControl(),
		Scratch:   n.db,
		Logger:    logger,
	}
	if config.EntropyURL != "" {
		deps.Entropy = rpc.NewEntropyClient(config.EntropyURL)
	}
	for _, opt := range opts {
		opt(&deps)
	}
	n.agent, err = agent.New(ac, deps)
	if err != nil {
		n.db.Close()
		return nil, err
	}
	return n, nil
}

func (n *Node) peerDirectory(logger *log.Logger) agent.PeerDirectory {
	if n.config.PeerRPCURL != "" {
		return rpc.NewPeerClient(n.config.PeerRPCURL, logger)
	}
	return &staticPeers{local: types.MustPeerID(n.config.PeerID)}
}

func (n *Node) nodeControl() agent.NodeControl {
	if n.config.RunnerURL != "" {
		return rpc.NewRunnerClient(n.config.RunnerURL)
	}
	return &logControl{log: n.log}
}

// Start resumes the tick loop from the stored head and starts the beacon
// JSON-RPC server, which also serves /metrics.
func (n *Node) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.running {
		return errors.New("node already running")
	}
	n.log.Info("Starting beacon node", "head", n.head, "blocktime", n.config.BlockTime)

	if n.config.RPCPort != 0 {
		mux := http.NewServeMux()
		mux.Handle("/", rpc.NewServer(n).Handler())
		mux.Handle("/metrics", metrics.NewExporter(metrics.DefaultRegistry, "qmc"))
		n.rpcServer = &http.Server{
			Addr:    n.config.RPCAddr(),
			Handler: mux,
		}
		go func() {
			n.log.Info("RPC server listening", "addr", n.config.RPCAddr())
			if err := n.rpcServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				n.log.Error("RPC server error", "err", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	n.done = make(chan struct{})
	go n.loop(ctx)

	n.running = true
	return nil
}

// loop advances the height once per BlockTime.
func (n *Node) loop(ctx context.Context) {
	defer close(n.done)
	ticker := time.NewTicker(n.config.BlockTime)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.mu.Lock()
			h := n.head + 1
			n.mu.Unlock()
			if err := n.Advance(ctx, h); err != nil {
				n.log.Error("Height processing failed", "height", h, "err", err)
			}
		}
	}
}

// Advance processes height h: queued commands are applied, the agent runs,
// and h becomes the new head.
func (n *Node) Advance(ctx context.Context, h uint64) error {
	receipts := n.pool.Apply(h)
	n.agent.Tick(ctx, h)
	if err := rawdb.WriteHeadHeight(n.db, h); err != nil {
		return err
	}
	n.mu.Lock()
	n.head = h
	n.mu.Unlock()
	n.log.Debug("Height processed", "height", h, "applied", len(receipts))
	return nil
}

// Stop cancels the tick loop, waits for it, and closes the database.
func (n *Node) Stop() error {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return nil
	}
	n.running = false
	n.mu.Unlock()

	n.log.Info("Stopping beacon node")
	n.cancel()
	<-n.done

	if n.rpcServer != nil {
		if err := n.rpcServer.Close(); err != nil {
			n.log.Warn("RPC server stop error", "err", err)
		}
	}
	return n.Close()
}

// Close releases the database. Called by Stop; call directly only on a
// node that was never started.
func (n *Node) Close() error {
	if err := n.db.Close(); err != nil && !errors.Is(err, rawdb.ErrClosed) {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// Ledger returns the campaign ledger.
func (n *Node) Ledger() *randao.Ledger {
	return n.ledger
}

// Pool returns the command pool.
func (n *Node) Pool() *txpool.Pool {
	return n.pool
}

// Config returns the node configuration.
func (n *Node) Config() *Config {
	return n.config
}

// Running reports whether the node is currently running.
func (n *Node) Running() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.running
}

// Head returns the last processed height.
func (n *Node) Head() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.head
}

// Campaign, Campaigns, GetSecret and PendingCommands serve rpc.Backend.

func (n *Node) Campaign(target uint64) (*types.Campaign, error) { return n.ledger.Campaign(target) }
func (n *Node) Campaigns() ([]*types.Campaign, error)           { return n.ledger.Campaigns() }
func (n *Node) GetSecret(h, target uint64) (uint64, error)      { return n.ledger.GetSecret(h, target) }
func (n *Node) PendingCommands() int                            { return n.pool.Pending() }
