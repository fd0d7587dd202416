package node

import (
	"context"

	"github.com/quantum-metachain/qmc/agent"
	"github.com/quantum-metachain/qmc/core/types"
	"github.com/quantum-metachain/qmc/log"
)

// staticPeers is the peer directory used without a host JSON-RPC endpoint:
// the configured local id and no remote peers.
type staticPeers struct {
	local types.PeerID
}

func (p *staticPeers) LocalID(context.Context) (types.PeerID, error) { return p.local, nil }

func (p *staticPeers) KnownPeers(context.Context) ([]types.PeerID, error) { return nil, nil }

// logControl stands in for the runner when none is configured. Rotations
// are logged and otherwise ignored.
type logControl struct {
	log *log.Logger
}

func (c *logControl) RotateKey(_ context.Context, r agent.KeyRotation) error {
	c.log.Warn("No runner configured, skipping key rotation", "creator", r.Creator.String(), "local", r.IsLocal, "height", r.Height)
	return nil
}

func (c *logControl) RequestRestart(context.Context) error {
	c.log.Warn("No runner configured, restart skipped")
	return nil
}
