package rpc

import (
	"context"
	"fmt"
	"net/http"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/quantum-metachain/qmc/agent"
	"github.com/quantum-metachain/qmc/core/types"
	"github.com/quantum-metachain/qmc/log"
)

// PeerClient reads the local and connected peer ids from the host node's
// JSON-RPC endpoint (system_localPeerId, system_peers).
type PeerClient struct {
	URL    string
	Client *http.Client
	log    *log.Logger
}

// NewPeerClient creates a client for the JSON-RPC endpoint at url.
func NewPeerClient(url string, logger *log.Logger) *PeerClient {
	if logger == nil {
		logger = log.Default()
	}
	return &PeerClient{URL: url, log: logger.Module("rpc")}
}

// LocalID implements agent.PeerDirectory.
func (c *PeerClient) LocalID(ctx context.Context) (types.PeerID, error) {
	var s string
	if err := c.call(ctx, "system_localPeerId", &s); err != nil {
		return types.PeerID{}, err
	}
	id, err := parsePeerID(s)
	if err != nil {
		return types.PeerID{}, fmt.Errorf("%w: local id: %v", agent.ErrPeerDirectoryUnavailable, err)
	}
	return id, nil
}

// peerInfo is one entry of the system_peers result.
type peerInfo struct {
	PeerID string `json:"peerId"`
}

// KnownPeers implements agent.PeerDirectory. Malformed ids are skipped.
func (c *PeerClient) KnownPeers(ctx context.Context) ([]types.PeerID, error) {
	var infos []peerInfo
	if err := c.call(ctx, "system_peers", &infos); err != nil {
		return nil, err
	}
	out := make([]types.PeerID, 0, len(infos))
	for _, info := range infos {
		id, err := parsePeerID(info.PeerID)
		if err != nil {
			c.log.Warn("Skipping malformed peer id", "peer", info.PeerID, "err", err)
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// parsePeerID validates s as a libp2p peer id and converts it to the fixed
// width form.
func parsePeerID(s string) (types.PeerID, error) {
	if _, err := peer.Decode(s); err != nil {
		return types.PeerID{}, err
	}
	return types.PeerIDFromString(s)
}

// call performs a JSON-RPC request and decodes the result into out. Errors
// wrap agent.ErrPeerDirectoryUnavailable.
func (c *PeerClient) call(ctx context.Context, method string, out interface{}) error {
	if err := callJSON(ctx, c.Client, c.URL, method, nil, out); err != nil {
		return fmt.Errorf("%w: %s: %v", agent.ErrPeerDirectoryUnavailable, method, err)
	}
	return nil
}
