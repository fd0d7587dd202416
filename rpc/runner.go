package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/quantum-metachain/qmc/agent"
)

// RunnerClient controls the runner process that supervises the host node:
// POST /psk installs the pre-shared key for a rotation, GET /restart
// restarts the node. On the creator the key travels in the request; every
// other runner fetches it from the creator named by peer_id.
type RunnerClient struct {
	URL    string
	Client *http.Client
}

// NewRunnerClient creates a client for the runner at base url.
func NewRunnerClient(url string) *RunnerClient {
	return &RunnerClient{URL: strings.TrimRight(url, "/")}
}

type rotateRequest struct {
	PeerID      string `json:"peer_id"`
	IsLocalPeer bool   `json:"is_local_peer"`
	BlockNum    uint64 `json:"block_num"`
	Key         string `json:"key,omitempty"`
}

// RotateKey implements agent.NodeControl.
func (c *RunnerClient) RotateKey(ctx context.Context, r agent.KeyRotation) error {
	rr := rotateRequest{PeerID: r.Creator.String(), IsLocalPeer: r.IsLocal, BlockNum: r.Height}
	if r.IsLocal {
		rr.Key = hexutil.Encode(r.Key)
	}
	body, err := json.Marshal(rr)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL+"/psk", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

// RequestRestart implements agent.NodeControl.
func (c *RunnerClient) RequestRestart(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL+"/restart", nil)
	if err != nil {
		return err
	}
	return c.do(req)
}

func (c *RunnerClient) do(req *http.Request) error {
	resp, err := defaultClient(c.Client).Do(req)
	if err != nil {
		return fmt.Errorf("rpc: runner %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rpc: runner %s: status %d", req.URL.Path, resp.StatusCode)
	}
	return nil
}
