package rpc

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/tidwall/gjson"

	"github.com/quantum-metachain/qmc/agent"
)

// maxEntropyBody caps the size of an entropy response.
const maxEntropyBody = 64 * 1024

// EntropyClient fetches random bytes from a quantum entropy service. Two
// response shapes are understood:
//
//	QRNG:     {"data":{"result":["<hex>" | <number>]}}
//	ETSI 014: {"keys":[{"key_ID":"...","key":"<base64>"}]}
type EntropyClient struct {
	URL    string
	Client *http.Client
}

// NewEntropyClient creates a client for url.
func NewEntropyClient(url string) *EntropyClient {
	return &EntropyClient{URL: url}
}

// Fetch implements agent.EntropySource. All failures wrap
// agent.ErrEntropySourceUnavailable.
func (c *EntropyClient) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", agent.ErrEntropySourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := defaultClient(c.Client).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", agent.ErrEntropySourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", agent.ErrEntropySourceUnavailable, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxEntropyBody))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", agent.ErrEntropySourceUnavailable, err)
	}
	return ParseEntropy(body)
}

// ParseEntropy extracts the random bytes from an entropy service response.
func ParseEntropy(body []byte) ([]byte, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid JSON", agent.ErrEntropySourceUnavailable)
	}
	if v := gjson.GetBytes(body, "data.result.0"); v.Exists() {
		return parseQRNGValue(v)
	}
	if v := gjson.GetBytes(body, "keys.0.key"); v.Exists() {
		b, err := base64.StdEncoding.DecodeString(v.String())
		if err != nil || len(b) == 0 {
			return nil, fmt.Errorf("%w: bad QKD key", agent.ErrEntropySourceUnavailable)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: unrecognized response", agent.ErrEntropySourceUnavailable)
}

func parseQRNGValue(v gjson.Result) ([]byte, error) {
	switch v.Type {
	case gjson.String:
		s := v.String()
		if !strings.HasPrefix(s, "0x") {
			s = "0x" + s
		}
		b, err := hexutil.Decode(s)
		if err != nil || len(b) == 0 {
			return nil, fmt.Errorf("%w: bad QRNG hex", agent.ErrEntropySourceUnavailable)
		}
		return b, nil
	case gjson.Number:
		n, ok := new(big.Int).SetString(v.Raw, 10)
		if !ok || n.Sign() <= 0 {
			return nil, fmt.Errorf("%w: bad QRNG number", agent.ErrEntropySourceUnavailable)
		}
		return n.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: bad QRNG value", agent.ErrEntropySourceUnavailable)
	}
}
