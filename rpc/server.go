package rpc

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/quantum-metachain/qmc/core/types"
	"github.com/quantum-metachain/qmc/randao"
)

// Backend is the node state the beacon API reads.
type Backend interface {
	Head() uint64
	Campaign(target uint64) (*types.Campaign, error)
	Campaigns() ([]*types.Campaign, error)
	GetSecret(h, target uint64) (uint64, error)
	PendingCommands() int
}

// CampaignResult is the JSON form of a campaign as seen at the head.
type CampaignResult struct {
	Target   uint64  `json:"target"`
	Phase    string  `json:"phase"`
	Balkline uint64  `json:"balkline"`
	Deadline uint64  `json:"deadline"`
	Commits  uint64  `json:"commits"`
	Reveals  uint64  `json:"reveals"`
	Secret   *uint64 `json:"secret,omitempty"`
	Failed   bool    `json:"failed,omitempty"`
}

// StatusResult is returned by beacon_status.
type StatusResult struct {
	Head    uint64 `json:"head"`
	Pending int    `json:"pending"`
}

// Server is a JSON-RPC HTTP server exposing the beacon_ namespace:
//
//	beacon_status                -> StatusResult
//	beacon_campaign  [target]    -> CampaignResult
//	beacon_campaigns             -> []CampaignResult
//	beacon_secret    [target]    -> uint64
type Server struct {
	backend Backend
	mux     *http.ServeMux
}

// NewServer creates a new JSON-RPC server.
func NewServer(backend Backend) *Server {
	s := &Server{
		backend: backend,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("/", s.handleRPC)
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, nil, ErrCodeParse, "failed to read request body")
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, nil, ErrCodeParse, "invalid JSON")
		return
	}
	writeJSON(w, s.HandleRequest(&req))
}

// HandleRequest dispatches a single request.
func (s *Server) HandleRequest(req *Request) *Response {
	switch req.Method {
	case "beacon_status":
		return successResponse(req.ID, StatusResult{Head: s.backend.Head(), Pending: s.backend.PendingCommands()})

	case "beacon_campaign":
		target, rpcErr := targetParam(req.Params)
		if rpcErr != nil {
			return errorResponse(req.ID, rpcErr.Code, rpcErr.Message)
		}
		c, err := s.backend.Campaign(target)
		if err != nil {
			return errorResponse(req.ID, ledgerErrorCode(err), err.Error())
		}
		return successResponse(req.ID, s.campaignResult(c))

	case "beacon_campaigns":
		all, err := s.backend.Campaigns()
		if err != nil {
			return errorResponse(req.ID, ErrCodeInternal, err.Error())
		}
		out := make([]CampaignResult, 0, len(all))
		for _, c := range all {
			out = append(out, s.campaignResult(c))
		}
		return successResponse(req.ID, out)

	case "beacon_secret":
		target, rpcErr := targetParam(req.Params)
		if rpcErr != nil {
			return errorResponse(req.ID, rpcErr.Code, rpcErr.Message)
		}
		secret, err := s.backend.GetSecret(s.backend.Head(), target)
		if err != nil {
			return errorResponse(req.ID, ledgerErrorCode(err), err.Error())
		}
		return successResponse(req.ID, secret)

	default:
		return errorResponse(req.ID, ErrCodeMethodNotFound, "method "+req.Method+" not found")
	}
}

func (s *Server) campaignResult(c *types.Campaign) CampaignResult {
	return NewCampaignResult(c, s.backend.Head())
}

// NewCampaignResult describes c as seen at height head. The secret is set
// only once the campaign is finalizable and met quorum.
func NewCampaignResult(c *types.Campaign, head uint64) CampaignResult {
	phase := c.PhaseAt(head)
	res := CampaignResult{
		Target:   c.TargetHeight,
		Phase:    phase.String(),
		Balkline: c.CommitBalkline,
		Deadline: c.CommitDeadline,
		Commits:  c.CommitCount,
		Reveals:  c.RevealCount,
	}
	if phase == types.PhaseFinalizable {
		if err := randao.ValidateFinalized(head, c); err != nil {
			res.Failed = true
		} else {
			secret := c.Secret
			res.Secret = &secret
		}
	}
	return res
}

func targetParam(params []json.RawMessage) (uint64, *RPCError) {
	if len(params) != 1 {
		return 0, &RPCError{Code: ErrCodeInvalidParams, Message: "expected one parameter: target height"}
	}
	var target uint64
	if err := json.Unmarshal(params[0], &target); err != nil {
		return 0, &RPCError{Code: ErrCodeInvalidParams, Message: "invalid target height"}
	}
	return target, nil
}

// ledgerErrorCode maps ledger rejections to invalid-params and everything
// else to internal errors.
func ledgerErrorCode(err error) int {
	switch {
	case errors.Is(err, randao.ErrIncorrectID),
		errors.Is(err, randao.ErrCampaignIsNotOver),
		errors.Is(err, randao.ErrFailedCampaign):
		return ErrCodeInvalidParams
	default:
		return ErrCodeInternal
	}
}

func successResponse(id json.RawMessage, result interface{}) *Response {
	return &Response{JSONRPC: "2.0", Result: result, ID: id}
}

func errorResponse(id json.RawMessage, code int, message string) *Response {
	return &Response{JSONRPC: "2.0", Error: &RPCError{Code: code, Message: message}, ID: id}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, id json.RawMessage, code int, message string) {
	writeJSON(w, errorResponse(id, code, message))
}
