package randao

import (
	gethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/quantum-metachain/qmc/core/types"
)

// EventKind identifies a ledger notification.
type EventKind uint8

const (
	EventCampaignAdded EventKind = iota + 1
	EventCommit
	EventReveal
)

func (k EventKind) String() string {
	switch k {
	case EventCampaignAdded:
		return "campaign_added"
	case EventCommit:
		return "commit"
	case EventReveal:
		return "reveal"
	default:
		return "unknown"
	}
}

// Event is published after a ledger mutation has been committed. Fields not
// relevant to Kind are zero.
type Event struct {
	Kind       EventKind
	Height     uint64 // height at which the mutation was applied
	Target     uint64
	Balkline   uint64
	Deadline   uint64
	From       types.PeerID
	Commitment gethcommon.Hash
	Secret     uint64
}
