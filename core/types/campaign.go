package types

import (
	"errors"
	"fmt"

	gethcommon "github.com/ethereum/go-ethereum/common"
)

// PeerIDLength is the length of a peer id in its base58 text form, which is
// how the host network encodes it on the wire.
const PeerIDLength = 52

// ErrInvalidPeerID is returned when a peer id has the wrong length.
var ErrInvalidPeerID = errors.New("types: invalid peer id length")

// PeerID is a fixed-length opaque network peer identifier.
type PeerID [PeerIDLength]byte

// PeerIDFromString converts the text form of a peer id.
func PeerIDFromString(s string) (PeerID, error) {
	var id PeerID
	if len(s) != PeerIDLength {
		return id, fmt.Errorf("%w: got %d bytes", ErrInvalidPeerID, len(s))
	}
	copy(id[:], s)
	return id, nil
}

// MustPeerID is like PeerIDFromString but panics on error. Intended for
// constants and tests.
func MustPeerID(s string) PeerID {
	id, err := PeerIDFromString(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the text form of the peer id.
func (id PeerID) String() string { return string(id[:]) }

// Bytes returns a copy of the raw identifier bytes.
func (id PeerID) Bytes() []byte {
	b := make([]byte, PeerIDLength)
	copy(b, id[:])
	return b
}

// Campaign is one round of the randomness beacon, keyed by TargetHeight.
type Campaign struct {
	TargetHeight   uint64
	Secret         uint64 // XOR accumulator of revealed secrets
	CommitBalkline uint64
	CommitDeadline uint64
	CommitCount    uint64
	RevealCount    uint64
}

// CommitOpensAt returns the first height at which commits are accepted.
func (c *Campaign) CommitOpensAt() uint64 { return c.TargetHeight - c.CommitBalkline }

// CommitClosesAt returns the last height at which commits are accepted.
func (c *Campaign) CommitClosesAt() uint64 { return c.TargetHeight - c.CommitDeadline }

// Participant is a single peer's commitment to a campaign.
type Participant struct {
	Commitment gethcommon.Hash
	Secret     uint64
	Revealed   bool
}

// Phase is the lifecycle phase of a campaign at some height. It is derived
// from height comparisons and never stored.
type Phase uint8

const (
	PhasePending Phase = iota
	PhaseCommitOpen
	PhaseRevealOpen
	PhaseFinalizable
)

// String returns a human-readable name for the phase.
func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseCommitOpen:
		return "commit"
	case PhaseRevealOpen:
		return "reveal"
	case PhaseFinalizable:
		return "finalizable"
	default:
		return "unknown"
	}
}

// PhaseAt returns the phase of the campaign at height h.
func (c *Campaign) PhaseAt(h uint64) Phase {
	switch {
	case h >= c.TargetHeight:
		return PhaseFinalizable
	case h > c.CommitClosesAt():
		return PhaseRevealOpen
	case h >= c.CommitOpensAt():
		return PhaseCommitOpen
	default:
		return PhasePending
	}
}
