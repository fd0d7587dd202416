// validate.go holds the pure validation rules of the campaign ledger. Each
// function takes the relevant state explicitly and returns the first rule
// that fails, in the order the ledger reports them.
//
// For a campaign with target T, balkline B and deadline D:
//
//	commit window: T-B <= h <= T-D
//	reveal window: T-D <  h <  T
//	finalized:     h >= T, commits > 0, reveals*2 >= commits
package randao

import (
	"github.com/quantum-metachain/qmc/core/types"
	"github.com/quantum-metachain/qmc/crypto"
)

// ValidateCreate checks whether a campaign may be created at height h.
// exists reports whether a campaign is already stored for target.
func ValidateCreate(h uint64, exists bool, target, balkline, deadline uint64) error {
	if exists {
		return ErrCampaignAlreadyExists
	}
	if h >= target {
		return ErrTimeLineCheck
	}
	if deadline >= balkline {
		return ErrTimeLineCheck
	}
	// balkline >= target would open the commit window at or before genesis.
	if balkline >= target || h >= target-balkline {
		return ErrTimeLineCheck
	}
	return nil
}

// ValidateCommit checks whether a commit to c is acceptable at height h.
// committed reports whether the sender already has a participant row; c is
// nil when no campaign exists.
func ValidateCommit(h uint64, committed bool, c *types.Campaign) error {
	if committed {
		return ErrParticipantAlreadyThere
	}
	if c == nil {
		return ErrIncorrectID
	}
	if h < c.CommitOpensAt() || h > c.CommitClosesAt() {
		return ErrTimeLineCommitPhase
	}
	return nil
}

// ValidateReveal checks whether secret may be revealed for participant p of
// campaign c at height h. p and c are nil when the rows do not exist.
func ValidateReveal(h uint64, p *types.Participant, c *types.Campaign, secret uint64) error {
	if p == nil {
		return ErrIsNotAParticipant
	}
	if c == nil {
		return ErrIncorrectID
	}
	if h <= c.CommitClosesAt() || h >= c.TargetHeight {
		return ErrTimeLineRevealPhase
	}
	if p.Revealed {
		return ErrAlreadyRevealed
	}
	if !crypto.VerifySecret(p.Commitment, secret) {
		return ErrSecretDoesNotMatchTheHash
	}
	return nil
}

// ValidateFinalized checks whether the secret of c is authoritative at h.
// The quorum rule is an exact integer comparison: with an odd number of
// commits, strictly more than half must reveal.
func ValidateFinalized(h uint64, c *types.Campaign) error {
	if c == nil {
		return ErrIncorrectID
	}
	if h < c.TargetHeight {
		return ErrCampaignIsNotOver
	}
	if c.CommitCount == 0 || c.RevealCount*2 < c.CommitCount {
		return ErrFailedCampaign
	}
	return nil
}
