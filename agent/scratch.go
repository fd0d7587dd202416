package agent

import (
	"encoding/binary"
	"errors"
	"slices"

	gethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/quantum-metachain/qmc/core/rawdb"
	"github.com/quantum-metachain/qmc/core/types"
)

// Scratch record names. Records are private to the local node and survive
// restarts.
const (
	lastCampaignKey  = "last-campaign"
	lastElectionKey  = "last-election"
	rotationKey      = "rotation"
	commitIndexKey   = "commit-index"
	commitRecordBase = "commit/"
)

// SelfCommitment is the agent's own participation in one campaign.
// Committed and Revealed mirror the ledger as last observed, not what was
// submitted.
type SelfCommitment struct {
	Target     uint64
	Secret     uint64
	Commitment gethcommon.Hash
	Committed  bool
	Revealed   bool
}

// PendingRotation is a scheduled key rotation.
type PendingRotation struct {
	Height  uint64
	Winner  types.PeerID
	IsLocal bool
}

func commitRecordName(target uint64) string {
	var enc [8]byte
	binary.BigEndian.PutUint64(enc[:], target)
	return commitRecordBase + string(enc[:])
}

// readUint reads a uint64 scratch record. ok is false if it does not exist.
func readUint(db rawdb.KeyValueReader, name string) (v uint64, ok bool, err error) {
	err = rawdb.ReadScratch(db, name, &v)
	if errors.Is(err, rawdb.ErrNotFound) {
		return 0, false, nil
	}
	return v, err == nil, err
}

// ReadPendingRotation returns the scheduled rotation, or nil.
func ReadPendingRotation(db rawdb.KeyValueReader) (*PendingRotation, error) {
	r := new(PendingRotation)
	err := rawdb.ReadScratch(db, rotationKey, r)
	if errors.Is(err, rawdb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ReadSelfCommitment returns the agent's record for target, or nil.
func ReadSelfCommitment(db rawdb.KeyValueReader, target uint64) (*SelfCommitment, error) {
	sc := new(SelfCommitment)
	err := rawdb.ReadScratch(db, commitRecordName(target), sc)
	if errors.Is(err, rawdb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sc, nil
}

// readCommitIndex returns the targets that have a SelfCommitment record, in
// ascending order.
func readCommitIndex(db rawdb.KeyValueReader) ([]uint64, error) {
	var targets []uint64
	err := rawdb.ReadScratch(db, commitIndexKey, &targets)
	if errors.Is(err, rawdb.ErrNotFound) {
		return nil, nil
	}
	return targets, err
}

// writeSelfCommitment stores sc and adds its target to the index.
func writeSelfCommitment(db rawdb.KeyValueStore, sc *SelfCommitment) error {
	targets, err := readCommitIndex(db)
	if err != nil {
		return err
	}
	if err := rawdb.WriteScratch(db, commitRecordName(sc.Target), sc); err != nil {
		return err
	}
	if i, found := slices.BinarySearch(targets, sc.Target); !found {
		targets = slices.Insert(targets, i, sc.Target)
		return rawdb.WriteScratch(db, commitIndexKey, targets)
	}
	return nil
}

// pruneSelfCommitments deletes the records of every target <= h.
func pruneSelfCommitments(db rawdb.KeyValueStore, h uint64) error {
	targets, err := readCommitIndex(db)
	if err != nil {
		return err
	}
	n := 0
	for n < len(targets) && targets[n] <= h {
		if err := rawdb.DeleteScratch(db, commitRecordName(targets[n])); err != nil {
			return err
		}
		n++
	}
	if n == 0 {
		return nil
	}
	return rawdb.WriteScratch(db, commitIndexKey, targets[n:])
}
