// Package agent drives the beacon from the local node. Once per height it
// keeps a campaign scheduled ahead of the chain, commits and reveals the
// node's own secret, elects the next key-rotation leader from the beacon,
// and fires the rotation when its height arrives.
//
// Every step of a tick is independent: a failure is logged and the
// remaining steps still run. All state the agent needs across restarts
// lives in its scratch store.
package agent

import (
	"context"
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"time"

	"go.dedis.ch/kyber/v4/util/random"

	"github.com/quantum-metachain/qmc/core/rawdb"
	"github.com/quantum-metachain/qmc/core/types"
	"github.com/quantum-metachain/qmc/crypto"
	"github.com/quantum-metachain/qmc/election"
	"github.com/quantum-metachain/qmc/log"
	"github.com/quantum-metachain/qmc/metrics"
	"github.com/quantum-metachain/qmc/randao"
	"github.com/quantum-metachain/qmc/txpool"
)

var (
	ErrEntropySourceUnavailable = errors.New("agent: entropy source unavailable")
	ErrPeerDirectoryUnavailable = errors.New("agent: peer directory unavailable")
)

// entropyLen is the size of fresh entropy and rotation key material.
const entropyLen = 32

// Ledger is the read side of the campaign ledger. Participant returns
// randao.ErrIsNotAParticipant when from has not committed to target.
type Ledger interface {
	GetSecret(h, target uint64) (uint64, error)
	Participant(target uint64, from types.PeerID) (*types.Participant, error)
}

// Submitter queues ledger commands for application at the next height.
type Submitter interface {
	Submit(cmd randao.Command, h uint64) error
}

// PeerDirectory reports the local and known remote peer ids.
type PeerDirectory interface {
	LocalID(ctx context.Context) (types.PeerID, error)
	KnownPeers(ctx context.Context) ([]types.PeerID, error)
}

// EntropySource supplies fresh random bytes from outside the node.
type EntropySource interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// KeyRotation describes a rotation that fires at Height. Key holds fresh
// key material when the local node is the creator and is nil otherwise,
// in which case the node obtains the key from Creator.
type KeyRotation struct {
	Height  uint64
	Creator types.PeerID
	IsLocal bool
	Key     []byte
}

// NodeControl installs rotated key material and restarts the node. Every
// node calls both at the rotation height, creator or not.
type NodeControl interface {
	RotateKey(ctx context.Context, r KeyRotation) error
	RequestRestart(ctx context.Context) error
}

// Deps bundles the agent's collaborators. Entropy may be nil; Random
// defaults to a kyber random stream.
type Deps struct {
	Ledger    Ledger
	Submitter Submitter
	Peers     PeerDirectory
	Entropy   EntropySource
	Control   NodeControl
	Scratch   rawdb.KeyValueStore
	Random    cipher.Stream
	Logger    *log.Logger
}

// Agent is the per-node scheduling agent. Tick must not be called
// concurrently.
type Agent struct {
	config    Config
	ledger    Ledger
	submitter Submitter
	peers     PeerDirectory
	entropy   EntropySource
	control   NodeControl
	scratch   rawdb.KeyValueStore
	random    cipher.Stream
	log       *log.Logger
}

// New creates an agent.
func New(config Config, deps Deps) (*Agent, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if deps.Ledger == nil || deps.Submitter == nil || deps.Peers == nil || deps.Control == nil || deps.Scratch == nil {
		return nil, errors.New("agent: missing collaborator")
	}
	if deps.Random == nil {
		deps.Random = random.New()
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	return &Agent{
		config:    config,
		ledger:    deps.Ledger,
		submitter: deps.Submitter,
		peers:     deps.Peers,
		entropy:   deps.Entropy,
		control:   deps.Control,
		scratch:   deps.Scratch,
		random:    deps.Random,
		log:       deps.Logger.Module("agent"),
	}, nil
}

// tick carries per-height state between the steps of one Tick.
type tick struct {
	h      uint64
	beacon uint64
	ok     bool // beacon available
}

// Tick runs the agent for height h.
func (a *Agent) Tick(ctx context.Context, h uint64) {
	metrics.Height.Set(int64(h))
	t := &tick{h: h}

	a.readBeacon(t)
	if err := a.createCampaign(ctx, t); err != nil {
		a.log.Warn("Campaign creation failed", "height", h, "err", err)
	}
	if err := a.participate(ctx, h); err != nil {
		a.log.Warn("Self participation failed", "height", h, "err", err)
	}
	if t.ok {
		if err := a.elect(ctx, t); err != nil {
			a.log.Warn("Creator election failed", "height", h, "err", err)
		}
	}
	if err := a.fireRotation(ctx, t); err != nil {
		a.log.Warn("Key rotation failed", "height", h, "err", err)
	}
}

// readBeacon fetches the secret of the campaign that reaches its target at
// this height.
func (a *Agent) readBeacon(t *tick) {
	secret, err := a.ledger.GetSecret(t.h, t.h)
	if err != nil {
		if !errors.Is(err, randao.ErrIncorrectID) {
			a.log.Info("No beacon at height", "height", t.h, "err", err)
		}
		return
	}
	t.beacon, t.ok = secret, true
}

// freshEntropy returns 32 bytes from the entropy source, or from local
// randomness when the source is missing or fails. Every call draws new
// bytes so a revealed secret never shares material with a rotated key.
func (a *Agent) freshEntropy(ctx context.Context) []byte {
	if a.entropy != nil {
		fetchCtx, cancel := context.WithTimeout(ctx, a.config.EntropyTimeout)
		start := time.Now()
		raw, err := a.entropy.Fetch(fetchCtx)
		cancel()
		metrics.EntropyFetchMs.ObserveSince(start)
		switch {
		case err != nil:
			a.log.Warn("Entropy source failed, using local randomness", "err", err)
		case len(raw) == 0:
			a.log.Warn("Entropy source returned no data, using local randomness")
		case len(raw) >= entropyLen:
			return raw[:entropyLen]
		default:
			h := crypto.Blake2b256(raw)
			return h[:]
		}
	}
	metrics.EntropyMisses.Inc()
	return random.Bits(entropyLen*8, false, a.random)
}

// createCampaign keeps a campaign scheduled Lookahead heights ahead and
// prepares the agent's own commitment to it.
func (a *Agent) createCampaign(ctx context.Context, t *tick) error {
	target := t.h + a.config.Lookahead
	last, ok, err := readUint(a.scratch, lastCampaignKey)
	if err != nil {
		return err
	}
	if ok && last >= target {
		return nil
	}
	cmd := randao.CreateCommand{Height: target, Balkline: a.config.Balkline, Deadline: a.config.Deadline}
	if err := a.submitter.Submit(cmd, t.h); err != nil {
		return err
	}
	if err := rawdb.WriteScratch(a.scratch, lastCampaignKey, target); err != nil {
		return err
	}
	a.log.Debug("Campaign scheduled", "target", target, "height", t.h)

	if !a.config.SelfParticipate {
		return nil
	}
	existing, err := ReadSelfCommitment(a.scratch, target)
	if err != nil || existing != nil {
		return err
	}
	secret := deriveSecret(a.freshEntropy(ctx))
	return writeSelfCommitment(a.scratch, &SelfCommitment{
		Target:     target,
		Secret:     secret,
		Commitment: crypto.HashSecret(secret),
	})
}

// deriveSecret maps fresh entropy to a non-zero secret.
func deriveSecret(fresh []byte) uint64 {
	for i := 0; i+8 <= len(fresh); i += 8 {
		if s := binary.LittleEndian.Uint64(fresh[i : i+8]); s != 0 {
			return s
		}
	}
	return 1
}

// participate submits the agent's own commit and reveal for every campaign
// whose window contains the height at which the command will be applied.
func (a *Agent) participate(ctx context.Context, h uint64) error {
	if err := pruneSelfCommitments(a.scratch, h); err != nil {
		return err
	}
	targets, err := readCommitIndex(a.scratch)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return nil
	}
	local, err := a.peers.LocalID(ctx)
	if err != nil {
		return err
	}

	next := h + 1
	for _, target := range targets {
		sc, err := ReadSelfCommitment(a.scratch, target)
		if err != nil {
			return err
		}
		if sc == nil {
			continue
		}
		c := types.Campaign{TargetHeight: target, CommitBalkline: a.config.Balkline, CommitDeadline: a.config.Deadline}
		phase := c.PhaseAt(next)
		if phase != types.PhaseCommitOpen && phase != types.PhaseRevealOpen {
			continue
		}
		// Only the ledger says whether a submission landed. A command lost
		// from the pool is submitted again while its window is open.
		p, err := a.ledger.Participant(target, local)
		switch {
		case errors.Is(err, randao.ErrIsNotAParticipant):
			p = nil
		case err != nil:
			return err
		}
		if committed, revealed := p != nil, p != nil && p.Revealed; committed != sc.Committed || revealed != sc.Revealed {
			sc.Committed, sc.Revealed = committed, revealed
			if err := writeSelfCommitment(a.scratch, sc); err != nil {
				return err
			}
		}
		var cmd randao.Command
		switch {
		case !sc.Committed && phase == types.PhaseCommitOpen:
			cmd = randao.CommitCommand{From: local, Height: target, Commitment: sc.Commitment}
		case sc.Committed && !sc.Revealed && phase == types.PhaseRevealOpen:
			cmd = randao.RevealCommand{From: local, Height: target, Secret: sc.Secret}
		default:
			continue
		}
		if err := a.submitter.Submit(cmd, h); err != nil {
			if errors.Is(err, txpool.ErrAlreadyKnown) {
				a.log.Debug("Own command already pending", "kind", cmd.Kind().String(), "target", target)
				continue
			}
			a.log.Warn("Submit failed", "kind", cmd.Kind().String(), "target", target, "err", err)
			continue
		}
		a.log.Debug("Submitted own command", "kind", cmd.Kind().String(), "target", target, "height", h)
	}
	return nil
}

// elect runs the creator election for this height's beacon and schedules
// the winner's key rotation.
func (a *Agent) elect(ctx context.Context, t *tick) error {
	pending, err := ReadPendingRotation(a.scratch)
	if err != nil {
		return err
	}
	if pending != nil {
		return nil
	}
	if last, ok, err := readUint(a.scratch, lastElectionKey); err != nil {
		return err
	} else if ok && last == t.h {
		return nil
	}

	local, err := a.peers.LocalID(ctx)
	if err != nil {
		return err
	}
	known, err := a.peers.KnownPeers(ctx)
	if err != nil {
		return err
	}
	candidates := candidateSet(known, local)

	metrics.Elections.Inc()
	if err := rawdb.WriteScratch(a.scratch, lastElectionKey, t.h); err != nil {
		return err
	}
	winner, ok := election.ChooseCreator(election.EntropyFromSecret(t.beacon), candidates, a.config.Difficulty)
	if !ok {
		metrics.ElectionsVoid.Inc()
		a.log.Info("No creator elected", "height", t.h, "candidates", len(candidates))
		return nil
	}
	r := &PendingRotation{Height: t.h + a.config.RotationDelay, Winner: winner, IsLocal: winner == local}
	if err := rawdb.WriteScratch(a.scratch, rotationKey, r); err != nil {
		return err
	}
	a.log.Info("Creator elected", "winner", winner.String(), "local", r.IsLocal, "rotation", r.Height, "height", t.h)
	return nil
}

// candidateSet returns known peers followed by the local id, without
// duplicates.
func candidateSet(known []types.PeerID, local types.PeerID) []types.PeerID {
	seen := make(map[types.PeerID]struct{}, len(known)+1)
	seen[local] = struct{}{}
	out := make([]types.PeerID, 0, len(known)+1)
	for _, id := range known {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return append(out, local)
}

// fireRotation executes the scheduled rotation when its height arrives.
func (a *Agent) fireRotation(ctx context.Context, t *tick) error {
	r, err := ReadPendingRotation(a.scratch)
	if err != nil || r == nil {
		return err
	}
	switch {
	case r.Height > t.h:
		return nil
	case r.Height < t.h:
		a.log.Warn("Dropping stale key rotation", "rotation", r.Height, "height", t.h)
		return rawdb.DeleteScratch(a.scratch, rotationKey)
	}

	kr := KeyRotation{Height: r.Height, Creator: r.Winner, IsLocal: r.IsLocal}
	if r.IsLocal {
		kr.Key = a.freshEntropy(ctx)
	}
	if err := a.control.RotateKey(ctx, kr); err != nil {
		// Keep the entry; a later tick drops it as stale.
		return err
	}
	if err := a.control.RequestRestart(ctx); err != nil {
		a.log.Error("Restart request failed", "err", err)
	}
	metrics.Rotations.Inc()
	if r.IsLocal {
		a.log.Info("Key rotated", "height", t.h)
	} else {
		a.log.Info("Installed key from creator", "creator", r.Winner.String(), "height", t.h)
	}
	return rawdb.DeleteScratch(a.scratch, rotationKey)
}
