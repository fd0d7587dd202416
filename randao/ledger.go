// ledger.go implements the commit-reveal campaign ledger. Campaigns are
// keyed by target height; participants commit the hash of a secret inside
// the commit window, reveal it inside the reveal window, and the XOR of all
// revealed secrets becomes the beacon secret once the target height is
// reached with quorum.
//
// All mutations run under a single writer lock and land in one database
// batch, so a rejected call never leaves partial state and two concurrent
// commits for the same participant cannot both succeed.
package randao

import (
	"errors"
	"fmt"
	"sync"

	gethcommon "github.com/ethereum/go-ethereum/common"
	gethevent "github.com/ethereum/go-ethereum/event"

	"github.com/quantum-metachain/qmc/core/rawdb"
	"github.com/quantum-metachain/qmc/core/types"
	"github.com/quantum-metachain/qmc/log"
	"github.com/quantum-metachain/qmc/metrics"
)

// Ledger owns all Campaign and Participant state.
type Ledger struct {
	mu   sync.Mutex
	db   rawdb.Database
	feed gethevent.Feed
	log  *log.Logger
}

// NewLedger creates a ledger over db. A nil logger uses the default logger.
func NewLedger(db rawdb.Database, logger *log.Logger) *Ledger {
	if logger == nil {
		logger = log.Default()
	}
	return &Ledger{db: db, log: logger.Module("randao")}
}

// SubscribeEvents registers ch to receive ledger notifications. Sends block
// until every subscriber has received the event, so ch should be buffered.
func (l *Ledger) SubscribeEvents(ch chan<- Event) gethevent.Subscription {
	return l.feed.Subscribe(ch)
}

// Create adds a campaign for target at current height h.
func (l *Ledger) Create(h, target, balkline, deadline uint64) error {
	ev, err := l.create(h, target, balkline, deadline)
	if err != nil {
		return err
	}
	metrics.CampaignsCreated.Inc()
	l.log.Info("Campaign added", "target", target, "balkline", balkline, "deadline", deadline, "height", h)
	l.feed.Send(ev)
	return nil
}

func (l *Ledger) create(h, target, balkline, deadline uint64) (Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	exists, err := rawdb.HasCampaign(l.db, target)
	if err != nil {
		return Event{}, err
	}
	if err := ValidateCreate(h, exists, target, balkline, deadline); err != nil {
		return Event{}, err
	}
	c := &types.Campaign{
		TargetHeight:   target,
		CommitBalkline: balkline,
		CommitDeadline: deadline,
	}
	batch := l.db.NewBatch()
	if err := rawdb.WriteCampaign(batch, c); err != nil {
		return Event{}, err
	}
	if err := batch.Write(); err != nil {
		return Event{}, fmt.Errorf("randao: write campaign %d: %w", target, err)
	}
	return Event{Kind: EventCampaignAdded, Height: h, Target: target, Balkline: balkline, Deadline: deadline}, nil
}

// Commit records from's commitment to the campaign at target.
func (l *Ledger) Commit(h uint64, from types.PeerID, target uint64, commitment gethcommon.Hash) error {
	ev, err := l.commit(h, from, target, commitment)
	if err != nil {
		return err
	}
	metrics.Commits.Inc()
	l.log.Info("Participant committed", "peer", from.String(), "target", target, "height", h)
	l.feed.Send(ev)
	return nil
}

func (l *Ledger) commit(h uint64, from types.PeerID, target uint64, commitment gethcommon.Hash) (Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	committed, err := rawdb.HasParticipant(l.db, target, from)
	if err != nil {
		return Event{}, err
	}
	c, err := l.readCampaign(target)
	if err != nil {
		return Event{}, err
	}
	if err := ValidateCommit(h, committed, c); err != nil {
		return Event{}, err
	}

	c.CommitCount++
	batch := l.db.NewBatch()
	if err := rawdb.WriteParticipant(batch, target, from, &types.Participant{Commitment: commitment}); err != nil {
		return Event{}, err
	}
	if err := rawdb.WriteCampaign(batch, c); err != nil {
		return Event{}, err
	}
	if err := batch.Write(); err != nil {
		return Event{}, fmt.Errorf("randao: write commit %d/%s: %w", target, from, err)
	}
	return Event{Kind: EventCommit, Height: h, Target: target, From: from, Commitment: commitment}, nil
}

// Reveal opens from's commitment for the campaign at target and folds the
// secret into the campaign secret.
func (l *Ledger) Reveal(h uint64, from types.PeerID, target uint64, secret uint64) error {
	ev, err := l.reveal(h, from, target, secret)
	if err != nil {
		return err
	}
	metrics.Reveals.Inc()
	l.log.Info("Participant revealed", "peer", from.String(), "target", target, "height", h)
	l.feed.Send(ev)
	return nil
}

func (l *Ledger) reveal(h uint64, from types.PeerID, target uint64, secret uint64) (Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, err := rawdb.ReadParticipant(l.db, target, from)
	if err != nil && !errors.Is(err, rawdb.ErrNotFound) {
		return Event{}, err
	}
	c, err := l.readCampaign(target)
	if err != nil {
		return Event{}, err
	}
	if err := ValidateReveal(h, p, c, secret); err != nil {
		return Event{}, err
	}

	c.Secret ^= secret
	c.RevealCount++
	p.Secret = secret
	p.Revealed = true

	batch := l.db.NewBatch()
	if err := rawdb.WriteParticipant(batch, target, from, p); err != nil {
		return Event{}, err
	}
	if err := rawdb.WriteCampaign(batch, c); err != nil {
		return Event{}, err
	}
	if err := batch.Write(); err != nil {
		return Event{}, fmt.Errorf("randao: write reveal %d/%s: %w", target, from, err)
	}
	return Event{Kind: EventReveal, Height: h, Target: target, From: from, Secret: secret}, nil
}

// GetSecret returns the beacon secret of the campaign at target if it is
// finalized at height h.
func (l *Ledger) GetSecret(h, target uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, err := l.readCampaign(target)
	if err != nil {
		return 0, err
	}
	if err := ValidateFinalized(h, c); err != nil {
		if errors.Is(err, ErrFailedCampaign) {
			metrics.FinalizeFailed.Inc()
		}
		return 0, err
	}
	return c.Secret, nil
}

// Campaign returns the stored campaign for target, or ErrIncorrectID.
func (l *Ledger) Campaign(target uint64) (*types.Campaign, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, err := l.readCampaign(target)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrIncorrectID
	}
	return c, nil
}

// Participant returns from's row in the campaign at target, or
// ErrIsNotAParticipant.
func (l *Ledger) Participant(target uint64, from types.PeerID) (*types.Participant, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, err := rawdb.ReadParticipant(l.db, target, from)
	if errors.Is(err, rawdb.ErrNotFound) {
		return nil, ErrIsNotAParticipant
	}
	return p, err
}

// Phase returns the phase of the campaign at target as seen from height h.
func (l *Ledger) Phase(h, target uint64) (types.Phase, error) {
	c, err := l.Campaign(target)
	if err != nil {
		return 0, err
	}
	return c.PhaseAt(h), nil
}

// Participants returns every participant of the campaign at target ordered
// by peer id, or ErrIncorrectID if the campaign does not exist.
func (l *Ledger) Participants(target uint64) ([]rawdb.ParticipantEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, err := l.readCampaign(target)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrIncorrectID
	}
	return rawdb.ReadParticipants(l.db, target)
}

// Campaigns returns all stored campaigns in ascending target order.
func (l *Ledger) Campaigns() ([]*types.Campaign, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return rawdb.ReadAllCampaigns(l.db)
}

// readCampaign returns the campaign or nil if it does not exist. Callers
// must hold l.mu.
func (l *Ledger) readCampaign(target uint64) (*types.Campaign, error) {
	c, err := rawdb.ReadCampaign(l.db, target)
	if errors.Is(err, rawdb.ErrNotFound) {
		return nil, nil
	}
	return c, err
}
