package rawdb

import (
	"encoding/binary"
	"errors"
	"fmt"

	gethrlp "github.com/ethereum/go-ethereum/rlp"

	"github.com/quantum-metachain/qmc/core/types"
)

// --- Campaign Accessors ---

// ReadCampaign retrieves the campaign for the given target height. It
// returns ErrNotFound when no campaign exists.
func ReadCampaign(db KeyValueReader, target uint64) (*types.Campaign, error) {
	data, err := db.Get(campaignKey(target))
	if err != nil {
		return nil, err
	}
	c := new(types.Campaign)
	if err := gethrlp.DecodeBytes(data, c); err != nil {
		return nil, fmt.Errorf("rawdb: decode campaign %d: %w", target, err)
	}
	return c, nil
}

// WriteCampaign stores the RLP encoding of c under its target height.
func WriteCampaign(db KeyValueWriter, c *types.Campaign) error {
	data, err := gethrlp.EncodeToBytes(c)
	if err != nil {
		return fmt.Errorf("rawdb: encode campaign %d: %w", c.TargetHeight, err)
	}
	return db.Put(campaignKey(c.TargetHeight), data)
}

// HasCampaign checks if a campaign exists for the target height.
func HasCampaign(db KeyValueReader, target uint64) (bool, error) {
	return db.Has(campaignKey(target))
}

// ReadAllCampaigns returns every stored campaign in ascending target order.
func ReadAllCampaigns(db Iteratee) ([]*types.Campaign, error) {
	it := db.NewIterator(campaignPrefix)
	defer it.Release()

	var out []*types.Campaign
	for it.Next() {
		if len(it.Key()) != len(campaignPrefix)+8 {
			continue
		}
		c := new(types.Campaign)
		if err := gethrlp.DecodeBytes(it.Value(), c); err != nil {
			return nil, fmt.Errorf("rawdb: decode campaign: %w", err)
		}
		out = append(out, c)
	}
	return out, it.Error()
}

// --- Participant Accessors ---

// ParticipantEntry pairs a participant record with its peer id.
type ParticipantEntry struct {
	ID types.PeerID
	*types.Participant
}

// ReadParticipant retrieves a participant of the campaign at target.
func ReadParticipant(db KeyValueReader, target uint64, id types.PeerID) (*types.Participant, error) {
	data, err := db.Get(participantKey(target, id))
	if err != nil {
		return nil, err
	}
	p := new(types.Participant)
	if err := gethrlp.DecodeBytes(data, p); err != nil {
		return nil, fmt.Errorf("rawdb: decode participant %d/%s: %w", target, id, err)
	}
	return p, nil
}

// WriteParticipant stores a participant of the campaign at target.
func WriteParticipant(db KeyValueWriter, target uint64, id types.PeerID, p *types.Participant) error {
	data, err := gethrlp.EncodeToBytes(p)
	if err != nil {
		return fmt.Errorf("rawdb: encode participant %d/%s: %w", target, id, err)
	}
	return db.Put(participantKey(target, id), data)
}

// HasParticipant checks if id has committed to the campaign at target.
func HasParticipant(db KeyValueReader, target uint64, id types.PeerID) (bool, error) {
	return db.Has(participantKey(target, id))
}

// ReadParticipants returns all participants of the campaign at target,
// ordered by peer id.
func ReadParticipants(db Iteratee, target uint64) ([]ParticipantEntry, error) {
	prefix := participantsPrefix(target)
	it := db.NewIterator(prefix)
	defer it.Release()

	var out []ParticipantEntry
	for it.Next() {
		key := it.Key()
		if len(key) != len(prefix)+types.PeerIDLength {
			continue
		}
		var entry ParticipantEntry
		copy(entry.ID[:], key[len(prefix):])
		entry.Participant = new(types.Participant)
		if err := gethrlp.DecodeBytes(it.Value(), entry.Participant); err != nil {
			return nil, fmt.Errorf("rawdb: decode participant: %w", err)
		}
		out = append(out, entry)
	}
	return out, it.Error()
}

// --- Scratch Accessors ---

// ReadScratch decodes the scratch record stored under name into val. It
// returns ErrNotFound when the record does not exist.
func ReadScratch(db KeyValueReader, name string, val any) error {
	data, err := db.Get(scratchKey([]byte(name)))
	if err != nil {
		return err
	}
	if err := gethrlp.DecodeBytes(data, val); err != nil {
		return fmt.Errorf("rawdb: decode scratch %q: %w", name, err)
	}
	return nil
}

// WriteScratch stores the RLP encoding of val under name.
func WriteScratch(db KeyValueWriter, name string, val any) error {
	data, err := gethrlp.EncodeToBytes(val)
	if err != nil {
		return fmt.Errorf("rawdb: encode scratch %q: %w", name, err)
	}
	return db.Put(scratchKey([]byte(name)), data)
}

// DeleteScratch removes the scratch record stored under name.
func DeleteScratch(db KeyValueWriter, name string) error {
	return db.Delete(scratchKey([]byte(name)))
}

// --- Head Accessors ---

// ReadHeadHeight returns the last processed height, or 0 if none was stored.
func ReadHeadHeight(db KeyValueReader) (uint64, error) {
	data, err := db.Get(headHeightKey)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("rawdb: corrupt head height (%d bytes)", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

// WriteHeadHeight stores the last processed height.
func WriteHeadHeight(db KeyValueWriter, h uint64) error {
	return db.Put(headHeightKey, encodeHeight(h))
}
