package rawdb

import (
	"encoding/binary"

	"github.com/quantum-metachain/qmc/core/types"
)

// Key prefixes for the database schema.
var (
	campaignPrefix    = []byte("c") // c + target (8 bytes BE) -> Campaign RLP
	participantPrefix = []byte("p") // p + target (8 bytes BE) + peer id -> Participant RLP
	scratchPrefix     = []byte("s") // s + name -> agent bookkeeping record
	headHeightKey     = []byte("h") // -> last processed height (8 bytes BE)
)

// encodeHeight encodes a height as an 8-byte big-endian value so keys sort
// in height order.
func encodeHeight(h uint64) []byte {
	enc := make([]byte, 8)
	binary.BigEndian.PutUint64(enc, h)
	return enc
}

// prefixed builds prefix||parts into a fresh slice. The package level
// prefixes are never appended to in place.
func prefixed(prefix []byte, parts ...[]byte) []byte {
	n := len(prefix)
	for _, p := range parts {
		n += len(p)
	}
	key := make([]byte, 0, n)
	key = append(key, prefix...)
	for _, p := range parts {
		key = append(key, p...)
	}
	return key
}

// campaignKey = campaignPrefix + target
func campaignKey(target uint64) []byte {
	return prefixed(campaignPrefix, encodeHeight(target))
}

// participantKey = participantPrefix + target + peer id
func participantKey(target uint64, id types.PeerID) []byte {
	return prefixed(participantPrefix, encodeHeight(target), id[:])
}

// participantsPrefix = participantPrefix + target
func participantsPrefix(target uint64) []byte {
	return prefixed(participantPrefix, encodeHeight(target))
}

// scratchKey = scratchPrefix + name
func scratchKey(name []byte) []byte {
	return prefixed(scratchPrefix, name)
}
