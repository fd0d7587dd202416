// Package crypto provides the hashing primitives used by the beacon: commitments
// to campaign secrets and peer id digests for creator election.
package crypto

import (
	"encoding/binary"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/blake2b"
)

// Blake2b256 calculates the BLAKE2b-256 hash of the concatenated data.
func Blake2b256(data ...[]byte) gethcommon.Hash {
	if len(data) == 1 {
		return gethcommon.Hash(blake2b.Sum256(data[0]))
	}
	d, _ := blake2b.New256(nil)
	for _, b := range data {
		d.Write(b)
	}
	return gethcommon.BytesToHash(d.Sum(nil))
}

// HashSecret returns the commitment for a campaign secret: the BLAKE2b-256
// hash of its 8-byte little-endian encoding.
func HashSecret(secret uint64) gethcommon.Hash {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], secret)
	return Blake2b256(buf[:])
}

// VerifySecret reports whether secret opens the given commitment.
func VerifySecret(commitment gethcommon.Hash, secret uint64) bool {
	return HashSecret(secret) == commitment
}

// HashPeerID returns the BLAKE2b-256 digest of a peer id's text bytes.
func HashPeerID(id []byte) gethcommon.Hash {
	return Blake2b256(id)
}
