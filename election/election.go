// Package election selects the single peer allowed to perform the next key
// rotation. Every node evaluates the same candidate set against the same
// beacon entropy, so all honest nodes agree on the outcome without
// exchanging messages.
package election

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/quantum-metachain/qmc/core/types"
	"github.com/quantum-metachain/qmc/crypto"
)

var (
	ErrDifficultyOverflow = errors.New("election: difficulty half exceeds 128 bits")
	ErrInvalidDifficulty  = errors.New("election: invalid difficulty value")
)

// halfLen is the byte length of one difficulty half.
const halfLen = 16

// Difficulty is the 256-bit threshold a candidate's score must exceed. It is
// built from two 128-bit halves, each stored as 16 little-endian bytes, and
// compared as a big-endian integer.
type Difficulty [32]byte

// NewDifficulty builds a Difficulty from its two halves.
func NewDifficulty(first, second *uint256.Int) (Difficulty, error) {
	var d Difficulty
	if first.BitLen() > 128 || second.BitLen() > 128 {
		return d, ErrDifficultyOverflow
	}
	putHalf(d[:halfLen], first)
	putHalf(d[halfLen:], second)
	return d, nil
}

// putHalf writes the low 128 bits of v into dst in little-endian order.
func putHalf(dst []byte, v *uint256.Int) {
	be := v.Bytes32()
	for i := 0; i < halfLen; i++ {
		dst[i] = be[31-i]
	}
}

// DefaultDifficulty returns the threshold the network runs with:
// (1_000_000, 2^128-1).
func DefaultDifficulty() Difficulty {
	max128 := new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))
	d, err := NewDifficulty(uint256.NewInt(1_000_000), max128)
	if err != nil {
		panic(err)
	}
	return d
}

// ParseDifficulty builds a Difficulty from two decimal or 0x-prefixed hex
// strings.
func ParseDifficulty(first, second string) (Difficulty, error) {
	a, err := parseHalf(first)
	if err != nil {
		return Difficulty{}, err
	}
	b, err := parseHalf(second)
	if err != nil {
		return Difficulty{}, err
	}
	return NewDifficulty(a, b)
}

func parseHalf(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := uint256.FromHex(s)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidDifficulty, s, err)
		}
		return v, nil
	}
	b, ok := new(big.Int).SetString(s, 10)
	if !ok || b.Sign() < 0 {
		return nil, fmt.Errorf("%w %q", ErrInvalidDifficulty, s)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, ErrDifficultyOverflow
	}
	return v, nil
}

// Int returns the difficulty as a 256-bit integer.
func (d Difficulty) Int() *uint256.Int {
	return new(uint256.Int).SetBytes32(d[:])
}

// Hex returns the 0x-prefixed hex form of the raw difficulty bytes.
func (d Difficulty) Hex() string {
	return gethcommon.Hash(d).Hex()
}

// Score returns the value a candidate is judged by:
// BLAKE2b-256(id) XOR entropy, read as a big-endian integer.
func Score(entropy gethcommon.Hash, id types.PeerID) *uint256.Int {
	h := crypto.HashPeerID(id[:])
	for i := range h {
		h[i] ^= entropy[i]
	}
	return new(uint256.Int).SetBytes32(h[:])
}

// ChooseCreator returns the only candidate whose score exceeds d. If no
// candidate or more than one candidate qualifies there is no winner for
// this round. Duplicate candidates are counted separately.
func ChooseCreator(entropy gethcommon.Hash, candidates []types.PeerID, d Difficulty) (types.PeerID, bool) {
	threshold := d.Int()

	var (
		winner types.PeerID
		found  int
	)
	for _, id := range candidates {
		if Score(entropy, id).Gt(threshold) {
			found++
			if found > 1 {
				return types.PeerID{}, false
			}
			winner = id
		}
	}
	return winner, found == 1
}

// EntropyFromSecret maps a beacon secret to a 256-bit entropy value with the
// secret in the low 8 bytes, big-endian.
func EntropyFromSecret(secret uint64) gethcommon.Hash {
	return gethcommon.BigToHash(new(big.Int).SetUint64(secret))
}
