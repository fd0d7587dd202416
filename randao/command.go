package randao

import (
	"fmt"

	gethcommon "github.com/ethereum/go-ethereum/common"
	gethrlp "github.com/ethereum/go-ethereum/rlp"

	"github.com/quantum-metachain/qmc/core/types"
)

// CommandKind identifies a ledger command.
type CommandKind uint8

const (
	KindCreate CommandKind = iota + 1
	KindCommit
	KindReveal
)

func (k CommandKind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindCommit:
		return "commit"
	case KindReveal:
		return "reveal"
	default:
		return "unknown"
	}
}

// Command is a ledger mutation submitted through the command pool. The set
// of implementations is closed.
type Command interface {
	Kind() CommandKind
	command()
}

// CreateCommand opens a campaign for target height Height.
type CreateCommand struct {
	Height   uint64
	Balkline uint64
	Deadline uint64
}

// CommitCommand commits From to the campaign at Height.
type CommitCommand struct {
	From       types.PeerID
	Height     uint64
	Commitment gethcommon.Hash
}

// RevealCommand reveals From's secret for the campaign at Height.
type RevealCommand struct {
	From   types.PeerID
	Height uint64
	Secret uint64
}

func (CreateCommand) Kind() CommandKind { return KindCreate }
func (CommitCommand) Kind() CommandKind { return KindCommit }
func (RevealCommand) Kind() CommandKind { return KindReveal }

func (CreateCommand) command() {}
func (CommitCommand) command() {}
func (RevealCommand) command() {}

// EncodeCommand returns the RLP payload of cmd.
func EncodeCommand(cmd Command) ([]byte, error) {
	switch c := cmd.(type) {
	case CreateCommand, CommitCommand, RevealCommand:
		return gethrlp.EncodeToBytes(c)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
}

// Dispatch applies cmd to the ledger at height h.
func (l *Ledger) Dispatch(h uint64, cmd Command) error {
	switch c := cmd.(type) {
	case CreateCommand:
		return l.Create(h, c.Height, c.Balkline, c.Deadline)
	case CommitCommand:
		return l.Commit(h, c.From, c.Height, c.Commitment)
	case RevealCommand:
		return l.Reveal(h, c.From, c.Height, c.Secret)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
}
