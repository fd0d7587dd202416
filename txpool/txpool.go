// Package txpool holds ledger commands between submission and application.
// Commands are unsigned: any node may submit them and the ledger validates
// each one against the height at which it is applied. The pool only
// de-duplicates, orders and expires them.
package txpool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/quantum-metachain/qmc/crypto"
	"github.com/quantum-metachain/qmc/log"
	"github.com/quantum-metachain/qmc/metrics"
	"github.com/quantum-metachain/qmc/randao"
)

// Pool constants.
const (
	// TagPrefix prefixes every de-duplication key.
	TagPrefix = "randao"

	// DefaultPriority is the priority assigned to beacon commands.
	DefaultPriority = 100

	// DefaultLongevity is the number of heights a command stays valid
	// after submission.
	DefaultLongevity = 3

	// MaxPoolSize is the maximum number of pending commands.
	MaxPoolSize = 4096
)

var (
	ErrSubmissionRejected = errors.New("txpool: submission rejected")
	ErrAlreadyKnown       = fmt.Errorf("%w: already known", ErrSubmissionRejected)
	ErrPoolFull           = fmt.Errorf("%w: pool is full", ErrSubmissionRejected)
	ErrExpired            = fmt.Errorf("%w: command expired", ErrSubmissionRejected)
	ErrNilCommand         = fmt.Errorf("%w: nil command", ErrSubmissionRejected)
)

// Config holds Pool configuration.
type Config struct {
	MaxSize   int    // maximum number of pending commands
	Priority  uint64 // priority given to submitted commands
	Longevity uint64 // heights a command remains valid after submission
}

// DefaultConfig returns the pool defaults.
func DefaultConfig() Config {
	return Config{
		MaxSize:   MaxPoolSize,
		Priority:  DefaultPriority,
		Longevity: DefaultLongevity,
	}
}

// Dispatcher applies a command at a height. The randao ledger implements it.
type Dispatcher interface {
	Dispatch(h uint64, cmd randao.Command) error
}

// Receipt records the outcome of applying one command.
type Receipt struct {
	Tag    string
	Kind   randao.CommandKind
	Height uint64
	Err    error
}

// Pool is a de-duplicating queue of ledger commands. All methods are safe
// for concurrent use.
type Pool struct {
	mu     sync.Mutex
	config Config
	target Dispatcher
	queue  *commandQueue
	log    *log.Logger
}

// New creates a pool that applies commands to target.
func New(config Config, target Dispatcher, logger *log.Logger) *Pool {
	if config.MaxSize <= 0 {
		config.MaxSize = MaxPoolSize
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Pool{
		config: config,
		target: target,
		queue:  newCommandQueue(),
		log:    logger.Module("txpool"),
	}
}

// Tag returns the de-duplication key of cmd:
// "randao/<kind>/" followed by the hex BLAKE2b-256 of its RLP payload.
func Tag(cmd randao.Command) (string, error) {
	payload, err := randao.EncodeCommand(cmd)
	if err != nil {
		return "", err
	}
	return TagPrefix + "/" + cmd.Kind().String() + "/" + crypto.Blake2b256(payload).Hex(), nil
}

// Submit queues cmd, submitted at height h.
func (p *Pool) Submit(cmd randao.Command, h uint64) error {
	if cmd == nil {
		return ErrNilCommand
	}
	tag, err := Tag(cmd)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSubmissionRejected, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.queue.has(tag) {
		metrics.PoolRejected.Inc()
		return ErrAlreadyKnown
	}
	if p.queue.len() >= p.config.MaxSize {
		metrics.PoolRejected.Inc()
		return ErrPoolFull
	}
	p.queue.push(&Entry{
		Tag:       tag,
		Cmd:       cmd,
		Priority:  p.config.Priority,
		Submitted: h,
		ValidTill: h + p.config.Longevity,
	})
	metrics.PoolPending.Set(int64(p.queue.len()))
	p.log.Debug("Command submitted", "kind", cmd.Kind().String(), "height", h, "tag", tag)
	return nil
}

// Apply drains the pool and dispatches every still valid command at height
// h. Rejected and expired commands are dropped; nothing is retried.
//
// The pool is empty after every Apply, so an entry lives for at most one
// height when Apply runs at every height. ValidTill and the tag index only
// matter for entries that wait longer, because heights were skipped or the
// caller submits ahead of its own Apply. Submitters that need a command to
// land watch the ledger and submit again.
func (p *Pool) Apply(h uint64) []Receipt {
	p.mu.Lock()
	var entries []*Entry
	for e := p.queue.pop(); e != nil; e = p.queue.pop() {
		entries = append(entries, e)
	}
	metrics.PoolPending.Set(0)
	p.mu.Unlock()

	receipts := make([]Receipt, 0, len(entries))
	for _, e := range entries {
		r := Receipt{Tag: e.Tag, Kind: e.Cmd.Kind(), Height: h}
		if h > e.ValidTill {
			r.Err = ErrExpired
			metrics.PoolExpired.Inc()
		} else if err := p.target.Dispatch(h, e.Cmd); err != nil {
			r.Err = err
			metrics.PoolRejected.Inc()
		} else {
			metrics.PoolApplied.Inc()
		}
		if r.Err != nil {
			p.log.Debug("Command dropped", "kind", r.Kind.String(), "height", h, "err", r.Err)
		}
		receipts = append(receipts, r)
	}
	return receipts
}

// Pending returns the number of queued commands.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.len()
}
