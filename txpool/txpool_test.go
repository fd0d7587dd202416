package txpool

import (
	"errors"
	"sync"
	"testing"

	"github.com/quantum-metachain/qmc/core/rawdb"
	"github.com/quantum-metachain/qmc/core/types"
	"github.com/quantum-metachain/qmc/crypto"
	"github.com/quantum-metachain/qmc/log"
	"github.com/quantum-metachain/qmc/randao"
)

var testPeer = types.MustPeerID("12D3KooWHg3Xq65A8MpywPGsTgLhHQqfo9kBhibXouSzgJzCmhic")

// recordingDispatcher records dispatched commands and fails those listed
// in reject.
type recordingDispatcher struct {
	mu      sync.Mutex
	applied []randao.Command
	heights []uint64
	reject  map[randao.CommandKind]error
}

func (d *recordingDispatcher) Dispatch(h uint64, cmd randao.Command) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.reject[cmd.Kind()]; err != nil {
		return err
	}
	d.applied = append(d.applied, cmd)
	d.heights = append(d.heights, h)
	return nil
}

func newTestPool(d Dispatcher) *Pool {
	return New(DefaultConfig(), d, log.Discard())
}

func TestPoolSubmitDuplicate(t *testing.T) {
	pool := newTestPool(&recordingDispatcher{})
	cmd := randao.CreateCommand{Height: 11, Balkline: 8, Deadline: 4}
	if err := pool.Submit(cmd, 1); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	err := pool.Submit(cmd, 1)
	if !errors.Is(err, ErrAlreadyKnown) {
		t.Fatalf("duplicate: got %v, want ErrAlreadyKnown", err)
	}
	if !errors.Is(err, ErrSubmissionRejected) {
		t.Fatalf("duplicate does not wrap ErrSubmissionRejected: %v", err)
	}
	if err := pool.Submit(randao.CreateCommand{Height: 12, Balkline: 8, Deadline: 4}, 1); err != nil {
		t.Fatalf("distinct command: %v", err)
	}
	if got := pool.Pending(); got != 2 {
		t.Fatalf("Pending = %d, want 2", got)
	}
}

func TestPoolResubmitAfterApply(t *testing.T) {
	d := &recordingDispatcher{}
	pool := newTestPool(d)
	cmd := randao.CreateCommand{Height: 11, Balkline: 8, Deadline: 4}
	if err := pool.Submit(cmd, 1); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	pool.Apply(2)
	if err := pool.Submit(cmd, 2); err != nil {
		t.Fatalf("resubmit after apply: %v", err)
	}
}

func TestPoolFull(t *testing.T) {
	pool := New(Config{MaxSize: 2, Priority: DefaultPriority, Longevity: DefaultLongevity}, &recordingDispatcher{}, log.Discard())
	for i := uint64(0); i < 2; i++ {
		if err := pool.Submit(randao.CreateCommand{Height: 20 + i, Balkline: 8, Deadline: 4}, 1); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}
	err := pool.Submit(randao.CreateCommand{Height: 30, Balkline: 8, Deadline: 4}, 1)
	if !errors.Is(err, ErrPoolFull) || !errors.Is(err, ErrSubmissionRejected) {
		t.Fatalf("got %v, want ErrPoolFull", err)
	}
}

func TestPoolApplyOrderAndHeight(t *testing.T) {
	d := &recordingDispatcher{}
	pool := newTestPool(d)
	cmds := []randao.Command{
		randao.CreateCommand{Height: 11, Balkline: 8, Deadline: 4},
		randao.CommitCommand{From: testPeer, Height: 11, Commitment: crypto.HashSecret(1)},
		randao.RevealCommand{From: testPeer, Height: 11, Secret: 1},
	}
	for _, cmd := range cmds {
		if err := pool.Submit(cmd, 5); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	receipts := pool.Apply(6)
	if len(receipts) != 3 {
		t.Fatalf("receipts = %d, want 3", len(receipts))
	}
	for i, cmd := range cmds {
		if d.applied[i].Kind() != cmd.Kind() {
			t.Fatalf("applied[%d] = %v, want %v", i, d.applied[i].Kind(), cmd.Kind())
		}
		if d.heights[i] != 6 {
			t.Fatalf("applied[%d] at %d, want 6", i, d.heights[i])
		}
		if receipts[i].Err != nil {
			t.Fatalf("receipt %d: %v", i, receipts[i].Err)
		}
	}
	if pool.Pending() != 0 {
		t.Fatalf("Pending = %d after Apply", pool.Pending())
	}
}

func TestPoolExpiry(t *testing.T) {
	d := &recordingDispatcher{}
	pool := newTestPool(d)
	if err := pool.Submit(randao.CreateCommand{Height: 20, Balkline: 8, Deadline: 4}, 1); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	// Valid while current <= 1 + longevity.
	receipts := pool.Apply(1 + DefaultLongevity + 1)
	if len(receipts) != 1 || !errors.Is(receipts[0].Err, ErrExpired) {
		t.Fatalf("receipts = %+v, want one ErrExpired", receipts)
	}
	if len(d.applied) != 0 {
		t.Fatal("expired command was dispatched")
	}

	if err := pool.Submit(randao.CreateCommand{Height: 20, Balkline: 8, Deadline: 4}, 1); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	receipts = pool.Apply(1 + DefaultLongevity)
	if receipts[0].Err != nil {
		t.Fatalf("command at last valid height: %v", receipts[0].Err)
	}
}

func TestPoolRejectionsRecorded(t *testing.T) {
	d := &recordingDispatcher{reject: map[randao.CommandKind]error{randao.KindReveal: randao.ErrTimeLineRevealPhase}}
	pool := newTestPool(d)
	_ = pool.Submit(randao.RevealCommand{From: testPeer, Height: 11, Secret: 1}, 3)
	_ = pool.Submit(randao.CreateCommand{Height: 20, Balkline: 8, Deadline: 4}, 3)

	receipts := pool.Apply(4)
	if len(receipts) != 2 {
		t.Fatalf("receipts = %d, want 2", len(receipts))
	}
	if !errors.Is(receipts[0].Err, randao.ErrTimeLineRevealPhase) {
		t.Fatalf("reveal receipt = %v, want ErrTimeLineRevealPhase", receipts[0].Err)
	}
	if receipts[1].Err != nil {
		t.Fatalf("create receipt = %v, want nil", receipts[1].Err)
	}
	// Nothing is retried.
	if n := pool.Pending(); n != 0 {
		t.Fatalf("Pending after Apply = %d, want 0", n)
	}
	if got := pool.Apply(5); len(got) != 0 {
		t.Fatalf("second Apply returned %d receipts", len(got))
	}
}

func TestPoolAgainstLedger(t *testing.T) {
	ledger := randao.NewLedger(rawdb.NewMemoryDB(), log.Discard())
	pool := newTestPool(ledger)

	steps := []struct {
		submitAt uint64
		cmd      randao.Command
	}{
		{1, randao.CreateCommand{Height: 11, Balkline: 8, Deadline: 4}},
		{3, randao.CommitCommand{From: testPeer, Height: 11, Commitment: crypto.HashSecret(77)}},
		{8, randao.RevealCommand{From: testPeer, Height: 11, Secret: 77}},
	}
	for _, s := range steps {
		if err := pool.Submit(s.cmd, s.submitAt); err != nil {
			t.Fatalf("Submit: %v", err)
		}
		for _, r := range pool.Apply(s.submitAt + 1) {
			if r.Err != nil {
				t.Fatalf("%s at %d: %v", r.Kind, r.Height, r.Err)
			}
		}
	}
	secret, err := ledger.GetSecret(11, 11)
	if err != nil || secret != 77 {
		t.Fatalf("GetSecret = %d, %v; want 77", secret, err)
	}
}

func TestTagFormat(t *testing.T) {
	tag, err := Tag(randao.CreateCommand{Height: 11, Balkline: 8, Deadline: 4})
	if err != nil {
		t.Fatalf("Tag: %v", err)
	}
	const prefix = "randao/create/0x"
	if len(tag) != len(prefix)+64 || tag[:len(prefix)] != prefix {
		t.Fatalf("tag = %q", tag)
	}
	if err := newTestPool(&recordingDispatcher{}).Submit(nil, 1); !errors.Is(err, ErrNilCommand) {
		t.Fatalf("nil: got %v, want ErrNilCommand", err)
	}
}
