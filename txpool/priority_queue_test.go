package txpool

import (
	"testing"

	"github.com/quantum-metachain/qmc/randao"
)

func TestCommandQueueOrdering(t *testing.T) {
	q := newCommandQueue()
	q.push(&Entry{Tag: "a", Cmd: randao.CreateCommand{Height: 1}, Priority: 100})
	q.push(&Entry{Tag: "b", Cmd: randao.CreateCommand{Height: 2}, Priority: 200})
	q.push(&Entry{Tag: "c", Cmd: randao.CreateCommand{Height: 3}, Priority: 100})
	q.push(&Entry{Tag: "d", Cmd: randao.CreateCommand{Height: 4}, Priority: 200})

	want := []string{"b", "d", "a", "c"}
	for i, tag := range want {
		e := q.pop()
		if e == nil {
			t.Fatalf("pop %d: nil", i)
		}
		if e.Tag != tag {
			t.Errorf("pop %d: got %s, want %s", i, e.Tag, tag)
		}
		if q.has(tag) {
			t.Errorf("tag %s still indexed after pop", tag)
		}
	}
	if q.pop() != nil {
		t.Error("expected nil from empty queue")
	}
}

func TestCommandQueueHas(t *testing.T) {
	q := newCommandQueue()
	if q.has("x") {
		t.Fatal("empty queue reports tag")
	}
	q.push(&Entry{Tag: "x", Cmd: randao.CreateCommand{}})
	if !q.has("x") || q.len() != 1 {
		t.Fatalf("has=%v len=%d, want true 1", q.has("x"), q.len())
	}
}
