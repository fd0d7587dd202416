// priority_queue.go implements the ordering of pending ledger commands:
// higher priority first, then submission order.
package txpool

import (
	"container/heap"

	"github.com/quantum-metachain/qmc/randao"
)

// Entry holds a pending command with its pool metadata.
type Entry struct {
	Tag       string // de-duplication key
	Cmd       randao.Command
	Priority  uint64
	Submitted uint64 // height at which the command was submitted
	ValidTill uint64 // last height at which the command may be applied
	seq       uint64 // submission counter, breaks priority ties
	index     int    // heap index
}

// cmdHeap is a max-heap by priority, FIFO among equal priorities.
type cmdHeap []*Entry

func (h cmdHeap) Len() int { return len(h) }

func (h cmdHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].seq < h[j].seq
}

func (h cmdHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *cmdHeap) Push(x interface{}) {
	entry := x.(*Entry)
	entry.index = len(*h)
	*h = append(*h, entry)
}

func (h *cmdHeap) Pop() interface{} {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	entry.index = -1
	*h = old[:n-1]
	return entry
}

// commandQueue wraps cmdHeap with a tag index. Not safe for concurrent use;
// Pool serializes access.
type commandQueue struct {
	h     cmdHeap
	index map[string]*Entry
	seq   uint64
}

func newCommandQueue() *commandQueue {
	return &commandQueue{index: make(map[string]*Entry)}
}

func (q *commandQueue) has(tag string) bool {
	_, ok := q.index[tag]
	return ok
}

func (q *commandQueue) push(e *Entry) {
	e.seq = q.seq
	q.seq++
	q.index[e.Tag] = e
	heap.Push(&q.h, e)
}

func (q *commandQueue) pop() *Entry {
	if len(q.h) == 0 {
		return nil
	}
	e := heap.Pop(&q.h).(*Entry)
	delete(q.index, e.Tag)
	return e
}

func (q *commandQueue) len() int { return len(q.h) }
