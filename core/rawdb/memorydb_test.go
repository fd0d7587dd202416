package rawdb

import (
	"bytes"
	"errors"
	"testing"
)

func TestMemoryDB_BasicOps(t *testing.T) {
	db := NewMemoryDB()
	if err := db.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	val, err := db.Get([]byte("k"))
	if err != nil || !bytes.Equal(val, []byte("v")) {
		t.Fatalf("Get = %q, %v; want v, nil", val, err)
	}
	// Returned slices are copies.
	val[0] = 'x'
	again, _ := db.Get([]byte("k"))
	if !bytes.Equal(again, []byte("v")) {
		t.Fatalf("stored value mutated through returned slice: %q", again)
	}
	if err := db.Delete([]byte("k")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := db.Get([]byte("k")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete err = %v, want ErrNotFound", err)
	}
}

func TestMemoryDB_BatchAtomic(t *testing.T) {
	db := NewMemoryDB()
	b := db.NewBatch()
	b.Put([]byte("a"), []byte("1"))
	b.Put([]byte("b"), []byte("2"))
	if db.Len() != 0 {
		t.Fatalf("batch writes visible before Write: len = %d", db.Len())
	}
	if err := b.Write(); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if db.Len() != 2 {
		t.Fatalf("len = %d, want 2", db.Len())
	}
	b.Reset()
	if b.ValueSize() != 0 {
		t.Fatalf("ValueSize after Reset = %d, want 0", b.ValueSize())
	}
}

func TestMemoryDB_IteratorPrefix(t *testing.T) {
	db := NewMemoryDB()
	for _, k := range []string{"p2", "p1", "q1", "p3"} {
		db.Put([]byte(k), []byte(k))
	}
	it := db.NewIterator([]byte("p"))
	defer it.Release()

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	want := []string{"p1", "p2", "p3"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys = %v, want %v", keys, want)
		}
	}
}

func TestMemoryDB_Closed(t *testing.T) {
	db := NewMemoryDB()
	db.Close()
	if err := db.Put([]byte("k"), nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("Put after close err = %v, want ErrClosed", err)
	}
}
