package rawdb

import (
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
)

// LevelDB defaults for a small single-node store.
const (
	DefaultCacheMB = 16
	DefaultHandles = 64
)

// LevelDB is a persistent Database backed by go-ethereum's LevelDB wrapper.
type LevelDB struct {
	db *leveldb.Database
}

// OpenLevelDB opens (or creates) the LevelDB database at path. A readonly
// database rejects writes; it is used by inspection tools.
func OpenLevelDB(path string, readonly bool) (*LevelDB, error) {
	db, err := leveldb.New(path, DefaultCacheMB, DefaultHandles, "qmc/db/", readonly)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

func (l *LevelDB) Has(key []byte) (bool, error) {
	return l.db.Has(key)
}

// Get returns ErrNotFound for missing keys so callers do not depend on the
// backend's own not-found error.
func (l *LevelDB) Get(key []byte) ([]byte, error) {
	ok, err := l.db.Has(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return l.db.Get(key)
}

func (l *LevelDB) Put(key, value []byte) error { return l.db.Put(key, value) }

func (l *LevelDB) Delete(key []byte) error { return l.db.Delete(key) }

func (l *LevelDB) Close() error { return l.db.Close() }

func (l *LevelDB) NewBatch() Batch { return l.db.NewBatch() }

func (l *LevelDB) NewIterator(prefix []byte) Iterator {
	return l.db.NewIterator(prefix, nil)
}
