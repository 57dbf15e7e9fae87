package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/tendermint/tendermint/crypto/tmhash"
	dbm "github.com/tendermint/tm-db"
)

var (
	errKeyEmpty   = errors.New("key cannot be empty")
	errValueNil   = errors.New("value cannot be nil")
	errStoreEmpty = errors.New("store has no parent")
)

// KVStore is the subset of dbm.DB the state machine reads and writes. The
// committed database and every CacheStore layered over it satisfy it.
type KVStore interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Set(key, value []byte) error
	Delete(key []byte) error
}

var _ KVStore = dbm.DB(nil)

type batcher interface {
	NewBatch() dbm.Batch
}

type cValue struct {
	value   []byte
	deleted bool
}

/*
CacheStore buffers writes on top of a parent KVStore.

Reads fall through to the parent for keys that were not written. Nothing
reaches the parent until Write is called; Discard drops every buffered write.
One CacheStore per transaction gives commit-or-revert semantics, one per block
collects the writes that Commit flushes to disk.

CacheStore is not safe for concurrent use.
*/
type CacheStore struct {
	parent KVStore
	cache  map[string]cValue
}

var _ KVStore = (*CacheStore)(nil)

// NewCacheStore returns an empty cache over parent.
func NewCacheStore(parent KVStore) *CacheStore {
	return &CacheStore{
		parent: parent,
		cache:  make(map[string]cValue),
	}
}

// Get implements KVStore.
func (cs *CacheStore) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, errKeyEmpty
	}
	if cv, ok := cs.cache[string(key)]; ok {
		if cv.deleted {
			return nil, nil
		}
		return copyBytes(cv.value), nil
	}
	if cs.parent == nil {
		return nil, errStoreEmpty
	}
	return cs.parent.Get(key)
}

// Has implements KVStore.
func (cs *CacheStore) Has(key []byte) (bool, error) {
	bz, err := cs.Get(key)
	if err != nil {
		return false, err
	}
	return bz != nil, nil
}

// Set implements KVStore.
func (cs *CacheStore) Set(key, value []byte) error {
	if len(key) == 0 {
		return errKeyEmpty
	}
	if value == nil {
		return errValueNil
	}
	cs.cache[string(key)] = cValue{value: copyBytes(value)}
	return nil
}

// Delete implements KVStore.
func (cs *CacheStore) Delete(key []byte) error {
	if len(key) == 0 {
		return errKeyEmpty
	}
	cs.cache[string(key)] = cValue{deleted: true}
	return nil
}

// Len returns the number of buffered writes.
func (cs *CacheStore) Len() int {
	return len(cs.cache)
}

// Write flushes the buffered writes to the parent in key order and resets the
// cache. When the parent is a dbm.DB the writes go through a single batch.
func (cs *CacheStore) Write() error {
	if cs.parent == nil {
		return errStoreEmpty
	}
	keys := cs.sortedKeys()

	if b, ok := cs.parent.(batcher); ok {
		batch := b.NewBatch()
		defer batch.Close()
		for _, k := range keys {
			cv := cs.cache[k]
			var err error
			if cv.deleted {
				err = batch.Delete([]byte(k))
			} else {
				err = batch.Set([]byte(k), cv.value)
			}
			if err != nil {
				return fmt.Errorf("batch write %X: %w", k, err)
			}
		}
		if err := batch.WriteSync(); err != nil {
			return fmt.Errorf("cannot write batch: %w", err)
		}
	} else {
		for _, k := range keys {
			cv := cs.cache[k]
			var err error
			if cv.deleted {
				err = cs.parent.Delete([]byte(k))
			} else {
				err = cs.parent.Set([]byte(k), cv.value)
			}
			if err != nil {
				return fmt.Errorf("write %X: %w", k, err)
			}
		}
	}

	cs.Discard()
	return nil
}

// Discard drops every buffered write.
func (cs *CacheStore) Discard() {
	cs.cache = make(map[string]cValue)
}

// Hash returns a digest of the buffered writes. It is deterministic: equal
// sets of writes hash equally regardless of the order they were made in.
func (cs *CacheStore) Hash() []byte {
	hasher := tmhash.New()
	for _, k := range cs.sortedKeys() {
		cv := cs.cache[k]
		hasher.Write([]byte(k))
		if cv.deleted {
			hasher.Write([]byte{0})
			continue
		}
		hasher.Write([]byte{1})
		hasher.Write(tmhash.Sum(cv.value))
	}
	return hasher.Sum(nil)
}

func (cs *CacheStore) sortedKeys() []string {
	keys := make([]string, 0, len(cs.cache))
	for k := range cs.cache {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

//-----------------------------------------------------------------------------

// GetJSON loads the value at key into ptr. It reports false when the key is
// absent, leaving ptr untouched.
func GetJSON(s KVStore, key []byte, ptr interface{}) (bool, error) {
	bz, err := s.Get(key)
	if err != nil {
		return false, err
	}
	if len(bz) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(bz, ptr); err != nil {
		return false, fmt.Errorf("unmarshal %X: %w", key, err)
	}
	return true, nil
}

// SetJSON stores v at key as JSON.
func SetJSON(s KVStore, key []byte, v interface{}) error {
	bz, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %X: %w", key, err)
	}
	return s.Set(key, bz)
}

// GetUint64 loads a big-endian uint64. Absent keys read as zero.
func GetUint64(s KVStore, key []byte) (uint64, error) {
	bz, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	if len(bz) == 0 {
		return 0, nil
	}
	if len(bz) != 8 {
		return 0, fmt.Errorf("corrupted uint64 at %X: %d bytes", key, len(bz))
	}
	return binary.BigEndian.Uint64(bz), nil
}

// SetUint64 stores v big-endian, deleting the key when v is zero.
func SetUint64(s KVStore, key []byte, v uint64) error {
	if v == 0 {
		return s.Delete(key)
	}
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, v)
	return s.Set(key, bz)
}

func copyBytes(bz []byte) []byte {
	if bz == nil {
		return nil
	}
	cp := make([]byte, len(bz))
	copy(cp, bz)
	return cp
}
