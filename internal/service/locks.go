package service

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// keyedLocks provides one mutex per ObjectID key. Used as the
// application-level serialization point for quota check + counter increment
// (per coach) when the store offers no multi-document transaction.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[primitive.ObjectID]*lockEntry
}

type lockEntry struct {
	sync.Mutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[primitive.ObjectID]*lockEntry)}
}

// Lock acquires the mutex for key, creating it on first use.
func (k *keyedLocks) Lock(key primitive.ObjectID) {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &lockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.Lock()
}

// Unlock releases the mutex for key and discards it once nothing is waiting.
func (k *keyedLocks) Unlock(key primitive.ObjectID) {
	k.mu.Lock()
	entry := k.locks[key]
	entry.refs--
	if entry.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	entry.Unlock()
}
