package utils

import "sync"

// KeyedLocks serializes work per (guild, user) pair. Every state transition
// for one pair runs under its lock, so a manual cancel cannot race the
// scheduler's expiry resolution for the same record.
type KeyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyedLocks() *KeyedLocks {
	return &KeyedLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for a (guild, user) pair and returns its unlock
// function.
func (k *KeyedLocks) Lock(guildID, userID string) func() {
	key := guildID + ":" + userID

	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
