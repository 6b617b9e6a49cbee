// Package syncutil provides synchronization primitives keyed by string.
package syncutil

import (
	"context"
	"hash/fnv"
)

// DefaultShards is the shard count used when none is given.
const DefaultShards = 256

// KeyedMutex serializes work per key using a fixed pool of lock shards, so
// memory stays bounded however many keys are seen. Keys that share a shard
// also share the lock. Waiters can give up when their context ends.
type KeyedMutex struct {
	shards []chan struct{}
}

// NewKeyedMutex creates a mutex pool with n shards (DefaultShards if n <= 0).
func NewKeyedMutex(n int) *KeyedMutex {
	if n <= 0 {
		n = DefaultShards
	}
	m := &KeyedMutex{shards: make([]chan struct{}, n)}
	for i := range m.shards {
		m.shards[i] = make(chan struct{}, 1)
	}
	return m
}

// LockContext acquires the lock for key. On success the caller must call the
// returned unlock function exactly once. If ctx ends first, it returns the
// context error and no lock is held.
func (m *KeyedMutex) LockContext(ctx context.Context, key string) (func(), error) {
	shard := m.shards[m.index(key)]
	select {
	case shard <- struct{}{}:
		return func() { <-shard }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *KeyedMutex) index(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(m.shards)))
}
