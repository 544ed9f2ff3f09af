// Package cache provides in-process verdict stores.
package cache

import (
	"container/list"
	"context"
	"hash/maphash"
	"sync"
	"time"

	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/internal/domain/valueobject"
)

const memoryShards = 64 // power of two

type memoryEntry struct {
	key   string
	entry model.CacheEntry
}

type memoryShard struct {
	sync.RWMutex
	items    map[string]*list.Element
	lruList  *list.List
	capacity int
}

// MemoryStore is a sharded LRU verdict store. Entries leave on expiry or
// when their shard is full.
type MemoryStore struct {
	shards [memoryShards]*memoryShard
	seed   maphash.Seed
	now    func() time.Time
}

// NewMemoryStore creates a store holding roughly capacity entries.
func NewMemoryStore(capacity int) *MemoryStore {
	s := &MemoryStore{seed: maphash.MakeSeed(), now: time.Now}
	shardCap := capacity / memoryShards
	if shardCap < 1 {
		shardCap = 1
	}
	for i := range s.shards {
		s.shards[i] = &memoryShard{
			items:    make(map[string]*list.Element),
			lruList:  list.New(),
			capacity: shardCap,
		}
	}
	return s
}

func (s *MemoryStore) shard(key string) *memoryShard {
	return s.shards[maphash.String(s.seed, key)&(memoryShards-1)]
}

// Get returns the live entry for fp. An expired entry is dropped and
// reported as a miss.
func (s *MemoryStore) Get(_ context.Context, fp valueobject.Fingerprint) (*model.CacheEntry, error) {
	key := fp.String()
	sh := s.shard(key)

	sh.Lock()
	defer sh.Unlock()
	el, ok := sh.items[key]
	if !ok {
		return nil, nil
	}
	me := el.Value.(*memoryEntry)
	if me.entry.Expired(s.now()) {
		sh.lruList.Remove(el)
		delete(sh.items, key)
		return nil, nil
	}
	sh.lruList.MoveToFront(el)
	e := me.entry
	return &e, nil
}

// Put stores entry, evicting the shard's least recently used entry when full.
func (s *MemoryStore) Put(_ context.Context, entry model.CacheEntry) error {
	key := entry.Fingerprint.String()
	sh := s.shard(key)

	sh.Lock()
	defer sh.Unlock()
	if el, ok := sh.items[key]; ok {
		el.Value.(*memoryEntry).entry = entry
		sh.lruList.MoveToFront(el)
		return nil
	}
	if sh.lruList.Len() >= sh.capacity {
		if oldest := sh.lruList.Back(); oldest != nil {
			sh.lruList.Remove(oldest)
			delete(sh.items, oldest.Value.(*memoryEntry).key)
		}
	}
	sh.items[key] = sh.lruList.PushFront(&memoryEntry{key: key, entry: entry})
	return nil
}

// Delete removes the entries for fps.
func (s *MemoryStore) Delete(_ context.Context, fps ...valueobject.Fingerprint) error {
	for _, fp := range fps {
		key := fp.String()
		sh := s.shard(key)
		sh.Lock()
		if el, ok := sh.items[key]; ok {
			sh.lruList.Remove(el)
			delete(sh.items, key)
		}
		sh.Unlock()
	}
	return nil
}

// PurgeExpired drops every entry expired at now.
func (s *MemoryStore) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, sh := range s.shards {
		sh.Lock()
		for e := sh.lruList.Front(); e != nil; {
			next := e.Next()
			me := e.Value.(*memoryEntry)
			if me.entry.Expired(now) {
				sh.lruList.Remove(e)
				delete(sh.items, me.key)
				n++
			}
			e = next
		}
		sh.Unlock()
	}
	return n, nil
}

// Len returns the number of entries held, expired or not.
func (s *MemoryStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.RLock()
		n += sh.lruList.Len()
		sh.RUnlock()
	}
	return n
}
