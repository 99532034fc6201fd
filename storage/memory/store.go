// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package memory provides a volatile storage.VectorStore held in process memory.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/poiesic/ragchat/core"
	"github.com/poiesic/ragchat/storage"
)

type collection struct {
	mu      sync.RWMutex
	dim     int
	records []*core.VectorRecord // insertion order
	index   map[string]int       // id -> position in records
	dropped bool                 // removed from the store; writes must go to a fresh collection
}

// Store is an in-memory vector store.
//
// Lock order is Store.mu before collection.mu. Upsert holds only
// collection.mu while writing.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
	seq         atomic.Uint64
	closed      bool
}

var _ storage.VectorStore = (*Store)(nil)

// NewStore creates an empty in-memory store.
func NewStore() storage.VectorStore {
	return newStore()
}

func newStore() *Store {
	return &Store{collections: make(map[string]*collection)}
}

func (s *Store) lookup(name string) (*collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrStorageClosed
	}
	return s.collections[name], nil
}

func (s *Store) ensure(name string) (*collection, error) {
	if err := core.ValidateCollectionName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, storage.ErrStorageClosed
	}
	c, ok := s.collections[name]
	if !ok {
		c = &collection{index: make(map[string]int)}
		s.collections[name] = c
	}
	return c, nil
}

func (s *Store) nextSeq() uint64 {
	return s.seq.Add(1)
}

// drop detaches c so that writers holding it retry against the store.
// Must be called with s.mu held.
func drop(c *collection) {
	c.mu.Lock()
	c.dropped = true
	c.mu.Unlock()
}

func (s *Store) EnsureCollection(ctx context.Context, name string) error {
	_, err := s.ensure(name)
	return err
}

func (s *Store) Upsert(ctx context.Context, name, id, text string, vector []float32) error {
	if err := core.ValidateRecord(id, vector); err != nil {
		return err
	}
	for {
		c, err := s.ensure(name)
		if err != nil {
			return err
		}
		// A collection dropped after ensure returned it is no longer reachable.
		if written, err := s.put(c, name, id, text, vector); written || err != nil {
			return err
		}
	}
}

// put writes the record into c. It reports false when c has been dropped.
func (s *Store) put(c *collection, name, id, text string, vector []float32) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dropped {
		return false, nil
	}
	if c.dim == 0 {
		c.dim = len(vector)
	} else if c.dim != len(vector) {
		return false, fmt.Errorf("%w: collection %q has dimension %d, got %d", core.ErrDimensionMismatch, name, c.dim, len(vector))
	}

	record := &core.VectorRecord{
		ID:         id,
		Collection: name,
		Text:       text,
		Vector:     slices.Clone(vector),
	}

	// Records are never mutated in place so readers holding a snapshot stay consistent.
	if pos, ok := c.index[id]; ok {
		prev := c.records[pos]
		record.Seq = prev.Seq
		record.InsertedAt = prev.InsertedAt
		c.records[pos] = record
		return true, nil
	}

	record.Seq = s.nextSeq()
	record.InsertedAt = time.Now().UTC()
	c.index[id] = len(c.records)
	c.records = append(c.records, record)
	return true, nil
}

func (s *Store) snapshot(name string) (*collection, []*core.VectorRecord, error) {
	c, err := s.lookup(name)
	if err != nil || c == nil {
		return nil, nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c, slices.Clone(c.records), nil
}

func (s *Store) Search(ctx context.Context, name string, query []float32, limit int, minScore float32) ([]*core.SearchResult, error) {
	if len(query) == 0 {
		return nil, core.ErrEmptyVector
	}
	c, records, err := s.snapshot(name)
	if err != nil || c == nil {
		return nil, err
	}

	c.mu.RLock()
	dim := c.dim
	c.mu.RUnlock()
	if dim != 0 && dim != len(query) {
		return nil, fmt.Errorf("%w: collection %q has dimension %d, query has %d", core.ErrDimensionMismatch, name, dim, len(query))
	}

	return storage.Rank(records, query, limit, minScore), nil
}

func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	c, err := s.lookup(name)
	return c != nil, err
}

func (s *Store) Count(ctx context.Context, name string) (int, error) {
	_, records, err := s.snapshot(name)
	return len(records), err
}

func (s *Store) Records(ctx context.Context, name string) ([]*core.VectorRecord, error) {
	_, records, err := s.snapshot(name)
	return records, err
}

func (s *Store) Collections(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrStorageClosed
	}
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (s *Store) Delete(ctx context.Context, name string, ids ...string) error {
	c, err := s.lookup(name)
	if err != nil || c == nil || len(ids) == 0 {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	remove := make(map[string]bool, len(ids))
	for _, id := range ids {
		remove[id] = true
	}
	records := make([]*core.VectorRecord, 0, len(c.records))
	index := make(map[string]int, len(c.records))
	for _, record := range c.records {
		if remove[record.ID] {
			continue
		}
		index[record.ID] = len(records)
		records = append(records, record)
	}
	c.records, c.index = records, index
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrStorageClosed
	}
	if c, ok := s.collections[name]; ok {
		drop(c)
		delete(s.collections, name)
	}
	return nil
}

// Close discards all collections.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, c := range s.collections {
		drop(c)
	}
	s.collections = nil
	return nil
}
