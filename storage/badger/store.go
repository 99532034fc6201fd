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


package badger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/ragchat/core"
	"github.com/poiesic/ragchat/storage"
)

// maxConflictRetries bounds how often an upsert is replayed after a
// transaction conflict.
const maxConflictRetries = 32

// Store is a durable storage.VectorStore backed by BadgerDB.
//
// Each collection has a metadata key holding its dimension and one key per
// record. A badger sequence assigns insertion order.
type Store struct {
	backend     *Backend
	seq         *badger.Sequence
	ownsBackend bool
}

var _ storage.VectorStore = (*Store)(nil)

// NewStore opens (or creates) a BadgerDB vector store in the directory at path.
func NewStore(path string) (storage.VectorStore, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	store, err := newStore(backend, true)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return store, nil
}

// NewStoreWithBackend creates a vector store on an already open backend.
// Closing the store does not close the backend.
func NewStoreWithBackend(backend *Backend) (storage.VectorStore, error) {
	return newStore(backend, false)
}

func newStore(backend *Backend, owns bool) (*Store, error) {
	seq, err := backend.GetSequence(recordSeq)
	if err != nil {
		return nil, err
	}
	return &Store{
		backend:     backend,
		seq:         seq,
		ownsBackend: owns,
	}, nil
}

// Close releases the sequence and, when owned, the backend.
func (s *Store) Close() error {
	if s.backend.IsClosed() {
		return nil
	}
	err := s.seq.Release()
	if s.ownsBackend {
		err = errors.Join(err, s.backend.Close())
	}
	return err
}

func (s *Store) checkOpen() error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}

func (s *Store) nextSeq() (uint64, error) {
	next, err := s.seq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if next == 0 {
		return s.seq.Next()
	}
	return next, nil
}

func (s *Store) EnsureCollection(ctx context.Context, name string) error {
	if err := core.ValidateCollectionName(name); err != nil {
		return err
	}
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.retryOnConflict(func() error {
		return s.backend.WithTx(func(tx *badger.Txn) error {
			info, err := readCollection(tx, name)
			if err != nil || info != nil {
				return err
			}
			if err := writeCollection(tx, &storage.CollectionInfo{Name: name, CreatedAt: time.Now().UTC()}); err != nil {
				return err
			}
			return tx.Commit()
		}, true)
	})
}

func (s *Store) Upsert(ctx context.Context, name, id, text string, vector []float32) error {
	if err := core.ValidateRecord(id, vector); err != nil {
		return err
	}
	if err := core.ValidateCollectionName(name); err != nil {
		return err
	}
	if err := s.checkOpen(); err != nil {
		return err
	}

	return s.retryOnConflict(func() error {
		return s.backend.WithTx(func(tx *badger.Txn) error {
			now := time.Now().UTC()

			info, err := readCollection(tx, name)
			if err != nil {
				return err
			}
			switch {
			case info == nil:
				info = &storage.CollectionInfo{Name: name, Dimension: len(vector), CreatedAt: now}
				if err := writeCollection(tx, info); err != nil {
					return err
				}
			case info.Dimension == 0:
				info.Dimension = len(vector)
				if err := writeCollection(tx, info); err != nil {
					return err
				}
			case info.Dimension != len(vector):
				return fmt.Errorf("%w: collection %q has dimension %d, got %d", core.ErrDimensionMismatch, name, info.Dimension, len(vector))
			}

			key := makeRecordKey(name, id)
			record := &core.VectorRecord{
				ID:         id,
				Collection: name,
				Text:       text,
				Vector:     vector,
				InsertedAt: now,
			}

			prev, err := readRecord(tx, key)
			if err != nil {
				return err
			}
			if prev != nil {
				record.Seq = prev.Seq
				record.InsertedAt = prev.InsertedAt
			} else if record.Seq, err = s.nextSeq(); err != nil {
				return err
			}

			if err := tx.Set(key, storage.MarshalVectorRecord(record)); err != nil {
				return err
			}
			return tx.Commit()
		}, true)
	})
}

func (s *Store) Search(ctx context.Context, name string, query []float32, limit int, minScore float32) ([]*core.SearchResult, error) {
	if len(query) == 0 {
		return nil, core.ErrEmptyVector
	}
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var records []*core.VectorRecord
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		info, err := readCollection(tx, name)
		if err != nil || info == nil {
			return err
		}
		if info.Dimension != 0 && info.Dimension != len(query) {
			return fmt.Errorf("%w: collection %q has dimension %d, query has %d", core.ErrDimensionMismatch, name, info.Dimension, len(query))
		}
		records, err = scanRecords(tx, name)
		return err
	}, false)
	if err != nil {
		return nil, err
	}

	return storage.Rank(records, query, limit, minScore), nil
}

func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	var exists bool
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		info, err := readCollection(tx, name)
		exists = info != nil
		return err
	}, false)
	return exists, err
}

func (s *Store) Count(ctx context.Context, name string) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	var count int
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeRecordPrefix(name)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

func (s *Store) Records(ctx context.Context, name string) ([]*core.VectorRecord, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var records []*core.VectorRecord
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		records, err = scanRecords(tx, name)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	sortBySeq(records)
	return records, nil
}

func (s *Store) Collections(ctx context.Context) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var names []string
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(collectionPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			names = append(names, string(key[len(collectionPrefix):]))
		}
		return nil
	}, false)
	return names, err
}

func (s *Store) Delete(ctx context.Context, name string, ids ...string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return s.retryOnConflict(func() error {
		return s.backend.WithTx(func(tx *badger.Txn) error {
			for _, id := range ids {
				if err := tx.Delete(makeRecordKey(name, id)); err != nil {
					return err
				}
			}
			return tx.Commit()
		}, true)
	})
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeCollectionKey(name)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return err
	}
	return s.backend.DeletePrefix(makeRecordPrefix(name))
}

func (s *Store) retryOnConflict(fn func() error) error {
	var err error
	for range maxConflictRetries {
		if err = fn(); !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
}

func readCollection(tx *badger.Txn, name string) (*storage.CollectionInfo, error) {
	item, err := tx.Get(makeCollectionKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var info *storage.CollectionInfo
	err = item.Value(func(val []byte) error {
		info, err = storage.UnmarshalCollectionInfo(val)
		return err
	})
	return info, err
}

func writeCollection(tx *badger.Txn, info *storage.CollectionInfo) error {
	return tx.Set(makeCollectionKey(info.Name), storage.MarshalCollectionInfo(info))
}

func readRecord(tx *badger.Txn, key []byte) (*core.VectorRecord, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var record *core.VectorRecord
	err = item.Value(func(val []byte) error {
		record, err = storage.UnmarshalVectorRecord(val)
		return err
	})
	return record, err
}

// scanRecords reads every record of a collection in key order.
func scanRecords(tx *badger.Txn, name string) ([]*core.VectorRecord, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeRecordPrefix(name)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var records []*core.VectorRecord
	for iter.Rewind(); iter.Valid(); iter.Next() {
		var record *core.VectorRecord
		err := iter.Item().Value(func(val []byte) error {
			var err error
			record, err = storage.UnmarshalVectorRecord(val)
			return err
		})
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func sortBySeq(records []*core.VectorRecord) {
	slices.SortFunc(records, func(a, b *core.VectorRecord) int {
		return cmp.Compare(a.Seq, b.Seq)
	})
}
