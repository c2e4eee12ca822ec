// Package badger implements content storage on top of BadgerDB.
//
// Each blob is stored as one value under the key "content:<id>". This keeps
// a whole simulated disk inside a single embedded database directory, which
// is handy when the filesystem store would create too many small files.
package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/clusterfs/pkg/store/content"
)

const keyPrefix = "content:"

// BadgerContentStore implements content.ContentStore using BadgerDB.
//
// Thread Safety:
// BadgerDB transactions are safe for concurrent use.
type BadgerContentStore struct {
	db *badger.DB
}

// BadgerContentStoreConfig contains configuration for the BadgerDB store.
type BadgerContentStoreConfig struct {
	// DBPath is the directory holding the database files.
	// Ignored when InMemory is true.
	DBPath string

	// InMemory keeps the whole database in RAM (no files are written).
	InMemory bool

	// BlockCacheSizeMB is the block cache size. 0 selects 64MB.
	BlockCacheSizeMB int64
}

// NewBadgerContentStore opens (or creates) a BadgerDB content store.
func NewBadgerContentStore(ctx context.Context, config BadgerContentStoreConfig) (*BadgerContentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !config.InMemory && config.DBPath == "" {
		return nil, fmt.Errorf("badger content store: db path is required")
	}

	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(config.DBPath)
	}

	blockCacheMB := config.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}

	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)
	opts = opts.WithBlockCacheSize(blockCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	return &BadgerContentStore{db: db}, nil
}

func contentKey(id content.ContentID) []byte {
	return []byte(keyPrefix + string(id))
}

// WriteContent stores data under id, replacing any previous value.
func (s *BadgerContentStore) WriteContent(ctx context.Context, id content.ContentID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if id == "" {
		return fmt.Errorf("%w: %w", content.ErrCannotCreate, content.ErrInvalidContentID)
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(contentKey(id), data)
	})
	if err != nil {
		return fmt.Errorf("content %s: %w: %w", id, content.ErrCannotWrite, err)
	}

	return nil
}

// ReadContent returns a copy of the value stored under id.
func (s *BadgerContentStore) ReadContent(ctx context.Context, id content.ContentID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(contentKey(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return nil, fmt.Errorf("content %s: %w: %w", id, content.ErrCannotRead, err)
	}

	// ValueCopy returns nil for empty values
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// DeleteContent removes the value stored under id.
func (s *BadgerContentStore) DeleteContent(ctx context.Context, id content.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		key := contentKey(id)
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return fmt.Errorf("failed to delete content %s: %w", id, err)
	}

	return nil
}

// ListContent returns every stored id in key order.
func (s *BadgerContentStore) ListContent(ctx context.Context) ([]content.ContentID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ids []content.ContentID
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			ids = append(ids, content.ContentID(key[len(keyPrefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}

	return ids, nil
}

// Reset drops every blob.
func (s *BadgerContentStore) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.db.DropPrefix([]byte(keyPrefix)); err != nil {
		return fmt.Errorf("failed to drop content: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *BadgerContentStore) Close() error {
	return s.db.Close()
}
