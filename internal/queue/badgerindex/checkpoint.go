// Package badgerindex persists an approximate per-queue checkpoint (item
// count, byte count, last-assigned xid) so a restarted broker can answer
// stats() before the journal replay — itself out of this spec's scope —
// catches up. It is a durable cache, not the source of truth.
package badgerindex

import (
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/duraqio/duraq/internal/logger"
)

// Checkpoint is the approximate state recorded for a single queue.
type Checkpoint struct {
	ItemCount int64  `json:"item_count"`
	ByteCount int64  `json:"byte_count"`
	LastXID   uint32 `json:"last_xid"`
}

// Index wraps a badger database storing one Checkpoint per queue name.
type Index struct {
	db *badger.DB
}

// Open opens (creating if necessary) a badger database at path.
func Open(path string) (*Index, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerindex: open %s: %w", path, err)
	}
	return &Index{db: db}, nil
}

// Close releases the underlying database.
func (idx *Index) Close() error {
	return idx.db.Close()
}

func queueKey(queue string) []byte {
	return append([]byte("queue/"), queue...)
}

// Put stores (overwriting) the checkpoint for queue.
func (idx *Index) Put(queue string, cp Checkpoint) error {
	encoded, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("badgerindex: encode checkpoint for %s: %w", queue, err)
	}

	return idx.db.Update(func(txn *badger.Txn) error {
		return txn.Set(queueKey(queue), encoded)
	})
}

// Get returns the checkpoint stored for queue, or (Checkpoint{}, false) if
// none has ever been recorded.
func (idx *Index) Get(queue string) (Checkpoint, bool, error) {
	var cp Checkpoint
	found := false

	err := idx.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(queueKey(queue))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &cp); err != nil {
				return err
			}
			found = true
			return nil
		})
	})
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("badgerindex: get checkpoint for %s: %w", queue, err)
	}

	return cp, found, nil
}

// All returns every checkpoint currently recorded, keyed by queue name.
// No broker component reads the index at startup; stats() is answered
// from the in-memory queue collection.
func (idx *Index) All() (map[string]Checkpoint, error) {
	out := make(map[string]Checkpoint)

	err := idx.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("queue/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			queue := string(item.Key()[len(prefix):])

			var cp Checkpoint
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &cp)
			}); err != nil {
				return fmt.Errorf("badgerindex: decode checkpoint for %s: %w", queue, err)
			}
			out[queue] = cp
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("badgerindex: loaded checkpoints", "count", len(out))
	return out, nil
}
