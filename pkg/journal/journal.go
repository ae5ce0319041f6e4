package journal

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/valyala/bytebufferpool"

	"rolloutdb/pkg/logger"
	"rolloutdb/pkg/models"
)

// Write-only audit journal of formed batches. The core never reads it back;
// it exists for offline inspection and export (see cmd/inspect). Queue
// durability stays out of scope.

var db *pebble.DB

// Open opens (or creates) the journal database at path and keeps a global
// handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_journal", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("journal_open_failed", "path", path, "error", err)
		return err
	}
	return nil
}

// Close closes the journal if open.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	return nil
}

// Ready reports whether the journal is open.
func Ready() bool { return db != nil }

// Key returns the journal key for a step. Zero-padded so lexicographic
// iteration follows step order.
func Key(step int64) []byte {
	return []byte(fmt.Sprintf("batch:%020d", step))
}

// Append records a formed batch under its step key.
func Append(b models.Batch) error {
	if db == nil {
		return fmt.Errorf("journal not opened; call journal.Open first")
	}
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)
	if err := json.NewEncoder(bb).Encode(b); err != nil {
		return err
	}
	if err := db.Set(Key(b.Step), bb.B, pebble.Sync); err != nil {
		logger.Error("journal_append_failed", "step", b.Step, "error", err)
		return err
	}
	return nil
}

// Get returns the recorded batch for a step.
func Get(step int64) (models.Batch, error) {
	var b models.Batch
	if db == nil {
		return b, fmt.Errorf("journal not opened; call journal.Open first")
	}
	val, closer, err := db.Get(Key(step))
	if err != nil {
		return b, err
	}
	defer closer.Close()
	err = json.Unmarshal(val, &b)
	return b, err
}

// Walk iterates recorded batches in step order, stopping early if fn
// returns false.
func Walk(fn func(models.Batch) bool) error {
	if db == nil {
		return fmt.Errorf("journal not opened; call journal.Open first")
	}
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("batch:"),
		UpperBound: []byte("batch;"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		var b models.Batch
		if err := json.Unmarshal(iter.Value(), &b); err != nil {
			return err
		}
		if !fn(b) {
			break
		}
	}
	return iter.Error()
}
