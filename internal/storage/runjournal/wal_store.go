// Package runjournal keeps an append-only audit trail of bookkeeping runs.
package runjournal

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/vadiminshakov/finbook/internal/domain"
)

const (
	defaultJournalDir   = "./wal/runs"
	journalSegmentLimit = 1000
	journalMaxSegments  = 100
	runKeyPrefix        = "run_"
)

// ErrNotInitialized is returned by methods called on a nil or closed store.
var ErrNotInitialized = errors.New("run journal is not initialized")

// WALStore persists run records in a WAL so the webhook server can stream them.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore opens (or creates) the journal under dir.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultJournalDir
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           "runs_",
		SegmentThreshold: journalSegmentLimit,
		MaxSegments:      journalMaxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init run journal WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Save appends a run record.
func (s *WALStore) Save(record domain.RunRecord) error {
	if s == nil || s.wal == nil {
		return ErrNotInitialized
	}
	if record.ID == "" {
		return fmt.Errorf("run record id is required")
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "marshal run record")
	}

	key := runKeyPrefix + string(record.Kind) + "_" + record.ID

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Write(s.wal.CurrentIndex()+1, key, payload)
}

// RecordsAfter returns all run records written after the provided WAL index.
func (s *WALStore) RecordsAfter(index uint64) ([]domain.RunRecordEntry, error) {
	if s == nil || s.wal == nil {
		return nil, ErrNotInitialized
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]domain.RunRecordEntry, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, runKeyPrefix) {
			continue
		}
		var record domain.RunRecord
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, errors.Wrap(err, "decode run record")
		}
		records = append(records, domain.RunRecordEntry{Index: idx, Record: record})
	}

	return records, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return ErrNotInitialized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.wal.Close()
	s.wal = nil
	return err
}
