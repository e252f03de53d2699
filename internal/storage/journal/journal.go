// Package journal persists the vault event log in a write-ahead log so
// external indexers can replay every state transition in the order it
// was applied.
package journal

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/savium/savium/internal/domain"
)

const (
	segmentThreshold = 1000
	maxSegments      = 100
)

// Record is one replayed journal entry.
type Record struct {
	Index   uint64
	Kind    string
	Payload []byte
}

// Journal is a WAL-backed, append-only event log.
type Journal struct {
	mu  sync.Mutex
	wal *gowal.Wal
}

// Open creates or reopens a journal in dir.
func Open(dir string) (*Journal, error) {
	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "events_",
		SegmentThreshold: segmentThreshold,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}
	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init event journal")
	}
	return &Journal{wal: wal}, nil
}

// Append writes an event under its kind key.
func (j *Journal) Append(e domain.Event) error {
	if j == nil || j.wal == nil {
		return errors.New("journal is not initialized")
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return errors.Wrapf(err, "marshal %s event", e.Kind())
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	next := j.wal.CurrentIndex() + 1
	return j.wal.Write(next, e.Kind(), payload)
}

// Replay returns every journaled event in append order.
func (j *Journal) Replay() ([]Record, error) {
	if j == nil || j.wal == nil {
		return nil, errors.New("journal is not initialized")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	var records []Record
	var idx uint64
	for msg := range j.wal.Iterator() {
		idx++
		records = append(records, Record{Index: idx, Kind: msg.Key, Payload: msg.Value})
	}
	return records, nil
}

// Close releases the underlying WAL.
func (j *Journal) Close() error {
	if j == nil || j.wal == nil {
		return nil
	}
	return j.wal.Close()
}
