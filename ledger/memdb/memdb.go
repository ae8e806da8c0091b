// Package memdb is an in-memory ledger.Store, the counterpart to the
// leveldb-backed store — mirroring the teacher's own tosdb/memorydb vs
// tosdb/leveldb split. Used by tests and by cmd/sentinel --db=memory.
package memdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tos-network/sentinel/ledger"
	"github.com/tos-network/sentinel/simerr"
)

// Store is a durable-in-name-only ledger.Store backed by process memory.
type Store struct {
	writerMu sync.Mutex
	idx      *ledger.Index
}

// New builds an empty Store. ttl configures ReadAll's cache lifetime.
func New(ttl time.Duration) *Store {
	return &Store{idx: ledger.NewIndex(ttl)}
}

func (s *Store) Append(_ context.Context, sig ledger.Signature) (int64, error) {
	if err := ledger.Validate(sig); err != nil {
		return 0, err
	}
	// fastcache never reports a false positive for an exact key, so a hit
	// here is rejected without contending the writer lock; a miss still
	// falls through to idx.Add's authoritative check (the cache may have
	// evicted the entry).
	if s.idx.ProbablyContains(sig.Timestamp, sig.NodeID) {
		return 0, simerr.Validation("ledger.Append", fmt.Errorf("%w: timestamp=%v nodeId=%s", simerr.ErrDuplicateEntry, sig.Timestamp, sig.NodeID))
	}

	s.writerMu.Lock()
	defer s.writerMu.Unlock()

	id := s.idx.Reserve()
	sig.ID = id
	entry := ledger.Entry{Signature: sig, CreatedAt: time.Now()}
	if err := s.idx.Add(entry); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) ReadAll(_ context.Context) ([]ledger.Entry, error) {
	return s.idx.All(), nil
}

func (s *Store) ReadSince(_ context.Context, lastSeenID int64) ([]ledger.Entry, error) {
	return s.idx.Since(lastSeenID), nil
}

func (s *Store) GetByID(_ context.Context, id int64) (ledger.Entry, bool, error) {
	e, ok := s.idx.ByID(id)
	return e, ok, nil
}

func (s *Store) GetByNode(_ context.Context, nodeID string, limit int) ([]ledger.Entry, error) {
	return s.idx.ByNode(nodeID, limit), nil
}

func (s *Store) PruneOlderThan(_ context.Context, maxAge time.Duration) (int, error) {
	s.writerMu.Lock()
	defer s.writerMu.Unlock()
	cutoff := float64(time.Now().Add(-maxAge).UnixNano()) / 1e9
	removed := s.idx.RemoveOlderThan(cutoff)
	return len(removed), nil
}

func (s *Store) Close() error { return nil }
