// Package leveldb is the durable ledger.Store backend, backed by
// github.com/syndtr/goleveldb — the same storage engine the teacher uses
// for its chain database (tosdb/leveldb). Each Signature is persisted as a
// JSON blob keyed by its big-endian uint64 id; the in-process ledger.Index
// mirrors every entry for id and nodeId lookups and the (timestamp, nodeId)
// uniqueness check, since goleveldb itself only orders by key.
package leveldb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/tos-network/sentinel/ledger"
	"github.com/tos-network/sentinel/simerr"
	"github.com/tos-network/sentinel/xlog"
)

const hotCacheSize = 256

// Store is a goleveldb-backed ledger.Store.
type Store struct {
	writerMu sync.Mutex
	db       *leveldb.DB
	idx      *ledger.Index
	hot      *lru.Cache // id -> ledger.Entry, fronting Index.ByID under read pressure
}

// Open opens (creating if absent) the database at dir and rebuilds the
// in-process index from its contents. dir == "" opens an ephemeral
// in-memory goleveldb instance, useful for tests that still want to
// exercise the real codec path.
func Open(dir string, ttl time.Duration) (*Store, error) {
	var (
		db  *leveldb.DB
		err error
	)
	if dir == "" {
		db, err = leveldb.Open(storage.NewMemStorage(), &opt.Options{})
	} else {
		db, err = leveldb.OpenFile(dir, &opt.Options{})
	}
	if err != nil {
		return nil, simerr.IO("leveldb.Open", err)
	}
	hot, err := lru.New(hotCacheSize)
	if err != nil {
		return nil, simerr.Configuration("leveldb.Open", err)
	}
	s := &Store{db: db, idx: ledger.NewIndex(ttl), hot: hot}
	if err := s.rebuildIndex(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func idKey(id int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return b[:]
}

func (s *Store) rebuildIndex() error {
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()
	for iter.Next() {
		var e ledger.Entry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			xlog.Warn("leveldb: skipping unreadable ledger record", "err", err)
			continue
		}
		s.idx.Restore(e)
	}
	return iter.Error()
}

func (s *Store) Append(_ context.Context, sig ledger.Signature) (int64, error) {
	if err := ledger.Validate(sig); err != nil {
		return 0, err
	}
	// fastcache never reports a false positive for an exact key, so a hit
	// here is rejected without contending the writer lock or touching
	// goleveldb; a miss still falls through to idx.Add's authoritative
	// check (the cache may have evicted the entry).
	if s.idx.ProbablyContains(sig.Timestamp, sig.NodeID) {
		return 0, simerr.Validation("ledger.Append", fmt.Errorf("%w: timestamp=%v nodeId=%s", simerr.ErrDuplicateEntry, sig.Timestamp, sig.NodeID))
	}

	s.writerMu.Lock()
	defer s.writerMu.Unlock()

	id := s.idx.Reserve()
	sig.ID = id
	entry := ledger.Entry{Signature: sig, CreatedAt: time.Now()}

	blob, err := json.Marshal(entry)
	if err != nil {
		return 0, simerr.Validation("ledger.Append", err)
	}
	if err := s.idx.Add(entry); err != nil {
		return 0, err
	}
	if err := s.db.Put(idKey(id), blob, nil); err != nil {
		if simerr.Retryable(err) {
			return 0, simerr.Transient("ledger.Append", err)
		}
		return 0, simerr.Broadcast("ledger.Append", err)
	}
	s.hot.Add(id, entry)
	return id, nil
}

func (s *Store) ReadAll(_ context.Context) ([]ledger.Entry, error) {
	return s.idx.All(), nil
}

func (s *Store) ReadSince(_ context.Context, lastSeenID int64) ([]ledger.Entry, error) {
	return s.idx.Since(lastSeenID), nil
}

func (s *Store) GetByID(_ context.Context, id int64) (ledger.Entry, bool, error) {
	if v, ok := s.hot.Get(id); ok {
		return v.(ledger.Entry), true, nil
	}
	e, ok := s.idx.ByID(id)
	if ok {
		s.hot.Add(id, e)
	}
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
	batch := new(leveldb.Batch)
	for _, id := range removed {
		batch.Delete(idKey(id))
		s.hot.Remove(id)
	}
	if len(removed) > 0 {
		if err := s.db.Write(batch, nil); err != nil {
			return 0, simerr.IO("leveldb.PruneOlderThan", err)
		}
	}
	return len(removed), nil
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		if errors.Is(err, leveldb.ErrClosed) {
			return nil
		}
		return simerr.IO("leveldb.Close", fmt.Errorf("%w", err))
	}
	return nil
}
