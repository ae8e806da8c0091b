package ledger

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/VictoriaMetrics/fastcache"

	"github.com/tos-network/sentinel/simerr"
)

// dedupCacheBytes sizes the fastcache instance fronting the uniqueness
// check; fastcache rounds this up internally, so a small size is fine for
// the simulation's modest entry counts.
const dedupCacheBytes = 1 << 20

// Index is the in-process secondary-index structure shared by every Store
// backend: map-based lookups by id and by nodeId, plus the (timestamp,
// nodeId) uniqueness set, kept live under a single writer lock, with many
// concurrent readers via RWMutex. There is no lookup by timestamp or by
// confidence.
type Index struct {
	mu     sync.RWMutex
	byID   map[int64]*Entry
	order  []int64 // ascending, append order
	uniq   map[string]struct{}
	byNode map[string][]int64
	nextID int64
	ttl    time.Duration
	snapAt time.Time
	snap   []Entry

	// dedup is a fast probabilistic front-check for the uniqueness
	// constraint under heavy concurrent append load: a miss here still
	// falls through to the authoritative uniq map, so correctness never
	// depends on fastcache's eviction behavior.
	dedup *fastcache.Cache
}

// NewIndex builds an empty Index. ttl configures the readAll() cache
// lifetime.
func NewIndex(ttl time.Duration) *Index {
	return &Index{
		byID:   make(map[int64]*Entry),
		uniq:   make(map[string]struct{}),
		byNode: make(map[string][]int64),
		ttl:    ttl,
		dedup:  fastcache.New(dedupCacheBytes),
	}
}

func uniqKey(timestamp float64, nodeID string) string {
	return strconv.FormatFloat(timestamp, 'g', -1, 64) + "|" + nodeID
}

// Reserve must be called with the backend's writer lock held; it assigns the
// next monotonically increasing id without mutating the index.
func (x *Index) Reserve() int64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.nextID++
	return x.nextID
}

// ProbablyContains is a cheap, non-authoritative pre-check callers can use to
// skip the cost of an Append attempt for an obvious duplicate before
// contending the writer lock at all. fastcache entries can be evicted under
// memory pressure, so a false ("probably not seen") is not a uniqueness
// guarantee — Add below remains the single source of truth.
func (x *Index) ProbablyContains(timestamp float64, nodeID string) bool {
	return x.dedup.Has([]byte(uniqKey(timestamp, nodeID)))
}

// Add inserts entry into the index, enforcing the (timestamp, nodeId)
// uniqueness invariant. Callers must serialize Add
// themselves (the backend's writer lock) so id assignment and insertion stay
// atomic with respect to persistence.
func (x *Index) Add(entry Entry) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	key := uniqKey(entry.Timestamp, entry.NodeID)
	if _, dup := x.uniq[key]; dup {
		return simerr.Validation("ledger.Append", fmt.Errorf("%w: timestamp=%v nodeId=%s", simerr.ErrDuplicateEntry, entry.Timestamp, entry.NodeID))
	}
	e := entry
	x.byID[entry.ID] = &e
	x.order = append(x.order, entry.ID)
	x.uniq[key] = struct{}{}
	x.dedup.Set([]byte(key), nil)
	x.byNode[entry.NodeID] = append(x.byNode[entry.NodeID], entry.ID)
	x.invalidateLocked()
	return nil
}

// Restore re-inserts an entry already persisted by the backend (used when
// rebuilding the index from disk at Open), bypassing Reserve.
func (x *Index) Restore(entry Entry) {
	x.mu.Lock()
	defer x.mu.Unlock()
	e := entry
	x.byID[entry.ID] = &e
	x.order = append(x.order, entry.ID)
	x.uniq[uniqKey(entry.Timestamp, entry.NodeID)] = struct{}{}
	x.byNode[entry.NodeID] = append(x.byNode[entry.NodeID], entry.ID)
	if entry.ID > x.nextID {
		x.nextID = entry.ID
	}
}

func (x *Index) invalidateLocked() {
	x.snap = nil
	x.snapAt = time.Time{}
}

// All returns every entry ordered by id ascending, served from a TTL'd
// snapshot invalidated by any successful Add.
func (x *Index) All() []Entry {
	x.mu.RLock()
	if x.snap != nil && (x.ttl <= 0 || time.Since(x.snapAt) < x.ttl) {
		out := make([]Entry, len(x.snap))
		copy(out, x.snap)
		x.mu.RUnlock()
		return out
	}
	x.mu.RUnlock()

	x.mu.Lock()
	defer x.mu.Unlock()
	out := make([]Entry, 0, len(x.order))
	for _, id := range x.order {
		out = append(out, *x.byID[id])
	}
	x.snap = out
	x.snapAt = time.Now()
	cp := make([]Entry, len(out))
	copy(cp, out)
	return cp
}

// Since returns entries with id > lastSeenID in id order.
func (x *Index) Since(lastSeenID int64) []Entry {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]Entry, 0)
	// order is append-sorted by id, so a linear scan from the tail would
	// also work; binary search keeps this cheap as the ledger grows.
	idx := sort.Search(len(x.order), func(i int) bool { return x.order[i] > lastSeenID })
	for _, id := range x.order[idx:] {
		out = append(out, *x.byID[id])
	}
	return out
}

// ByID returns the entry for id, or ok=false if absent.
func (x *Index) ByID(id int64) (Entry, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	e, ok := x.byID[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// ByNode returns entries authored by nodeID, timestamp descending, capped at
// limit (limit <= 0 means unbounded).
func (x *Index) ByNode(nodeID string, limit int) []Entry {
	x.mu.RLock()
	ids := append([]int64(nil), x.byNode[nodeID]...)
	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, *x.byID[id])
	}
	x.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// RemoveOlderThan deletes entries whose Timestamp is older than cutoff
// (seconds since epoch) and returns their ids.
func (x *Index) RemoveOlderThan(cutoff float64) []int64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	var removed []int64
	kept := x.order[:0:0]
	for _, id := range x.order {
		e := x.byID[id]
		if e.Timestamp < cutoff {
			removed = append(removed, id)
			delete(x.byID, id)
			key := uniqKey(e.Timestamp, e.NodeID)
			delete(x.uniq, key)
			x.dedup.Del([]byte(key))
			nodeIDs := x.byNode[e.NodeID]
			for i, nid := range nodeIDs {
				if nid == id {
					x.byNode[e.NodeID] = append(nodeIDs[:i], nodeIDs[i+1:]...)
					break
				}
			}
			continue
		}
		kept = append(kept, id)
	}
	x.order = kept
	if len(removed) > 0 {
		x.invalidateLocked()
	}
	return removed
}

// Len reports the current number of entries.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.order)
}
