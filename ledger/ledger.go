// Package ledger defines the shared append-only signature log: the sole
// cross-node shared state of the simulation. Concrete backends live
// in the memdb and leveldb subpackages; this package holds the entry types,
// the Store contract, and the validation/indexing logic both backends share.
package ledger

import (
	"context"
	"math"
	"time"

	"github.com/tos-network/sentinel/simerr"
)

// FeatureRecord is one observed traffic feature attached to a Signature.
// Extra carries arbitrary additional scalar fields, serialized
// alongside PacketSize/SourceIP when crossing the ledger boundary.
type FeatureRecord struct {
	PacketSize float64            `json:"packetSize"`
	SourceIP   string             `json:"sourceIp"`
	Extra      map[string]float64 `json:"extra,omitempty"`
}

// Signature is a node's claim of an observed anomalous traffic pattern.
// ID is left zero until the ledger assigns one on Append.
type Signature struct {
	ID         int64           `json:"id"`
	Timestamp  float64         `json:"timestamp"`
	NodeID     string          `json:"nodeId"`
	Features   []FeatureRecord `json:"features"`
	Confidence float64         `json:"confidence"`
}

// Entry is a Signature as stored by the ledger, carrying the DB-side
// creation timestamp.
type Entry struct {
	Signature
	CreatedAt time.Time `json:"createdAt"`
}

// Store is the contract every ledger backend implements.
type Store interface {
	// Append validates and persists sig, returning its assigned id.
	Append(ctx context.Context, sig Signature) (int64, error)
	// ReadAll returns every entry ordered by id ascending.
	ReadAll(ctx context.Context) ([]Entry, error)
	// ReadSince returns entries with id > lastSeenID, in id order.
	ReadSince(ctx context.Context, lastSeenID int64) ([]Entry, error)
	// GetByID returns the entry for id, or ok=false if absent.
	GetByID(ctx context.Context, id int64) (entry Entry, ok bool, err error)
	// GetByNode returns entries authored by nodeID, timestamp descending.
	// limit <= 0 means unbounded.
	GetByNode(ctx context.Context, nodeID string, limit int) ([]Entry, error)
	// PruneOlderThan deletes entries older than maxAge and returns the count
	// removed.
	PruneOlderThan(ctx context.Context, maxAge time.Duration) (int, error)
	// Close releases any resources held by the store. Idempotent.
	Close() error
}

// Validate enforces the field-level constraints of Append, ahead of
// the uniqueness check a Store performs against its own index.
func Validate(sig Signature) error {
	if math.IsNaN(sig.Timestamp) || math.IsInf(sig.Timestamp, 0) {
		return simerr.Validation("ledger.Append", errNonFiniteTimestamp)
	}
	if sig.NodeID == "" {
		return simerr.Validation("ledger.Append", errEmptyNodeID)
	}
	if len(sig.Features) == 0 {
		return simerr.Validation("ledger.Append", errEmptyFeatures)
	}
	if sig.Confidence < 0 || sig.Confidence > 1 {
		return simerr.Validation("ledger.Append", errConfidenceRange)
	}
	for _, f := range sig.Features {
		if math.IsNaN(f.PacketSize) || math.IsInf(f.PacketSize, 0) {
			return simerr.Validation("ledger.Append", errNonFinitePacketSize)
		}
	}
	return nil
}
