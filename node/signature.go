package node

import (
	"context"
	"math"
	"time"

	"github.com/tos-network/sentinel/ledger"
	"github.com/tos-network/sentinel/simerr"
)

// GenerateSignature builds a Signature from equal-length, non-empty
// values/ips/scores. confidence is the mean
// absolute score, clamped to [0,1]. The returned Signature's ID is zero
// until Broadcast assigns one.
func (n *Node) GenerateSignature(values []float64, ips []string, scores []float64) (ledger.Signature, error) {
	if len(values) == 0 || len(ips) == 0 || len(scores) == 0 {
		return ledger.Signature{}, simerr.Validation("node.GenerateSignature", simerr.ErrEmptyBatch)
	}
	if len(values) != len(ips) || len(values) != len(scores) {
		return ledger.Signature{}, simerr.Validation("node.GenerateSignature", simerr.ErrMismatchedArrays)
	}

	features := make([]ledger.FeatureRecord, len(values))
	var absSum float64
	for i := range values {
		features[i] = ledger.FeatureRecord{PacketSize: values[i], SourceIP: ips[i]}
		absSum += math.Abs(scores[i])
	}
	confidence := clamp(absSum/float64(len(scores)), 0, 1)

	return ledger.Signature{
		Timestamp:  float64(time.Now().UnixNano()) / 1e9,
		NodeID:     n.ID,
		Features:   features,
		Confidence: confidence,
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Broadcast appends sig to the ledger and stamps the assigned id back onto
// the returned copy. A ledger failure surfaces as a BroadcastError — fatal
// for this step, not for the simulation.
func (n *Node) Broadcast(ctx context.Context, sig ledger.Signature) (ledger.Signature, error) {
	id, err := n.ledger.Append(ctx, sig)
	if err != nil {
		return ledger.Signature{}, simerr.Broadcast("node.Broadcast", err)
	}
	sig.ID = id
	return sig, nil
}
