package node

import (
	"context"
	"strconv"

	"github.com/tos-network/sentinel/ledger"
	"github.com/tos-network/sentinel/xlog"
)

// ValidatorID is the deterministic "validation_{signatureId}" id.
func ValidatorID(signatureID int64) string {
	return "validation_" + strconv.FormatInt(signatureID, 10)
}

// Verdict is one node's vote on one signature,
// produced per (node, signature) pair during a step and consumed by
// consensus; discarded after the step.
type Verdict struct {
	SignatureID int64
	IsValid     bool
	ValidatorID string
	// NodeID identifies the node that cast this vote. It is not part of the
	// ValidationVerdict (whose validatorId is a deterministic function of
	// signatureId alone) — it exists so consensus aggregation can dedupe
	// votes per casting node across overlapping poll windows.
	NodeID string
}

// PollAndValidate reads every ledger entry newer than the node's watermark,
// skips self-authored entries, and returns one Verdict per remaining entry.
// The watermark advances to the maximum observed id regardless of
// per-entry outcome. A per-entry validation failure is logged and that
// entry is skipped; the loop continues.
func (n *Node) PollAndValidate(ctx context.Context) ([]Verdict, error) {
	n.mu.Lock()
	since := n.lastSeenLedgerID
	n.mu.Unlock()

	entries, err := n.ledger.ReadSince(ctx, since)
	if err != nil {
		return nil, err
	}

	var verdicts []Verdict
	maxSeen := since
	for _, e := range entries {
		if e.ID > maxSeen {
			maxSeen = e.ID
		}
		if e.NodeID == n.ID {
			continue // nodes do not validate their own output
		}
		valid, err := n.validateSignature(e.Signature)
		if err != nil {
			xlog.Warn("node: skipping entry during validation", "nodeId", n.ID, "signatureId", e.ID, "err", err)
			continue
		}
		verdicts = append(verdicts, Verdict{
			SignatureID: e.ID,
			IsValid:     valid,
			ValidatorID: ValidatorID(e.ID),
			NodeID:      n.ID,
		})
	}

	n.mu.Lock()
	if maxSeen > n.lastSeenLedgerID {
		n.lastSeenLedgerID = maxSeen
	}
	n.mu.Unlock()

	return verdicts, nil
}

// validateSignature is deterministic given its inputs and the current cache
// state.
func (n *Node) validateSignature(sig ledger.Signature) (bool, error) {
	fp := fingerprint(sig)

	n.mu.Lock()
	defer n.mu.Unlock()

	if cached, ok := n.cache.Get(fp); ok {
		return cached, nil
	}

	if n.recentData.len() < n.cfg.MinDataPoints {
		n.cache.Put(fp, false)
		return false, nil
	}

	sigMean, ok := meanPacketSize(sig.Features)
	if !ok {
		n.cache.Put(fp, false)
		return false, nil
	}

	recentMean := n.recentData.mean()
	// Only the zero-denominator guard is applied: any pair of non-zero means
	// yields a true verdict (before the failure-rate flip). Neither the
	// signs nor the magnitudes of the two means are compared.
	if sigMean == 0 || recentMean == 0 {
		n.cache.Put(fp, false)
		return false, nil
	}

	verdict := true
	if n.rng.Float64() < n.cfg.ValidationFailureRate {
		verdict = !verdict
	}
	n.cache.Put(fp, verdict)
	return verdict, nil
}

func meanPacketSize(features []ledger.FeatureRecord) (float64, bool) {
	if len(features) == 0 {
		return 0, false
	}
	var sum float64
	for _, f := range features {
		sum += f.PacketSize
	}
	return sum / float64(len(features)), true
}
