package node

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/tos-network/sentinel/ledger"
	"github.com/tos-network/sentinel/xlog"
)

// blacklistRecord is one entry appended to the blacklist file.
type blacklistRecord struct {
	Timestamp  float64                `json:"timestamp"`
	NodeID     string                 `json:"nodeId"`
	Confidence float64                `json:"confidence"`
	Features   []ledger.FeatureRecord `json:"features"`
}

// ApplyAccepted is the consensus hook: a signature that reached majority
// agreement is (1) appended to the node's JSON blacklist and (2) folded into
// the detector's training sample. Both sub-steps are best-effort —
// a blacklist write failure is logged but does not prevent retraining, and
// vice versa.
func (n *Node) ApplyAccepted(sig ledger.Signature) {
	if err := n.appendBlacklist(sig); err != nil {
		xlog.Warn("node: blacklist update failed", "nodeId", n.ID, "signatureId", sig.ID, "err", err)
	}
	n.retrain(sig)
}

// appendBlacklist loads the existing JSON blacklist (an empty slice if the
// file is missing or unparseable), appends a record derived from sig, and
// writes the result back via write-then-rename — the teacher's own
// temp-file-then-os.Rename convention (accounts/keystore/key.go).
func (n *Node) appendBlacklist(sig ledger.Signature) error {
	if n.blacklistPath == "" {
		return nil
	}

	// Consensus may apply several accepted signatures to one node at once;
	// the node's mutex serializes the read-modify-write of its file.
	n.mu.Lock()
	defer n.mu.Unlock()

	var records []blacklistRecord
	if raw, err := os.ReadFile(n.blacklistPath); err == nil {
		_ = json.Unmarshal(raw, &records) // unparseable file is treated as empty
	}

	records = append(records, blacklistRecord{
		Timestamp:  sig.Timestamp,
		NodeID:     sig.NodeID,
		Confidence: sig.Confidence,
		Features:   sig.Features,
	})

	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(n.blacklistPath)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(n.blacklistPath)+".tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), n.blacklistPath)
}

// retrain extracts numeric packet sizes from sig's features, concatenates
// them with the node's current recentData, and refits the detector once the
// combined sample reaches minDataPoints. A successful retrain also
// clears the validation cache.
func (n *Node) retrain(sig ledger.Signature) {
	values := make([]float64, 0, len(sig.Features))
	for _, f := range sig.Features {
		values = append(values, f.PacketSize)
	}
	if len(values) == 0 {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	combined := append(n.recentData.snapshot(), values...)
	if len(combined) < n.cfg.MinDataPoints {
		return
	}
	n.detector.Fit(combined)
	n.cache.Clear()
}
