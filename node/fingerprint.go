package node

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/tos-network/sentinel/ledger"
)

// fingerprint computes a content hash over a signature's salient fields —
// at minimum the packet-size feature values, plus nodeId and confidence
// rounded to a fixed precision, following the teacher's own
// sha256-over-canonical-bytes hashing convention.
func fingerprint(sig ledger.Signature) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%.2f", sig.NodeID, sig.Confidence)
	for _, f := range sig.Features {
		fmt.Fprintf(&b, "|%.4f", f.PacketSize)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
