package consensus

import (
	mapset "github.com/deckarep/golang-set"

	"github.com/tos-network/sentinel/node"
)

// AggregateVotes folds the verdicts produced by every node's PollAndValidate
// call into the map[signatureId][]bool shape CountVotes/Resolve expect. A
// per-signature set of casting node ids (golang-set) guards against the same
// node's vote being counted twice — e.g. if a node's poll window overlaps a
// previous tick's and re-validates the same signature.
func AggregateVotes(verdicts []node.Verdict) map[int64][]bool {
	seen := make(map[int64]mapset.Set)
	out := make(map[int64][]bool)
	for _, v := range verdicts {
		s, ok := seen[v.SignatureID]
		if !ok {
			s = mapset.NewThreadUnsafeSet()
			seen[v.SignatureID] = s
		}
		if s.Contains(v.NodeID) {
			continue
		}
		s.Add(v.NodeID)
		out[v.SignatureID] = append(out[v.SignatureID], v.IsValid)
	}
	return out
}
