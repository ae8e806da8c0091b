package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tos-network/sentinel/node"
)

func TestAggregateVotesGroupsBySignature(t *testing.T) {
	verdicts := []node.Verdict{
		{SignatureID: 1, IsValid: true, NodeID: "n1"},
		{SignatureID: 1, IsValid: false, NodeID: "n2"},
		{SignatureID: 2, IsValid: true, NodeID: "n1"},
	}
	out := AggregateVotes(verdicts)
	require.ElementsMatch(t, []bool{true, false}, out[1])
	require.Equal(t, []bool{true}, out[2])
}

func TestAggregateVotesDedupesSameNodeSameSignature(t *testing.T) {
	verdicts := []node.Verdict{
		{SignatureID: 1, IsValid: true, NodeID: "n1"},
		{SignatureID: 1, IsValid: false, NodeID: "n1"}, // same node revoting; only first counts
	}
	out := AggregateVotes(verdicts)
	require.Len(t, out[1], 1)
	require.True(t, out[1][0])
}
