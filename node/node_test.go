package node

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tos-network/sentinel/ledger"
	"github.com/tos-network/sentinel/ledger/memdb"
)

func newTestNode(t *testing.T, id string, seed int64) *Node {
	t.Helper()
	store := memdb.New(0)
	t.Cleanup(func() { _ = store.Close() })
	cfg := DefaultConfig
	cfg.BatchSize = 20
	return New(id, store, "", cfg, seed)
}

func TestGenerateTrafficEmptyBatch(t *testing.T) {
	n := newTestNode(t, "n0", 1)
	batch := n.GenerateTraffic(0, false)
	require.Empty(t, batch.Values)
	require.Equal(t, 0, n.recentData.len())
}

func TestGenerateTrafficForcedAnomalyInjectsOneValue(t *testing.T) {
	n := newTestNode(t, "n0", 1)
	batch := n.GenerateTraffic(10, true)
	require.Len(t, batch.Values, 10)
	require.True(t, batch.HasAnomaly)
	require.Len(t, batch.InjectedIndices, 1)
	require.Equal(t, anomalousPacketSize, batch.Values[batch.InjectedIndices[0]])
	require.Equal(t, 10, n.recentData.len())
}

func TestDetectAnomalyEmptyInput(t *testing.T) {
	n := newTestNode(t, "n0", 1)
	result := n.DetectAnomaly(nil)
	require.False(t, result.HasAnomaly)
	require.Empty(t, result.Indices)
}

func TestDetectAnomalyFlagsInjectedOutlier(t *testing.T) {
	n := newTestNode(t, "n0", 2)
	batch := n.GenerateTraffic(64, true)
	result := n.DetectAnomaly(batch.Values)
	require.Len(t, result.Scores, len(batch.Values))
	// Batch size 64 exceeds MinDataPoints (10), so the forest fits and the
	// injected 500 must be among the flagged indices.
	require.NotEmpty(t, result.Indices)
	require.Contains(t, result.Indices, batch.InjectedIndices[0])
}

func TestGenerateSignatureRejectsEmptyBatch(t *testing.T) {
	n := newTestNode(t, "n0", 1)
	_, err := n.GenerateSignature(nil, nil, nil)
	require.Error(t, err)
}

func TestGenerateSignatureRejectsMismatchedLengths(t *testing.T) {
	n := newTestNode(t, "n0", 1)
	_, err := n.GenerateSignature([]float64{1, 2}, []string{"a"}, []float64{0.1, 0.2})
	require.Error(t, err)
}

func TestGenerateSignatureConfidenceClamped(t *testing.T) {
	n := newTestNode(t, "n0", 1)
	sig, err := n.GenerateSignature([]float64{500}, []string{"10.0.0.1"}, []float64{-5})
	require.NoError(t, err)
	require.Equal(t, 1.0, sig.Confidence)
	require.Equal(t, "n0", sig.NodeID)
}

func TestBroadcastAssignsLedgerID(t *testing.T) {
	n := newTestNode(t, "n0", 1)
	sig, err := n.GenerateSignature([]float64{500}, []string{"10.0.0.1"}, []float64{-1})
	require.NoError(t, err)

	broadcast, err := n.Broadcast(context.Background(), sig)
	require.NoError(t, err)
	require.Equal(t, int64(1), broadcast.ID)
}

func TestFingerprintDeterministic(t *testing.T) {
	sig := ledger.Signature{
		NodeID:     "n0",
		Confidence: 0.333,
		Features:   []ledger.FeatureRecord{{PacketSize: 123.4567}},
	}
	require.Equal(t, fingerprint(sig), fingerprint(sig))

	other := sig
	other.Confidence = 0.9
	require.NotEqual(t, fingerprint(sig), fingerprint(other))
}

func TestPollAndValidateSkipsSelfAuthored(t *testing.T) {
	store := memdb.New(0)
	defer store.Close()
	n := New("n0", store, "", DefaultConfig, 1)

	sig, err := n.GenerateSignature([]float64{500}, []string{"10.0.0.1"}, []float64{-1})
	require.NoError(t, err)
	_, err = n.Broadcast(context.Background(), sig)
	require.NoError(t, err)

	verdicts, err := n.PollAndValidate(context.Background())
	require.NoError(t, err)
	require.Empty(t, verdicts, "a node must not validate its own signature")
	require.Equal(t, int64(1), n.LastSeenLedgerID())
}

func TestPollAndValidateValidatesOtherNodesEntries(t *testing.T) {
	store := memdb.New(0)
	defer store.Close()
	author := New("author", store, "", DefaultConfig, 1)
	validator := New("validator", store, "", DefaultConfig, 2)

	sig, err := author.GenerateSignature([]float64{500}, []string{"10.0.0.1"}, []float64{-1})
	require.NoError(t, err)
	_, err = author.Broadcast(context.Background(), sig)
	require.NoError(t, err)

	verdicts, err := validator.PollAndValidate(context.Background())
	require.NoError(t, err)
	require.Len(t, verdicts, 1)
	require.Equal(t, ValidatorID(verdicts[0].SignatureID), verdicts[0].ValidatorID)
	require.Equal(t, "validator", verdicts[0].NodeID)
}

func TestValidateSignatureCachesVerdict(t *testing.T) {
	store := memdb.New(0)
	defer store.Close()
	author := New("author", store, "", DefaultConfig, 1)
	validator := New("validator", store, "", DefaultConfig, 2)
	for i := 0; i < 10; i++ {
		validator.recentData.push(100.0)
	}

	sig, err := author.GenerateSignature([]float64{500}, []string{"10.0.0.1"}, []float64{-1})
	require.NoError(t, err)
	broadcast, err := author.Broadcast(context.Background(), sig)
	require.NoError(t, err)

	v1, err := validator.validateSignature(broadcast)
	require.NoError(t, err)
	v2, err := validator.validateSignature(broadcast)
	require.NoError(t, err)
	require.Equal(t, v1, v2, "a cached verdict must not flip on repeated validation")

	stats := validator.CacheStats()
	require.Equal(t, int64(1), stats.Hits)
	require.Equal(t, int64(1), stats.Misses)
}

func TestValidateSignatureBelowMinDataPointsIsFalse(t *testing.T) {
	store := memdb.New(0)
	defer store.Close()
	author := New("author", store, "", DefaultConfig, 1)
	validator := New("validator", store, "", DefaultConfig, 2)

	sig, err := author.GenerateSignature([]float64{500}, []string{"10.0.0.1"}, []float64{-1})
	require.NoError(t, err)
	broadcast, err := author.Broadcast(context.Background(), sig)
	require.NoError(t, err)

	verdict, err := validator.validateSignature(broadcast)
	require.NoError(t, err)
	require.False(t, verdict)
}

func TestApplyAcceptedWritesBlacklistAndRetrains(t *testing.T) {
	store := memdb.New(0)
	defer store.Close()
	dir := t.TempDir()
	path := filepath.Join(dir, "blacklist.json")
	n := New("n0", store, path, DefaultConfig, 1)

	features := make([]ledger.FeatureRecord, 12)
	for i := range features {
		features[i] = ledger.FeatureRecord{PacketSize: 110.0 + float64(i), SourceIP: "10.0.0.1"}
	}
	sig := ledger.Signature{NodeID: "other", Confidence: 0.8, Features: features, Timestamp: 1}

	// Seed the cache so a successful retrain's Clear() is observable.
	n.cache.Put("warm", true)
	require.Equal(t, 1, n.cache.Len())

	n.ApplyAccepted(sig)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), "\"nodeId\": \"other\"")

	require.Equal(t, 0, n.cache.Len(), "a successful retrain must clear the validation cache")
}

func TestApplyAcceptedIsBestEffortOnBadBlacklistPath(t *testing.T) {
	store := memdb.New(0)
	defer store.Close()
	// A path under a file (not a directory) cannot be written to; this must
	// not panic — the retrain sub-step still runs.
	n := New("n0", store, "/dev/null/unwritable/blacklist.json", DefaultConfig, 1)
	sig := ledger.Signature{
		NodeID:     "other",
		Confidence: 0.5,
		Features:   []ledger.FeatureRecord{{PacketSize: 100}},
		Timestamp:  1,
	}
	require.NotPanics(t, func() { n.ApplyAccepted(sig) })
}

func TestStepSkipsRemainingPhasesOnEmptyBatch(t *testing.T) {
	n := newTestNode(t, "n0", 1)
	n.cfg.BatchSize = 0
	result := n.Step(context.Background(), false)
	require.Nil(t, result.Signature)
	require.False(t, result.Broadcast)
	require.Nil(t, result.Verdicts)
}

func TestStepBroadcastsOnForcedAnomaly(t *testing.T) {
	n := newTestNode(t, "n0", 1)
	result := n.Step(context.Background(), true)
	require.True(t, result.Broadcast)
	require.NotNil(t, result.Signature)
}

func TestStepAppliesItsOwnBroadcastLocally(t *testing.T) {
	store := memdb.New(0)
	defer store.Close()
	dir := t.TempDir()
	path := filepath.Join(dir, "blacklist.json")
	n := New("n0", store, path, DefaultConfig, 1)

	// Seed the cache so a successful local retrain's Clear() is observable,
	// the same way ApplyAccepted is tested directly elsewhere.
	n.cache.Put("warm", true)
	require.Equal(t, 1, n.cache.Len())

	result := n.Step(context.Background(), true)
	require.True(t, result.Broadcast)
	require.NotNil(t, result.Signature)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), "\"nodeId\": \"n0\"", "a node must apply its own accepted detection to its own blacklist immediately, not only after consensus")

	require.Equal(t, 0, n.cache.Len(), "the immediate self-update must retrain and clear the cache in the same tick")
}
