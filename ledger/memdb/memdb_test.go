package memdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tos-network/sentinel/ledger"
)

func sig(ts float64, nodeID string) ledger.Signature {
	return ledger.Signature{
		Timestamp:  ts,
		NodeID:     nodeID,
		Confidence: 0.4,
		Features:   []ledger.FeatureRecord{{PacketSize: 128.0, SourceIP: "10.0.0.1"}},
	}
}

func TestAppendAssignsMonotonicIDs(t *testing.T) {
	ctx := context.Background()
	s := New(time.Minute)

	id1, err := s.Append(ctx, sig(1, "a"))
	require.NoError(t, err)
	id2, err := s.Append(ctx, sig(2, "b"))
	require.NoError(t, err)

	require.Equal(t, int64(1), id1)
	require.Equal(t, int64(2), id2)
}

func TestAppendRejectsDuplicateTimestampNodeID(t *testing.T) {
	ctx := context.Background()
	s := New(time.Minute)

	_, err := s.Append(ctx, sig(1, "a"))
	require.NoError(t, err)

	_, err = s.Append(ctx, sig(1, "a"))
	require.Error(t, err)
}

func TestReadSinceReturnsOnlyNewerEntries(t *testing.T) {
	ctx := context.Background()
	s := New(time.Minute)

	id1, _ := s.Append(ctx, sig(1, "a"))
	_, _ = s.Append(ctx, sig(2, "b"))
	_, _ = s.Append(ctx, sig(3, "c"))

	entries, err := s.ReadSince(ctx, id1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "b", entries[0].NodeID)
	require.Equal(t, "c", entries[1].NodeID)
}

func TestReadAllOrderedAscending(t *testing.T) {
	ctx := context.Background()
	s := New(time.Minute)

	_, _ = s.Append(ctx, sig(1, "a"))
	_, _ = s.Append(ctx, sig(2, "b"))

	entries, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.True(t, entries[0].ID < entries[1].ID)
}

func TestGetByIDMissing(t *testing.T) {
	ctx := context.Background()
	s := New(time.Minute)
	_, ok, err := s.GetByID(ctx, 999)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGetByNodeDescendingAndLimited(t *testing.T) {
	ctx := context.Background()
	s := New(time.Minute)

	_, _ = s.Append(ctx, sig(1, "a"))
	_, _ = s.Append(ctx, sig(2, "a"))
	_, _ = s.Append(ctx, sig(3, "a"))

	entries, err := s.GetByNode(ctx, "a", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, 3.0, entries[0].Timestamp)
	require.Equal(t, 2.0, entries[1].Timestamp)
}

func TestPruneOlderThanRemovesOldEntries(t *testing.T) {
	ctx := context.Background()
	s := New(time.Minute)

	past := float64(time.Now().Add(-2 * time.Hour).UnixNano()) / 1e9
	_, err := s.Append(ctx, sig(past, "old"))
	require.NoError(t, err)
	_, err = s.Append(ctx, sig(float64(time.Now().UnixNano())/1e9, "fresh"))
	require.NoError(t, err)

	removed, err := s.PruneOlderThan(ctx, time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	entries, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "fresh", entries[0].NodeID)
}

func TestCloseIsIdempotent(t *testing.T) {
	s := New(time.Minute)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}
