// Package node implements the per-node perceive-decide-act-validate cycle.
// A Node holds a non-owning reference to the shared ledger.Store, passed in
// at construction and never reached for via a simulation object, plus its
// own detector, cache, recent-data ring and RNG.
package node

import (
	"math/rand"
	"sync"

	"github.com/tos-network/sentinel/cache"
	"github.com/tos-network/sentinel/detector"
	"github.com/tos-network/sentinel/ledger"
)

// Config holds the per-node tunables, all with the stated defaults.
type Config struct {
	AnomalyThreshold      float64
	MinDataPoints         int
	ValidationFailureRate float64
	CacheMaxSize          int
	RecentDataCapacity    int
	BatchSize             int
}

// DefaultConfig mirrors the stated defaults.
var DefaultConfig = Config{
	AnomalyThreshold:      -0.05,
	MinDataPoints:         10,
	ValidationFailureRate: 0.2,
	CacheMaxSize:          100,
	RecentDataCapacity:    100,
	BatchSize:             100,
}

// Node is one simulation agent.
type Node struct {
	ID     string
	ledger ledger.Store
	cfg    Config

	blacklistPath string

	mu               sync.Mutex
	rng              *rand.Rand
	detector         *detector.Forest
	cache            *cache.ValidationCache
	recentData       *ring
	lastSeenLedgerID int64
}

// New builds a Node whose RNG and detector are seeded with seed as given.
// NewSimulation passes the simulation seed XOR'd with the node's index, so
// every node in a simulation draws from an independent, reproducible RNG.
func New(id string, store ledger.Store, blacklistPath string, cfg Config, seed int64) *Node {
	return &Node{
		ID:            id,
		ledger:        store,
		cfg:           cfg,
		blacklistPath: blacklistPath,
		rng:           rand.New(rand.NewSource(seed)),
		detector:      detector.New(seed, cfg.MinDataPoints),
		cache:         cache.New(cfg.CacheMaxSize),
		recentData:    newRing(cfg.RecentDataCapacity),
	}
}

// CacheStats exposes the validation cache's hit/miss counters for tests.
func (n *Node) CacheStats() cache.Stats {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cache.Stats()
}

// LastSeenLedgerID returns the node's current poll watermark.
func (n *Node) LastSeenLedgerID() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastSeenLedgerID
}
