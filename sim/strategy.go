package sim

import (
	"context"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/tos-network/sentinel/node"
)

// Strategy fans a tick's per-node Step calls out across the node set and
// collects every resulting StepResult.
type Strategy interface {
	RunStep(ctx context.Context, nodes []*node.Node, forceAnomaly func(nodeIdx int) bool) []node.StepResult
}

// SequentialStrategy runs nodes one at a time in a shuffled order, derived
// from seed, to avoid positional bias.
type SequentialStrategy struct {
	order []int
}

// NewSequentialStrategy precomputes a seed-derived shuffle of [0, numAgents).
func NewSequentialStrategy(numAgents int, seed int64) *SequentialStrategy {
	order := make([]int, numAgents)
	for i := range order {
		order[i] = i
	}
	rand.New(rand.NewSource(seed)).Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return &SequentialStrategy{order: order}
}

func (s *SequentialStrategy) RunStep(ctx context.Context, nodes []*node.Node, forceAnomaly func(int) bool) []node.StepResult {
	results := make([]node.StepResult, len(nodes))
	for _, idx := range s.order {
		if idx >= len(nodes) {
			continue
		}
		results[idx] = nodes[idx].Step(ctx, forceAnomaly(idx))
	}
	return results
}

// WorkerPoolStrategy runs node steps concurrently across a bounded worker
// pool, sized to min(numAgents, available cores), built on
// errgroup.Group.SetLimit, following the bounded fan-out in
// trillian-tessera's storage/integrate.go.
type WorkerPoolStrategy struct {
	limit int
}

// NewWorkerPoolStrategy sizes the pool to min(numAgents, GOMAXPROCS).
func NewWorkerPoolStrategy(numAgents int) *WorkerPoolStrategy {
	limit := runtime.GOMAXPROCS(0)
	if numAgents < limit {
		limit = numAgents
	}
	if limit < 1 {
		limit = 1
	}
	return &WorkerPoolStrategy{limit: limit}
}

func (s *WorkerPoolStrategy) RunStep(ctx context.Context, nodes []*node.Node, forceAnomaly func(int) bool) []node.StepResult {
	results := make([]node.StepResult, len(nodes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for i, n := range nodes {
		i, n := i, n
		g.Go(func() error {
			results[i] = n.Step(gctx, forceAnomaly(i))
			return nil
		})
	}
	// Per-node errors surface as metrics inside StepResult, never as a
	// propagated error — g.Wait only guards completion.
	_ = g.Wait()
	return results
}
