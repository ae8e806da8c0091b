// Package sim implements the scheduler/simulation engine: it owns the
// node population, the shared ledger, the execution strategy, and drives
// ticks of step -> validate -> consensus.
package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/tos-network/sentinel/consensus"
	"github.com/tos-network/sentinel/ledger"
	"github.com/tos-network/sentinel/node"
	"github.com/tos-network/sentinel/simerr"
	"github.com/tos-network/sentinel/xlog"
)

// Stats is the snapshot returned by Simulation.Stats.
type Stats struct {
	StepCount          int
	NumAgents          int
	Threshold          int
	UseParallel        bool
	Runtime            time.Duration
	AvgStepTime        time.Duration
	LedgerSize         int
	AcceptedSignatures int
	AvgConfidence      float64 // mean Rate across every accepted signature this run
}

// Simulation is the top-level engine: one population of nodes sharing one
// ledger, advanced one tick at a time.
type Simulation struct {
	id          string // uuid-derived namespace, so node ids never alias across instances
	ledger      ledger.Store
	nodes       []*node.Node
	threshold   int
	strategy    Strategy
	useParallel bool

	stopOnError bool

	stepCount     int
	totalRuntime  time.Duration
	confidenceSum *uint256.Int // fixed-point accumulator across every accepted signature's Rate*1e6, avoiding float drift over long runs
	acceptedCount int
}

// Config bundles the constructor knobs beyond numAgents/seed.
type Config struct {
	UseParallelThreshold int
	StopOnError          bool
	NodeConfig           node.Config
	BlacklistDir         string
}

// NewSimulation builds a Simulation over numAgents nodes sharing store.
// Rejects numAgents <= 0 with a ConfigurationError. threshold is
// floor(numAgents/2)+1, fixed for the simulation's lifetime.
func NewSimulation(ctx context.Context, numAgents int, seed int64, store ledger.Store, cfg Config) (*Simulation, error) {
	if numAgents <= 0 {
		return nil, simerr.Configuration("sim.NewSimulation", fmt.Errorf("numAgents must be > 0, got %d", numAgents))
	}

	simID := uuid.New().String()[:8]
	nodes := make([]*node.Node, numAgents)
	for i := 0; i < numAgents; i++ {
		nodeID := fmt.Sprintf("%s-node-%d", simID, i)
		nodeSeed := seed ^ int64(i)
		blacklistPath := ""
		if cfg.BlacklistDir != "" {
			blacklistPath = fmt.Sprintf("%s/%s.json", cfg.BlacklistDir, nodeID)
		}
		nodes[i] = node.New(nodeID, store, blacklistPath, cfg.NodeConfig, nodeSeed)
	}

	parallelThreshold := cfg.UseParallelThreshold
	if parallelThreshold <= 0 {
		parallelThreshold = 50
	}
	useParallel := numAgents > parallelThreshold

	var strategy Strategy
	if useParallel {
		strategy = NewWorkerPoolStrategy(numAgents)
	} else {
		strategy = NewSequentialStrategy(numAgents, seed)
	}

	return &Simulation{
		id:            simID,
		ledger:        store,
		nodes:         nodes,
		threshold:     numAgents/2 + 1,
		strategy:      strategy,
		useParallel:   useParallel,
		stopOnError:   cfg.StopOnError,
		confidenceSum: uint256.NewInt(0),
	}, nil
}

// Step runs one tick: fan out node steps, aggregate verdicts
// into the consensus input, resolve consensus, record metrics.
func (s *Simulation) Step(ctx context.Context) error {
	start := time.Now()

	forceAnomaly := func(int) bool { return false }
	results := s.strategy.RunStep(ctx, s.nodes, forceAnomaly)

	var allVerdicts []node.Verdict
	for _, r := range results {
		allVerdicts = append(allVerdicts, r.Verdicts...)
	}
	validations := consensus.AggregateVotes(allVerdicts)

	appliers := make([]consensus.Applier, len(s.nodes))
	for i, n := range s.nodes {
		appliers[i] = n
	}
	report := consensus.Resolve(ctx, validations, s.threshold, s.ledger, appliers)

	for _, r := range report {
		if !r.Accepted {
			continue
		}
		s.confidenceSum.Add(s.confidenceSum, uint256.NewInt(uint64(r.Rate*1e6)))
		s.acceptedCount++
	}

	s.stepCount++
	s.totalRuntime += time.Since(start)
	return nil
}

// Run executes steps ticks, logging progress at 10% intervals. Rejects
// non-positive steps. Honors ctx cancellation cooperatively between ticks;
// a step-level error is logged and, unless stopOnError is set, the run
// continues.
func (s *Simulation) Run(ctx context.Context, steps int) error {
	if steps <= 0 {
		return simerr.Configuration("sim.Run", fmt.Errorf("steps must be > 0, got %d", steps))
	}

	logEvery := steps / 10
	if logEvery < 1 {
		logEvery = 1
	}
	runStart := time.Now()

	for i := 1; i <= steps; i++ {
		select {
		case <-ctx.Done():
			xlog.Info("sim: run cancelled", "simId", s.id, "completedSteps", i-1, "targetSteps", steps)
			return ctx.Err()
		default:
		}

		if err := s.Step(ctx); err != nil {
			xlog.Warn("sim: step failed", "simId", s.id, "step", i, "err", err)
			if s.stopOnError {
				return err
			}
		}

		if i%logEvery == 0 || i == steps {
			elapsed := time.Since(runStart)
			eta := time.Duration(0)
			if i < steps {
				eta = elapsed / time.Duration(i) * time.Duration(steps-i)
			}
			xlog.Info("sim: progress", "simId", s.id, "step", i, "steps", steps, "elapsed", elapsed, "eta", eta)
		}
	}
	return nil
}

// Stats reports the simulation's current counters.
func (s *Simulation) Stats() Stats {
	var avg time.Duration
	if s.stepCount > 0 {
		avg = s.totalRuntime / time.Duration(s.stepCount)
	}
	size := 0
	if entries, err := s.ledger.ReadAll(context.Background()); err == nil {
		size = len(entries)
	}
	var avgConfidence float64
	if s.acceptedCount > 0 {
		// confidenceSum holds Rate*1e6 per accepted signature; undo that
		// fixed-point scaling once, at read time, to recover the mean rate.
		mean := new(uint256.Int).Div(s.confidenceSum, uint256.NewInt(uint64(s.acceptedCount)))
		avgConfidence = float64(mean.Uint64()) / 1e6
	}
	return Stats{
		StepCount:          s.stepCount,
		NumAgents:          len(s.nodes),
		Threshold:          s.threshold,
		UseParallel:        s.useParallel,
		Runtime:            s.totalRuntime,
		AvgStepTime:        avg,
		LedgerSize:         size,
		AcceptedSignatures: s.acceptedCount,
		AvgConfidence:      avgConfidence,
	}
}

// Close releases the ledger resource. Idempotent.
func (s *Simulation) Close() error {
	return s.ledger.Close()
}

// Nodes exposes the node accessor surface for tests.
func (s *Simulation) Nodes() []*node.Node {
	return s.nodes
}
