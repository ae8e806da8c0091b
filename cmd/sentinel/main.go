// Command sentinel runs the decentralized anomaly-detection consensus
// simulation. It is a thin shell: all engine logic lives in sim,
// node, ledger, and consensus.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tos-network/sentinel/ledger"
	"github.com/tos-network/sentinel/ledger/leveldb"
	"github.com/tos-network/sentinel/ledger/memdb"
	"github.com/tos-network/sentinel/node"
	"github.com/tos-network/sentinel/sim"
	"github.com/tos-network/sentinel/simconfig"
	"github.com/tos-network/sentinel/xlog"
)

var (
	agentsFlag = &cli.IntFlag{
		Name:  "agents",
		Usage: "number of simulated nodes",
	}
	seedFlag = &cli.Int64Flag{
		Name:  "seed",
		Usage: "RNG seed for reproducible runs",
	}
	stepsFlag = &cli.IntFlag{
		Name:  "steps",
		Value: 10,
		Usage: "number of simulation ticks to run",
	}
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "path to a TOML configuration file",
	}
	dbFlag = &cli.StringFlag{
		Name:  "db",
		Value: "ledger.db",
		Usage: "ledger storage path, or \"memory\" for an ephemeral in-process store",
	}
	parallelThresholdFlag = &cli.IntFlag{
		Name:  "parallel-threshold",
		Usage: "agent count above which the worker-pool strategy is used instead of sequential",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Value: "info",
		Usage: "debug, info, warn, error, or crit",
	}
)

func main() {
	app := &cli.App{
		Name:  "sentinel",
		Usage: "decentralized anomaly-detection consensus simulation",
		Flags: []cli.Flag{
			agentsFlag, seedFlag, stepsFlag, configFlag, dbFlag, parallelThresholdFlag, logLevelFlag,
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	xlog.SetLevel(c.String(logLevelFlag.Name))

	cfg := simconfig.Default
	if path := c.String(configFlag.Name); path != "" {
		loaded, err := simconfig.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	numAgents := cfg.Simulation.DefaultAgents
	if c.IsSet(agentsFlag.Name) {
		numAgents = c.Int(agentsFlag.Name)
	}
	parallelThreshold := cfg.Simulation.UseParallelThreshold
	if c.IsSet(parallelThresholdFlag.Name) {
		parallelThreshold = c.Int(parallelThresholdFlag.Name)
	}
	seed := c.Int64(seedFlag.Name)

	store, err := openStore(c.String(dbFlag.Name), cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s, err := sim.NewSimulation(ctx, numAgents, seed, store, sim.Config{
		UseParallelThreshold: parallelThreshold,
		StopOnError:          cfg.Simulation.StopOnError,
		NodeConfig: node.Config{
			AnomalyThreshold:      cfg.Agent.AnomalyThreshold,
			MinDataPoints:         cfg.Agent.MinDataPoints,
			ValidationFailureRate: cfg.Agent.ValidationFailureRate,
			CacheMaxSize:          cfg.Agent.CacheMaxSize,
			RecentDataCapacity:    cfg.Agent.RecentDataCapacity,
			BatchSize:             node.DefaultConfig.BatchSize,
		},
	})
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Run(ctx, c.Int(stepsFlag.Name)); err != nil {
		return err
	}

	stats := s.Stats()
	xlog.Info("sim: finished",
		"steps", stats.StepCount,
		"numAgents", stats.NumAgents,
		"threshold", stats.Threshold,
		"useParallel", stats.UseParallel,
		"runtime", stats.Runtime,
		"avgStepTime", stats.AvgStepTime,
		"ledgerSize", stats.LedgerSize,
	)
	return nil
}

func openStore(path string, cfg simconfig.Config) (ledger.Store, error) {
	ttl := time.Duration(cfg.Ledger.CacheTTLSeconds) * time.Second
	if path == "memory" || path == "" {
		return memdb.New(ttl), nil
	}
	return leveldb.Open(path, ttl)
}
