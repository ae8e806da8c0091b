package node

import (
	"context"

	"github.com/tos-network/sentinel/ledger"
	"github.com/tos-network/sentinel/xlog"
)

// StepResult summarizes one Step call for the scheduler/sim layer: the
// signature broadcast this tick (if any) and the verdicts this node cast on
// other nodes' signatures while polling.
type StepResult struct {
	Signature *ledger.Signature
	Broadcast bool
	Verdicts  []Verdict
}

// Step runs one perceive/detect/decide-act/validate cycle. Any error
// within a phase is logged and the remaining phases for this tick are
// skipped — the node stays usable for the next tick regardless.
func (n *Node) Step(ctx context.Context, forceAnomaly bool) StepResult {
	var result StepResult

	batch := n.GenerateTraffic(n.cfg.BatchSize, forceAnomaly)
	if len(batch.Values) == 0 {
		return result
	}

	detection := n.DetectAnomaly(batch.Values)
	if !detection.HasAnomaly {
		verdicts, err := n.PollAndValidate(ctx)
		if err != nil {
			xlog.Warn("node: poll failed", "nodeId", n.ID, "err", err)
			return result
		}
		result.Verdicts = verdicts
		return result
	}

	sig, err := n.GenerateSignature(detection.AnomalyValues, detection.SourceIPs, detection.Scores)
	if err != nil {
		xlog.Warn("node: signature generation failed", "nodeId", n.ID, "err", err)
		return result
	}

	broadcast, err := n.Broadcast(ctx, sig)
	if err != nil {
		xlog.Warn("node: broadcast failed", "nodeId", n.ID, "err", err)
		return result
	}
	result.Signature = &broadcast
	result.Broadcast = true

	// A node applies its own detection locally and immediately — this is
	// separate from the later consensus-triggered propagation to every
	// other node, which only happens once (if ever) the signature clears
	// majority validation.
	n.ApplyAccepted(broadcast)

	verdicts, err := n.PollAndValidate(ctx)
	if err != nil {
		xlog.Warn("node: poll failed", "nodeId", n.ID, "err", err)
		return result
	}
	result.Verdicts = verdicts
	return result
}
