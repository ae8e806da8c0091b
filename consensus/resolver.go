// Package consensus resolves per-signature validation votes into accepted/
// rejected outcomes by simple majority, then fans out the post-acceptance
// hook across every node in parallel.
package consensus

import (
	"context"
	"sync"

	"github.com/tos-network/sentinel/ledger"
	"github.com/tos-network/sentinel/xlog"
)

// SignatureReport is the per-signature outcome of one Resolve call.
type SignatureReport struct {
	SignatureID int64
	Accepted    bool
	TrueVotes   int
	TotalVotes  int
	Rate        float64
}

// Report is the aggregate outcome of one Resolve call, keyed by signature id.
type Report map[int64]SignatureReport

// Applier receives an accepted signature; ApplyAccepted on node.Node
// satisfies this.
type Applier interface {
	ApplyAccepted(sig ledger.Signature)
}

// Ledger is the narrow read-only contract Resolve needs from the shared
// ledger during the consensus phase.
type Ledger interface {
	GetByID(ctx context.Context, id int64) (ledger.Entry, bool, error)
}

// CountVotes is the pure core of vote resolution: for each signature id, count true
// votes among its list of validator votes and accept iff trueVotes >=
// threshold. The threshold is inclusive — an exact tie at the threshold
// accepts, since by construction the threshold is already a strict
// majority.
func CountVotes(validations map[int64][]bool, threshold int) Report {
	report := make(Report, len(validations))
	for sigID, votes := range validations {
		trueVotes := 0
		for _, v := range votes {
			if v {
				trueVotes++
			}
		}
		total := len(votes)
		rate := 0.0
		if total > 0 {
			rate = float64(trueVotes) / float64(total)
		}
		report[sigID] = SignatureReport{
			SignatureID: sigID,
			Accepted:    trueVotes >= threshold,
			TrueVotes:   trueVotes,
			TotalVotes:  total,
			Rate:        rate,
		}
	}
	return report
}

// Resolve runs CountVotes, then for every accepted signature fetches it from
// store and applies it to every applier. A missing
// signature or fetch error is logged and that signature is skipped; the
// remaining accepted signatures are unaffected.
func Resolve(ctx context.Context, validations map[int64][]bool, threshold int, store Ledger, appliers []Applier) Report {
	report := CountVotes(validations, threshold)

	var accepted []ledger.Signature
	for sigID, r := range report {
		if !r.Accepted {
			continue
		}
		entry, ok, err := store.GetByID(ctx, sigID)
		if err != nil {
			xlog.Warn("consensus: failed to fetch accepted signature", "signatureId", sigID, "err", err)
			continue
		}
		if !ok {
			xlog.Warn("consensus: accepted signature missing from ledger", "signatureId", sigID)
			continue
		}
		accepted = append(accepted, entry.Signature)
	}

	applyAll(accepted, appliers)
	return report
}

// applyAll invokes ApplyAccepted for every (signature, applier) pair
// concurrently: appliers share no mutable state beyond the ledger, which is
// read-only during this phase, so per-node application can run in
// parallel.
func applyAll(accepted []ledger.Signature, appliers []Applier) {
	if len(accepted) == 0 || len(appliers) == 0 {
		return
	}
	var wg sync.WaitGroup
	for _, sig := range accepted {
		for _, a := range appliers {
			wg.Add(1)
			go func(a Applier, sig ledger.Signature) {
				defer wg.Done()
				a.ApplyAccepted(sig)
			}(a, sig)
		}
	}
	wg.Wait()
}
