package node

import "fmt"

// DetectionResult is the outcome of one DetectAnomaly call. HasAnomaly reflects the detector's own verdict (score below
// anomalyThreshold), independent of whether GenerateTraffic injected a
// synthetic anomaly.
type DetectionResult struct {
	HasAnomaly    bool
	Indices       []int
	AnomalyValues []float64
	SourceIPs     []string
	Scores        []float64
}

// DetectAnomaly runs the node's detector against batch: fits on the batch,
// scores every point, and flags indices scoring below anomalyThreshold. An
// empty batch returns an empty result without touching the detector.
func (n *Node) DetectAnomaly(values []float64) DetectionResult {
	if len(values) == 0 {
		return DetectionResult{}
	}

	n.mu.Lock()
	n.detector.Fit(values)
	scores := n.detector.Score(values)
	threshold := n.cfg.AnomalyThreshold
	n.mu.Unlock()

	var indices []int
	for i, s := range scores {
		if s < threshold {
			indices = append(indices, i)
		}
	}

	result := DetectionResult{
		HasAnomaly: len(indices) > 0,
		Scores:     scores,
	}
	if len(indices) == 0 {
		return result
	}

	result.Indices = indices
	result.AnomalyValues = make([]float64, len(indices))
	result.SourceIPs = make([]string, len(indices))

	n.mu.Lock()
	for i, idx := range indices {
		result.AnomalyValues[i] = values[idx]
		result.SourceIPs[i] = n.syntheticSourceIP()
	}
	n.mu.Unlock()

	return result
}

func (n *Node) syntheticSourceIP() string {
	octet := 1 + n.rng.Intn(255)
	return fmt.Sprintf("192.168.1.%d", octet)
}
