package node

// TrafficBatch is the result of one GenerateTraffic call.
type TrafficBatch struct {
	Values          []float64
	HasAnomaly      bool
	InjectedIndices []int
	Scores          []float64 // always empty: DetectAnomaly returns its scores in DetectionResult
}

const anomalousPacketSize = 500.0
const anomalyInjectionProbability = 0.05
const trafficMean = 100.0
const trafficStdDev = 20.0

// GenerateTraffic produces a batch of packet sizes drawn from
// Normal(mean=100, stdev=20). With 5% probability per batch, or
// unconditionally when forceAnomaly is true, a single anomalous value (500)
// is injected at a random index. The recent-data ring is updated with the
// raw batch (newest at the tail). batchSize == 0 returns an empty batch and
// leaves the ring untouched.
func (n *Node) GenerateTraffic(batchSize int, forceAnomaly bool) TrafficBatch {
	n.mu.Lock()
	defer n.mu.Unlock()

	if batchSize <= 0 {
		return TrafficBatch{}
	}

	values := make([]float64, batchSize)
	for i := range values {
		values[i] = n.rng.NormFloat64()*trafficStdDev + trafficMean
	}

	inject := forceAnomaly || n.rng.Float64() < anomalyInjectionProbability
	var injected []int
	if inject {
		idx := n.rng.Intn(batchSize)
		values[idx] = anomalousPacketSize
		injected = []int{idx}
	}

	n.recentData.pushAll(values)

	return TrafficBatch{
		Values:          values,
		HasAnomaly:      inject,
		InjectedIndices: injected,
		Scores:          nil,
	}
}
