package ledger

import "errors"

var (
	errNonFiniteTimestamp  = errors.New("ledger: timestamp must be finite")
	errEmptyNodeID         = errors.New("ledger: nodeId must not be empty")
	errEmptyFeatures       = errors.New("ledger: features must not be empty")
	errConfidenceRange     = errors.New("ledger: confidence must be in [0,1]")
	errNonFinitePacketSize = errors.New("ledger: packetSize must be finite")
)
