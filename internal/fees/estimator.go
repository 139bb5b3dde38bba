// Package fees implements submission cost estimation. The estimate is a
// pure function of payload length and the current congestion signal; it has
// no persisted state and is callable by anyone.
package fees

import (
	"context"

	"github.com/michaelwinczuk/erc-shared-sequencer/internal/congestion"
)

// Estimator computes the expected submission cost:
//
//	cost = minFee + len(payload) * perByte * congestion
//
// The congestion multiplier is floored at 1 so the estimate never collapses
// to the flat minimum when congestion data is unavailable. The result is
// always at least the minimum fee, and non-decreasing in payload length.
type Estimator struct {
	minFee  uint64
	perByte uint64
	signal  congestion.Signal
}

// maxMultiplier bounds the congestion reading used in the estimate. The
// tracker's counter is unbounded, and an unclamped reading would overflow
// the cost arithmetic and wrap below the minimum fee.
const maxMultiplier = 1 << 10

// NewEstimator creates an estimator. A nil signal behaves like a constant
// 1-unit congestion multiplier.
func NewEstimator(minFee, perByte uint64, signal congestion.Signal) *Estimator {
	return &Estimator{
		minFee:  minFee,
		perByte: perByte,
		signal:  signal,
	}
}

// MinFee returns the flat minimum submission fee.
func (e *Estimator) MinFee() uint64 {
	return e.minFee
}

// Estimate returns the expected cost for submitting payload.
func (e *Estimator) Estimate(ctx context.Context, payload []byte) uint64 {
	multiplier := uint64(1)
	if e.signal != nil {
		if c, err := e.signal.Current(ctx); err == nil && c > 1 {
			multiplier = c
		}
	}
	if multiplier > maxMultiplier {
		multiplier = maxMultiplier
	}

	return e.minFee + uint64(len(payload))*e.perByte*multiplier
}
