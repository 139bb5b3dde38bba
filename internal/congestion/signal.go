// Package congestion supplies the network-congestion signal consumed by the
// cost estimator: a unitless multiplier reflecting current contention.
package congestion

import "context"

// Signal provides the current congestion value. A zero value or an error
// means no congestion data is available; consumers substitute a nominal
// 1-unit floor.
type Signal interface {
	Current(ctx context.Context) (uint64, error)
}

// Static is a fixed congestion signal, used in tests and single-node
// deployments without a tracker.
type Static uint64

// Current returns the fixed value.
func (s Static) Current(ctx context.Context) (uint64, error) {
	return uint64(s), nil
}
