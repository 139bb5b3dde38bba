package fees

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/michaelwinczuk/erc-shared-sequencer/internal/congestion"
	"github.com/michaelwinczuk/erc-shared-sequencer/pkg/errors"
)

type failingSignal struct{}

func (failingSignal) Current(ctx context.Context) (uint64, error) {
	return 0, errors.ErrStorageUnavailable
}

func TestEstimateFlatMinimumForEmptyPayload(t *testing.T) {
	e := NewEstimator(1000, 16, congestion.Static(1))

	assert.Equal(t, uint64(1000), e.Estimate(context.Background(), nil))
	assert.Equal(t, uint64(1000), e.MinFee())
}

func TestEstimateGrowsWithPayloadLength(t *testing.T) {
	e := NewEstimator(1000, 16, congestion.Static(1))
	ctx := context.Background()

	small := e.Estimate(ctx, make([]byte, 10))
	large := e.Estimate(ctx, make([]byte, 100))

	assert.Equal(t, uint64(1000+10*16), small)
	assert.Equal(t, uint64(1000+100*16), large)
	assert.Greater(t, large, small)
}

func TestEstimateScalesWithCongestion(t *testing.T) {
	calm := NewEstimator(1000, 16, congestion.Static(1))
	busy := NewEstimator(1000, 16, congestion.Static(4))
	ctx := context.Background()

	payload := make([]byte, 100)
	assert.Equal(t, uint64(1000+100*16), calm.Estimate(ctx, payload))
	assert.Equal(t, uint64(1000+100*16*4), busy.Estimate(ctx, payload))
}

func TestEstimateFloorsCongestionAtOne(t *testing.T) {
	// A zero reading must not collapse the per-byte component.
	e := NewEstimator(1000, 16, congestion.Static(0))

	assert.Equal(t, uint64(1000+100*16), e.Estimate(context.Background(), make([]byte, 100)))
}

func TestEstimateClampsExtremeCongestion(t *testing.T) {
	// A runaway congestion counter must not wrap the cost below the
	// minimum fee.
	e := NewEstimator(1000, 16, congestion.Static(math.MaxUint64))
	ctx := context.Background()

	payload := make([]byte, 100)
	cost := e.Estimate(ctx, payload)
	assert.Equal(t, uint64(1000+100*16*(1<<10)), cost)
	assert.GreaterOrEqual(t, cost, e.MinFee())
}

func TestEstimateIgnoresSignalErrors(t *testing.T) {
	e := NewEstimator(1000, 16, failingSignal{})

	assert.Equal(t, uint64(1000+100*16), e.Estimate(context.Background(), make([]byte, 100)))
}

func TestEstimateWithNilSignal(t *testing.T) {
	e := NewEstimator(1000, 16, nil)

	assert.Equal(t, uint64(1000+100*16), e.Estimate(context.Background(), make([]byte, 100)))
}
