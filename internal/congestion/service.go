package congestion

import (
	"context"
	"fmt"
	"time"

	"github.com/michaelwinczuk/erc-shared-sequencer/pkg/service"
)

// TrackerService runs the tracker's decay loop as a registry service.
type TrackerService struct {
	tracker  *Tracker
	interval time.Duration
	status   service.Status
	cancel   context.CancelFunc
}

// NewTrackerService wraps a tracker with the given decay interval.
func NewTrackerService(tracker *Tracker, interval time.Duration) *TrackerService {
	return &TrackerService{
		tracker:  tracker,
		interval: interval,
		status:   service.StatusStopped,
	}
}

// Name returns the service name.
func (s *TrackerService) Name() string {
	return "congestion-tracker"
}

// Start launches the decay loop.
func (s *TrackerService) Start(ctx context.Context) error {
	s.status = service.StatusStarting

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.tracker.runDecay(loopCtx, s.interval)

	s.status = service.StatusRunning
	return nil
}

// Stop halts the decay loop.
func (s *TrackerService) Stop(ctx context.Context) error {
	s.status = service.StatusStopping
	if s.cancel != nil {
		s.cancel()
	}
	s.status = service.StatusStopped
	return nil
}

// Status returns the current service status.
func (s *TrackerService) Status() service.Status {
	return s.status
}

// Health performs a health check.
func (s *TrackerService) Health() error {
	if s.status != service.StatusRunning {
		return fmt.Errorf("service not running")
	}
	return s.tracker.client.Ping(context.Background()).Err()
}

// Dependencies returns a list of services this service depends on.
func (s *TrackerService) Dependencies() []string {
	return []string{}
}
