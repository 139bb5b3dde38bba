package sequencer

import (
	"context"
	"fmt"

	"github.com/michaelwinczuk/erc-shared-sequencer/pkg/service"
)

// Closer is implemented by emitters that hold external connections.
type Closer interface {
	Close()
}

// SequencerService wraps the Sequencer as a registry service. It owns the
// event emitter's connection and closes it on shutdown.
type SequencerService struct {
	sequencer *Sequencer
	closer    Closer
	status    service.Status
}

// NewSequencerService creates the service wrapper. closer may be nil when
// the emitter holds no external connection.
func NewSequencerService(seq *Sequencer, closer Closer) *SequencerService {
	return &SequencerService{
		sequencer: seq,
		closer:    closer,
		status:    service.StatusStopped,
	}
}

// Name returns the service name.
func (s *SequencerService) Name() string {
	return "sequencer"
}

// Start marks the service running. The sequencer itself has no background
// work; every operation completes synchronously.
func (s *SequencerService) Start(ctx context.Context) error {
	s.status = service.StatusRunning
	return nil
}

// Stop flushes and closes the event emitter.
func (s *SequencerService) Stop(ctx context.Context) error {
	s.status = service.StatusStopping
	if s.closer != nil {
		s.closer.Close()
	}
	s.status = service.StatusStopped
	return nil
}

// Status returns the current service status.
func (s *SequencerService) Status() service.Status {
	return s.status
}

// Health performs a health check.
func (s *SequencerService) Health() error {
	if s.status != service.StatusRunning {
		return fmt.Errorf("service not running")
	}
	return nil
}

// Dependencies returns a list of services this service depends on.
func (s *SequencerService) Dependencies() []string {
	return []string{}
}
