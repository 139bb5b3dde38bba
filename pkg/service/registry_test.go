package service

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelwinczuk/erc-shared-sequencer/pkg/logging"
)

// fakeService records start/stop order on a shared log.
type fakeService struct {
	name string
	deps []string

	mu      sync.Mutex
	status  Status
	events  *[]string
	eventMu *sync.Mutex
}

func newFakeService(name string, deps []string, events *[]string, eventMu *sync.Mutex) *fakeService {
	return &fakeService{
		name:    name,
		deps:    deps,
		status:  StatusStopped,
		events:  events,
		eventMu: eventMu,
	}
}

func (s *fakeService) Name() string { return s.name }

func (s *fakeService) Start(ctx context.Context) error {
	s.mu.Lock()
	s.status = StatusRunning
	s.mu.Unlock()
	s.record("start:" + s.name)
	return nil
}

func (s *fakeService) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.status = StatusStopped
	s.mu.Unlock()
	s.record("stop:" + s.name)
	return nil
}

func (s *fakeService) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *fakeService) Health() error {
	if s.Status() != StatusRunning {
		return context.Canceled
	}
	return nil
}

func (s *fakeService) Dependencies() []string { return s.deps }

func (s *fakeService) record(ev string) {
	s.eventMu.Lock()
	defer s.eventMu.Unlock()
	*s.events = append(*s.events, ev)
}

func testLogger() *logging.Logger {
	return logging.New(logging.Config{
		Level:       logging.ErrorLevel,
		Output:      io.Discard,
		ServiceName: "test",
	})
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	registry := NewRegistry(testLogger())

	var events []string
	var mu sync.Mutex
	require.NoError(t, registry.Register(newFakeService("a", nil, &events, &mu)))
	assert.Error(t, registry.Register(newFakeService("a", nil, &events, &mu)))
}

func TestGet(t *testing.T) {
	registry := NewRegistry(testLogger())

	var events []string
	var mu sync.Mutex
	svc := newFakeService("a", nil, &events, &mu)
	require.NoError(t, registry.Register(svc))

	got, err := registry.Get("a")
	require.NoError(t, err)
	assert.Equal(t, svc, got)

	_, err = registry.Get("missing")
	assert.Error(t, err)
}

func TestStartAllRespectsDependencyOrder(t *testing.T) {
	registry := NewRegistry(testLogger())

	var events []string
	var mu sync.Mutex
	require.NoError(t, registry.Register(newFakeService("api", []string{"core"}, &events, &mu)))
	require.NoError(t, registry.Register(newFakeService("core", []string{"store"}, &events, &mu)))
	require.NoError(t, registry.Register(newFakeService("store", nil, &events, &mu)))

	require.NoError(t, registry.StartAll(context.Background()))

	assert.Equal(t, []string{"start:store", "start:core", "start:api"}, events)
}

func TestStopAllReversesStartOrder(t *testing.T) {
	registry := NewRegistry(testLogger())

	var events []string
	var mu sync.Mutex
	require.NoError(t, registry.Register(newFakeService("api", []string{"core"}, &events, &mu)))
	require.NoError(t, registry.Register(newFakeService("core", nil, &events, &mu)))

	ctx := context.Background()
	require.NoError(t, registry.StartAll(ctx))
	require.NoError(t, registry.StopAll(ctx))

	assert.Equal(t, []string{"start:core", "start:api", "stop:api", "stop:core"}, events)
}

func TestStartAllRejectsMissingDependency(t *testing.T) {
	registry := NewRegistry(testLogger())

	var events []string
	var mu sync.Mutex
	require.NoError(t, registry.Register(newFakeService("api", []string{"ghost"}, &events, &mu)))

	assert.Error(t, registry.StartAll(context.Background()))
}

func TestStartAllRejectsDependencyCycle(t *testing.T) {
	registry := NewRegistry(testLogger())

	var events []string
	var mu sync.Mutex
	require.NoError(t, registry.Register(newFakeService("a", []string{"b"}, &events, &mu)))
	require.NoError(t, registry.Register(newFakeService("b", []string{"a"}, &events, &mu)))

	assert.Error(t, registry.StartAll(context.Background()))
}

func TestHealthCheck(t *testing.T) {
	registry := NewRegistry(testLogger())

	var events []string
	var mu sync.Mutex
	svc := newFakeService("a", nil, &events, &mu)
	require.NoError(t, registry.Register(svc))

	results := registry.HealthCheck()
	assert.Error(t, results["a"])

	require.NoError(t, registry.StartAll(context.Background()))
	results = registry.HealthCheck()
	assert.NoError(t, results["a"])
}
