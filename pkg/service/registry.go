package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/michaelwinczuk/erc-shared-sequencer/pkg/logging"
)

// Registry manages all services and their lifecycle.
type Registry struct {
	services map[string]Service
	mutex    sync.RWMutex
	logger   *logging.Logger
}

// NewRegistry creates a new service registry.
func NewRegistry(logger *logging.Logger) *Registry {
	return &Registry{
		services: make(map[string]Service),
		logger:   logger,
	}
}

// Register adds a service to the registry.
func (r *Registry) Register(svc Service) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	name := svc.Name()
	if _, exists := r.services[name]; exists {
		return fmt.Errorf("service %s is already registered", name)
	}

	r.services[name] = svc
	r.logger.Info("Service registered", "name", name)
	return nil
}

// Get returns a service by name.
func (r *Registry) Get(name string) (Service, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	svc, exists := r.services[name]
	if !exists {
		return nil, fmt.Errorf("service %s not found", name)
	}

	return svc, nil
}

// StartAll starts all services in dependency order.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	order, err := startOrder(r.services)
	if err != nil {
		return err
	}

	for _, name := range order {
		svc := r.services[name]
		r.logger.Info("Starting service", "name", name)

		if err := svc.Start(ctx); err != nil {
			return fmt.Errorf("failed to start service %s: %w", name, err)
		}

		if err := r.waitForHealth(ctx, svc); err != nil {
			return err
		}
	}

	return nil
}

// StopAll stops all services in reverse dependency order.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	order, err := startOrder(r.services)
	if err != nil {
		return err
	}

	var firstErr error
	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		r.logger.Info("Stopping service", "name", name)

		if err := r.services[name].Stop(ctx); err != nil {
			r.logger.Error("Error stopping service", "name", name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			// Continue stopping the remaining services.
		}
	}

	return firstErr
}

// HealthCheck performs health checks on all services.
func (r *Registry) HealthCheck() map[string]error {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	results := make(map[string]error)
	for name, svc := range r.services {
		results[name] = svc.Health()
	}

	return results
}

// waitForHealth waits for a service to report healthy after starting.
func (r *Registry) waitForHealth(ctx context.Context, svc Service) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	timeout := time.After(30 * time.Second)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return fmt.Errorf("timeout waiting for service %s to become healthy", svc.Name())
		case <-ticker.C:
			if err := svc.Health(); err == nil {
				return nil
			}
		}
	}
}

// startOrder topologically sorts services so dependencies start first.
// Returns an error if a dependency is missing or the graph has a cycle.
func startOrder(services map[string]Service) ([]string, error) {
	indegree := make(map[string]int, len(services))
	dependents := make(map[string][]string, len(services))

	for name, svc := range services {
		if _, ok := indegree[name]; !ok {
			indegree[name] = 0
		}
		for _, dep := range svc.Dependencies() {
			if _, exists := services[dep]; !exists {
				return nil, fmt.Errorf("service %s depends on unregistered service %s", name, dep)
			}
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	queue := make([]string, 0, len(services))
	for name, deg := range indegree {
		if deg == 0 {
			queue = append(queue, name)
		}
	}

	order := make([]string, 0, len(services))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		order = append(order, name)

		for _, next := range dependents[name] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(services) {
		return nil, fmt.Errorf("dependency cycle detected among services")
	}

	return order, nil
}
