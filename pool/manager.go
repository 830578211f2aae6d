package pool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/coachpo/objectpool/core/health"
	"github.com/coachpo/objectpool/core/metrics"
	"github.com/coachpo/objectpool/internal/observability"
)

var (
	// ErrPoolNotRegistered indicates the requested pool has not been registered.
	ErrPoolNotRegistered = errors.New("pool manager: pool not registered")
	// ErrManagerClosed indicates the manager is shutting down and cannot service requests.
	ErrManagerClosed = errors.New("pool manager: shutdown in progress")
)

// defaultShutdownTimeout bounds Shutdown when the caller supplies no deadline.
const defaultShutdownTimeout = 5 * time.Second

type registration struct {
	instanceID uuid.UUID
	view       Instrumented
	labels     []metrics.Label
}

// Manager coordinates named pools behind their non-generic Instrumented
// views: registration, lookup, aggregated health and exposition, and a
// graceful drain on shutdown.
type Manager struct {
	mu           sync.RWMutex
	pools        map[string]registration
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// NewManager constructs an initialized manager ready for pool registration.
func NewManager() *Manager {
	m := new(Manager)
	m.pools = make(map[string]registration)
	m.shutdownCh = make(chan struct{})
	return m
}

// Register records a pool under name with optional exposition labels and
// returns the instance id assigned to this registration.
func (m *Manager) Register(name string, view Instrumented, labels ...metrics.Label) (uuid.UUID, error) {
	if view == nil {
		return uuid.Nil, fmt.Errorf("pool manager: nil pool for %s", name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.shutdownCh:
		return uuid.Nil, ErrManagerClosed
	default:
	}

	if _, exists := m.pools[name]; exists {
		return uuid.Nil, fmt.Errorf("pool manager: pool %s already registered", name)
	}
	id := uuid.New()
	m.pools[name] = registration{instanceID: id, view: view, labels: labels}
	return id, nil
}

// Lookup returns the registered view for name.
func (m *Manager) Lookup(name string) (Instrumented, error) {
	m.mu.RLock()
	reg, ok := m.pools[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotRegistered, name)
	}
	return reg.view, nil
}

// InstanceID returns the id assigned when name was registered.
func (m *Manager) InstanceID(name string) (uuid.UUID, error) {
	m.mu.RLock()
	reg, ok := m.pools[name]
	m.mu.RUnlock()
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrPoolNotRegistered, name)
	}
	return reg.instanceID, nil
}

// Names returns the registered pool names in lexical order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	names := make([]string, 0, len(m.pools))
	for name := range m.pools {
		names = append(names, name)
	}
	m.mu.RUnlock()
	sort.Strings(names)
	return names
}

// HealthSummary returns a health reading per registered pool.
func (m *Manager) HealthSummary() map[string]health.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]health.Status, len(m.pools))
	for name, reg := range m.pools {
		out[name] = reg.view.Health()
	}
	return out
}

// RenderPrometheus concatenates every registered pool's exposition, ordered
// by pool name, suitable for serving as one scrape page.
func (m *Manager) RenderPrometheus() string {
	m.mu.RLock()
	regs := make(map[string]registration, len(m.pools))
	for name, reg := range m.pools {
		regs[name] = reg
	}
	m.mu.RUnlock()

	names := make([]string, 0, len(regs))
	for name := range regs {
		names = append(names, name)
	}
	sort.Strings(names)

	var out strings.Builder
	for _, name := range names {
		reg := regs[name]
		out.WriteString(metrics.RenderPrometheus(reg.view.Metrics(), name, reg.labels))
	}
	return out.String()
}

// ActiveTotal sums the active counts of every registered pool.
func (m *Manager) ActiveTotal() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, reg := range m.pools {
		total += reg.view.ActiveCount()
	}
	return total
}

// Shutdown refuses new registrations and waits for every outstanding lease
// to drain, or until the context (defaulting to 5 seconds) expires.
func (m *Manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var cancel context.CancelFunc
	if _, ok := ctx.Deadline(); !ok {
		ctx, cancel = context.WithTimeout(ctx, defaultShutdownTimeout)
	}
	if cancel != nil {
		defer cancel()
	}

	m.shutdownOnce.Do(func() {
		close(m.shutdownCh)
	})

	backoffCfg := backoff.NewExponentialBackOff()
	backoffCfg.InitialInterval = time.Millisecond
	backoffCfg.MaxInterval = checkoutPollInterval

	for {
		remaining := m.ActiveTotal()
		if remaining == 0 {
			return nil
		}
		sleep := backoffCfg.NextBackOff()
		if sleep == backoff.Stop || sleep > checkoutPollInterval {
			sleep = checkoutPollInterval
		}
		select {
		case <-ctx.Done():
			observability.Log().Error("pool manager: shutdown timed out with leases in flight",
				observability.Field{Key: "remaining", Value: remaining})
			return fmt.Errorf("shutdown timeout: %d pooled objects unreturned", remaining)
		case <-time.After(sleep):
		}
	}
}
