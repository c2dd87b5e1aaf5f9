// Package health aggregates component readiness for the operational
// endpoints. Components register a Check; the router reports 503 until all
// of them are ready.
package health

import "sync"

// Check reports the readiness of one component.
type Check interface {
	// Name identifies the component in readiness responses.
	Name() string

	// IsReady reports whether the component can serve.
	IsReady() bool
}

// CheckFunc adapts a function to the Check interface.
type CheckFunc struct {
	CheckName string
	Fn        func() bool
}

func (c CheckFunc) Name() string  { return c.CheckName }
func (c CheckFunc) IsReady() bool { return c.Fn() }

// Checker aggregates readiness checks. Safe for concurrent use.
type Checker struct {
	mu     sync.RWMutex
	checks []Check
}

func NewChecker(checks ...Check) *Checker {
	return &Checker{checks: checks}
}

// Register adds a check after construction.
func (c *Checker) Register(check Check) {
	c.mu.Lock()
	c.checks = append(c.checks, check)
	c.mu.Unlock()
}

// Ready reports overall readiness and the per-component breakdown.
// A Checker with no checks is ready.
func (c *Checker) Ready() (bool, map[string]bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ready := true
	components := make(map[string]bool, len(c.checks))
	for _, check := range c.checks {
		ok := check.IsReady()
		components[check.Name()] = ok
		if !ok {
			ready = false
		}
	}
	return ready, components
}
