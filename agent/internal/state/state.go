package state

import (
	"sync"
	"sync/atomic"

	"beacon/agent/internal/device"
)

// Agent is the per-run context owned by the beacon controller: the host
// identity and the running flag. Nothing else keeps a reference to it.
type Agent struct {
	mu       sync.Mutex
	identity device.Identity
	adopted  bool

	stopped atomic.Bool
}

func New(id device.Identity) *Agent { return &Agent{identity: id} }

func (a *Agent) Identity() device.Identity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.identity
}

func (a *Agent) UUID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.identity.UUID
}

// AdoptUUID replaces the identifier with one assigned by the server. It
// succeeds at most once per run; later calls and empty ids are ignored.
func (a *Agent) AdoptUUID(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.adopted || id == "" {
		return false
	}
	a.identity.UUID = id
	a.adopted = true
	return true
}

func (a *Agent) Running() bool { return !a.stopped.Load() }

// Stop asks the beacon loop to exit at its next check.
func (a *Agent) Stop() { a.stopped.Store(true) }
