package config

import (
	"sync"
	"time"
)

// Runtime is the shared holder for toggles consulted on every event.
// One instance is passed by handle to each component at construction;
// operator commands write through the setters and the next event sees
// the new value. Safe for concurrent use.
type Runtime struct {
	mu sync.RWMutex

	autoFollow   bool
	autoRequests bool
	maxPerHour   int
	delayMin     time.Duration
	delayMax     time.Duration
}

// NewRuntime seeds a Runtime from the static follow configuration.
func NewRuntime(cfg FollowConfig) *Runtime {
	r := &Runtime{
		autoFollow:   cfg.AutoFollow,
		autoRequests: cfg.AutoRequests,
		maxPerHour:   cfg.MaxPerHour,
		delayMin:     time.Duration(cfg.DelayMinSec) * time.Second,
		delayMax:     time.Duration(cfg.DelayMaxSec) * time.Second,
	}
	if r.maxPerHour <= 0 {
		r.maxPerHour = 18
	}
	if r.delayMin <= 0 {
		r.delayMin = 4 * time.Second
	}
	if r.delayMax < r.delayMin {
		r.delayMax = r.delayMin + 8*time.Second
	}
	return r
}

func (r *Runtime) AutoFollow() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.autoFollow
}

func (r *Runtime) SetAutoFollow(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.autoFollow = on
}

func (r *Runtime) AutoRequests() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.autoRequests
}

func (r *Runtime) SetAutoRequests(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.autoRequests = on
}

func (r *Runtime) MaxPerHour() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.maxPerHour
}

func (r *Runtime) SetMaxPerHour(n int) {
	if n <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxPerHour = n
}

// DelayBounds returns the randomized inter-action delay window.
func (r *Runtime) DelayBounds() (min, max time.Duration) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.delayMin, r.delayMax
}
