package rig

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// Pool steps many Rigs in parallel each frame, one worker-pool task per
// rig, reusing goroutines across frames the same way
// engine/scene/scene.go's computePool does for its CPU prep phase: a
// sync.WaitGroup supplies the per-frame barrier since the pool's own Wait
// blocks until workers idle-exit, which doesn't fit a once-per-frame
// cadence.
type Pool struct {
	mu   sync.RWMutex
	rigs map[string]*Rig

	workers   int
	taskQueue worker.DynamicWorkerPool
}

// PoolOption configures a Pool at construction time.
type PoolOption func(*Pool)

// WithWorkers overrides the default worker count (runtime.NumCPU()-1,
// floored at 1).
func WithWorkers(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

// NewPool constructs a Pool with a queue depth of 256, matching the
// headroom scene.go budgets for its own animator fan-out.
func NewPool(opts ...PoolOption) *Pool {
	p := &Pool{
		rigs:    make(map[string]*Rig),
		workers: max(runtime.NumCPU()-1, 1),
	}
	for _, o := range opts {
		o(p)
	}
	p.taskQueue = worker.NewDynamicWorkerPool(p.workers, 256, 1*time.Second)
	return p
}

// Add registers r under r.Name, replacing any existing rig of the same
// name.
func (p *Pool) Add(r *Rig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rigs[r.Name] = r
}

// Remove drops the rig registered under name, if any.
func (p *Pool) Remove(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.rigs, name)
}

// Get returns the rig registered under name, or nil.
func (p *Pool) Get(name string) *Rig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rigs[name]
}

// Len returns the number of registered rigs.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rigs)
}

// StepAll advances every registered rig by dt, fanned out across the
// worker pool, and blocks until all have completed. A rig whose Step
// panics is recovered and reported through its own Logger rather than
// taking down the frame for every other rig.
func (p *Pool) StepAll(dt float32) {
	p.mu.RLock()
	rigs := make([]*Rig, 0, len(p.rigs))
	for _, r := range p.rigs {
		rigs = append(rigs, r)
	}
	p.mu.RUnlock()

	var wg sync.WaitGroup
	for i, r := range rigs {
		wg.Add(1)
		rCap := r
		id := i
		p.taskQueue.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				stepRigSafely(rCap, dt)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

// stepRigSafely runs r.Step(dt), recovering a panic so one misconfigured
// rig (e.g. a node that panics in Evaluate) cannot abort the whole frame's
// fan-out. A fatal runtime error such as a stack overflow is not
// recoverable.
func stepRigSafely(r *Rig, dt float32) {
	defer func() {
		if rec := recover(); rec != nil {
			r.Log.Warnf("rig %q: Step panicked: %v", r.Name, rec)
		}
	}()
	r.Step(dt)
}

// Close releases the pool's worker goroutines. Call once the pool is no
// longer stepped.
func (p *Pool) Close() error {
	if closer, ok := p.taskQueue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("rig: Pool.Close: %w", err)
		}
	}
	return nil
}
