// Package jobs provides background job processing functionality.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultPurgeInterval is used when the manager is given a non-positive interval
const DefaultPurgeInterval = time.Hour

// Pruner drops in-memory state that has been idle for longer than idle
type Pruner interface {
	Prune(idle time.Duration) int
}

// JobManager handles background job execution
type JobManager struct {
	purgeJob *SessionPurgeJob
	pruners  []Pruner
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	running  bool
	mu       sync.RWMutex
}

// NewJobManager creates a new job manager that purges sessions every interval.
// Each pruner is asked on every tick to drop state idle for a full interval.
func NewJobManager(purgeJob *SessionPurgeJob, interval time.Duration, pruners ...Pruner) *JobManager {
	if interval <= 0 {
		interval = DefaultPurgeInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &JobManager{
		purgeJob: purgeJob,
		pruners:  pruners,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		running:  false,
	}
}

// Start begins the job manager background processing
func (jm *JobManager) Start() {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	if jm.running {
		log.Warn("Job manager is already running")
		return
	}

	// A stopped manager gets a fresh context so it can be restarted
	if jm.ctx.Err() != nil {
		jm.ctx, jm.cancel = context.WithCancel(context.Background())
	}

	jm.running = true
	log.Info("Starting job manager", "purge_interval", jm.interval)

	jm.wg.Add(1)
	go jm.runPeriodicPurge(jm.ctx)
}

// Stop stops the job manager
func (jm *JobManager) Stop() {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	if !jm.running {
		return
	}

	log.Info("Stopping job manager")
	jm.cancel()
	jm.running = false

	// Wait for all jobs to finish
	jm.wg.Wait()
	log.Info("Job manager stopped")
}

// IsRunning returns whether the job manager is currently running
func (jm *JobManager) IsRunning() bool {
	jm.mu.RLock()
	defer jm.mu.RUnlock()
	return jm.running
}

// TriggerPurge immediately runs a session purge in the background. It does
// nothing unless the manager is running.
func (jm *JobManager) TriggerPurge() {
	if jm.purgeJob == nil {
		log.Warn("Cannot trigger purge: no session purge job configured")
		return
	}

	jm.mu.Lock()
	defer jm.mu.Unlock()

	if !jm.running {
		log.Warn("Cannot trigger purge: job manager is not running")
		return
	}

	ctx := jm.ctx
	jm.wg.Add(1)
	go func() {
		defer jm.wg.Done()
		if _, err := jm.purgeJob.Run(ctx); err != nil {
			log.Error("Triggered session purge failed", "err", err)
		}
	}()
}

// Wait blocks until every triggered job has finished
func (jm *JobManager) Wait() {
	jm.wg.Wait()
}

// runPeriodicPurge runs the session purge job and the pruners periodically
func (jm *JobManager) runPeriodicPurge(ctx context.Context) {
	defer jm.wg.Done()

	if jm.purgeJob == nil {
		log.Debug("No session purge job configured, skipping periodic purge")
	} else if _, err := jm.purgeJob.Run(ctx); err != nil {
		// Run immediately on startup
		log.Error("Initial session purge failed", "err", err)
	}

	ticker := time.NewTicker(jm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("Periodic session purge stopped")
			return
		case <-ticker.C:
			if jm.purgeJob != nil {
				if _, err := jm.purgeJob.Run(ctx); err != nil {
					log.Error("Periodic session purge failed", "err", err)
				}
			}
			jm.prune()
		}
	}
}

func (jm *JobManager) prune() {
	for _, p := range jm.pruners {
		if n := p.Prune(jm.interval); n > 0 {
			log.Debug("Pruned idle entries", "count", n)
		}
	}
}
