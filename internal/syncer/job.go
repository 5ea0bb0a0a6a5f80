// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Andrei Valekseev

package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/avalekseev/msnab/internal/logger"
)

const defaultSyncInterval = 5 * time.Minute

// Job runs Synchronize on a ticker. Idle until Start is called.
type Job struct {
	syncer *Syncer
	clock  clockwork.Clock
	log    *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewJob(s *Syncer, clock clockwork.Clock, log *logger.Logger) *Job {
	return &Job{syncer: s, clock: clock, log: log}
}

// Start stops any previously running job, then launches a background
// goroutine that synchronizes every interval. Zero or negative intervals
// default to 5 minutes. The goroutine exits when ctx is cancelled or Stop
// is called.
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultSyncInterval
	}

	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()
		t := j.clock.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-t.Chan():
				if err := j.syncer.Synchronize(jobCtx); err != nil {
					j.log.Error().Err(err).Msg("periodic synchronization failed")
				}
			}
		}
	}()
}

// Stop cancels the background goroutine and blocks until it has exited.
// Safe to call when the job is not running.
func (j *Job) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}
