package services

import (
	"context"
	"os"
	"strconv"
	"sync/atomic"
	"time"
)

// retryBatchSize caps how many due records one pass claims
const retryBatchSize = 100

// RetryScheduler periodically rescans PENDING-but-retryable records whose
// backoff slot has elapsed and resubmits them to their channel senders.
// Each record is claimed atomically before dispatching so two workers (or
// two ticks) never double-send the same record.
type RetryScheduler struct {
	store      *NotificationStore
	dispatcher *Dispatcher

	Interval  time.Duration
	ClaimHold time.Duration

	StopChan chan struct{}
	running  atomic.Bool
}

func NewRetryScheduler(store *NotificationStore, dispatcher *Dispatcher) *RetryScheduler {
	interval := 60 * time.Second
	if raw := os.Getenv("NOTIFY_RETRY_INTERVAL"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			interval = time.Duration(secs) * time.Second
		}
	}
	return &RetryScheduler{
		store:      store,
		dispatcher: dispatcher,
		Interval:   interval,
		ClaimHold:  2 * interval,
		StopChan:   make(chan struct{}),
	}
}

func (rs *RetryScheduler) Start() {
	go func() {
		ticker := time.NewTicker(rs.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rs.Tick()
			case <-rs.StopChan:
				return
			}
		}
	}()
	logInfo("Retry scheduler started (interval %s)", rs.Interval)
}

func (rs *RetryScheduler) Stop() {
	close(rs.StopChan)
}

// Tick runs one retry pass. A tick that fires while the previous pass is
// still running returns immediately (single-flight).
func (rs *RetryScheduler) Tick() {
	if !rs.running.CompareAndSwap(false, true) {
		logInfo("Retry pass still running, skipping tick")
		return
	}
	defer rs.running.Store(false)

	now := time.Now()
	due, err := rs.store.DueForRetry(now, retryBatchSize)
	if err != nil {
		logWarn("Error selecting records for retry: %v", err)
		return
	}
	if len(due) == 0 {
		return
	}

	logInfo("Retry pass: %d record(s) due", len(due))

	for i := range due {
		n := due[i]
		claimed, err := rs.store.ClaimForRetry(n.ID, now, rs.ClaimHold)
		if err != nil {
			logWarn("Error claiming notification %s for retry: %v", n.NotificationID, err)
			continue
		}
		if !claimed {
			// Another worker got there first
			continue
		}
		rs.dispatcher.Resend(context.Background(), &n, AuditContext{})
	}
}
