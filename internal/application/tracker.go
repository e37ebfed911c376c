package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ericfisherdev/timepanel/internal/domain/model"
	"github.com/ericfisherdev/timepanel/internal/domain/port/driven"
)

// persistQueueSize bounds how many closed records may wait for the store.
// Session boundaries arrive at most once per poll tick, so a small buffer
// absorbs slow writes without ever blocking the timer.
const persistQueueSize = 64

// maxPersistAttempts bounds the write retry before a record is dropped.
const maxPersistAttempts = 5

// TrackerService owns the polling loop: it samples the foreground window on a
// fixed cadence, classifies browser samples by domain, feeds the segmenter,
// and hands closed records to a persist worker so a slow write never stalls
// the next tick.
type TrackerService struct {
	probe          driven.WindowProbe
	resolver       driven.DomainResolver
	store          driven.ActivityStore
	interval       time.Duration
	resolveTimeout time.Duration

	mu      sync.Mutex
	seg     *Segmenter
	enabled bool

	persistCh chan model.ActivityRecord
	now       func() time.Time
}

// NewTrackerService creates a tracker. Tracking starts enabled, matching the
// original behavior of recording from launch.
func NewTrackerService(
	probe driven.WindowProbe,
	resolver driven.DomainResolver,
	store driven.ActivityStore,
	interval time.Duration,
	resolveTimeout time.Duration,
) *TrackerService {
	return &TrackerService{
		probe:          probe,
		resolver:       resolver,
		store:          store,
		interval:       interval,
		resolveTimeout: resolveTimeout,
		seg:            NewSegmenter(),
		enabled:        true,
		persistCh:      make(chan model.ActivityRecord, persistQueueSize),
		now:            time.Now,
	}
}

// Start runs the polling loop until the context is canceled. On cancellation
// the open session is flushed and the persist queue drained before Start
// returns, so the last in-progress interval reaches the store.
//
// A tick that overruns the interval (a slow domain resolution) causes the
// ticker to drop the missed tick rather than backlog it; cadence is preserved
// over completeness.
func (s *TrackerService) Start(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.persistWorker()
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("tracker started", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.flushOpen()
			close(s.persistCh)
			wg.Wait()
			slog.Info("tracker stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick processes one poll cycle. The segmenter lock is held for the whole
// cycle; domain resolution is time-boxed so the hold is bounded.
func (s *TrackerService) tick(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	if !s.enabled {
		if closed := s.seg.Flush(now); closed != nil {
			s.enqueue(*closed)
		}
		return
	}

	sample, err := s.probe.Sample(ctx)
	if err != nil {
		// Transient sampling failure: no new information this tick. The open
		// session stays open; we retry on the next tick.
		if !errors.Is(err, driven.ErrNoForegroundWindow) {
			slog.Debug("window sample failed", "error", err)
		}
		return
	}

	if s.resolver.IsBrowser(sample.ProcessName) {
		rctx, cancel := context.WithTimeout(ctx, s.resolveTimeout)
		sample.Domain = s.resolver.Resolve(rctx, sample)
		cancel()
	}

	if closed := s.seg.Observe(sample, now); closed != nil {
		s.enqueue(*closed)
	}
}

// Enable turns tracking on.
func (s *TrackerService) Enable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = true
	slog.Info("tracking enabled")
}

// Disable turns tracking off and flushes the open session immediately rather
// than waiting for the next tick.
func (s *TrackerService) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = false
	if closed := s.seg.Flush(s.now()); closed != nil {
		s.enqueue(*closed)
	}
	slog.Info("tracking disabled")
}

// IsTracking reports whether tracking is enabled.
func (s *TrackerService) IsTracking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// flushOpen force-closes the open session on shutdown.
func (s *TrackerService) flushOpen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if closed := s.seg.Flush(s.now()); closed != nil {
		s.enqueue(*closed)
	}
}

// enqueue hands a closed record to the persist worker. A full queue means the
// store has been failing for a long stretch; the record is dropped with an
// error log instead of blocking the timer.
func (s *TrackerService) enqueue(record model.ActivityRecord) {
	select {
	case s.persistCh <- record:
	default:
		slog.Error("persist queue full, dropping record",
			"process", record.ProcessName,
			"start", record.StartTime,
			"duration", record.Duration,
		)
	}
}

// persistWorker drains the persist queue, retrying each insert with
// exponential backoff. A record that still fails after the bounded retries is
// logged and dropped; that is the documented data-loss boundary. Writes use a
// detached context so the shutdown flush still reaches the store.
func (s *TrackerService) persistWorker() {
	for record := range s.persistCh {
		policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxPersistAttempts)

		err := backoff.Retry(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_, insertErr := s.store.Insert(ctx, record)
			return insertErr
		}, policy)

		if err != nil {
			slog.Error("persist failed after retries, record dropped",
				"process", record.ProcessName,
				"start", record.StartTime,
				"duration", record.Duration,
				"error", err,
			)
			continue
		}

		slog.Debug("session persisted",
			"process", record.ProcessName,
			"domain", record.Domain,
			"duration", record.Duration,
		)
	}
}
