// Package application contains use-case orchestration services.
package application

import (
	"time"

	"github.com/ericfisherdev/timepanel/internal/domain/model"
)

// Segmenter turns the stream of poll samples into closed activity records. It
// is a two-state machine: Idle (no open session) and Tracking (one open
// session). A session stays open while consecutive samples carry the same
// (process, title, domain) triple; any change in any component is a boundary.
//
// Segmenter is not safe for concurrent use on its own. The tracker service
// owns one instance and mutates it only under its lock.
type Segmenter struct {
	open *openSession
}

// openSession is the single in-memory session under construction.
type openSession struct {
	key   model.SessionKey
	start time.Time
}

// NewSegmenter creates a segmenter in the Idle state.
func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// Tracking reports whether a session is currently open.
func (s *Segmenter) Tracking() bool {
	return s.open != nil
}

// Current returns the open session's key and start time. ok is false in Idle.
func (s *Segmenter) Current() (key model.SessionKey, start time.Time, ok bool) {
	if s.open == nil {
		return model.SessionKey{}, time.Time{}, false
	}
	return s.open.key, s.open.start, true
}

// Observe advances the state machine with one sample taken at now. When the
// sample's triple differs from the open session, the open session is closed
// and returned and a new session opens from the sample. Identical samples
// extend the open session and return nil.
//
// A sample with an empty process name carries no identity: it closes any open
// session and leaves the segmenter Idle.
func (s *Segmenter) Observe(sample model.Sample, now time.Time) *model.ActivityRecord {
	if sample.ProcessName == "" {
		return s.Flush(now)
	}

	key := sample.Key()

	if s.open == nil {
		s.open = &openSession{key: key, start: now}
		return nil
	}

	if s.open.key == key {
		return nil
	}

	closed := s.close(now)
	s.open = &openSession{key: key, start: now}
	return closed
}

// Flush closes the open session at now, if any, and moves to Idle. It is
// called when tracking is disabled and on shutdown so the last in-progress
// interval is not lost.
func (s *Segmenter) Flush(now time.Time) *model.ActivityRecord {
	if s.open == nil {
		return nil
	}
	closed := s.close(now)
	s.open = nil
	return closed
}

// close finalizes the open session. Sessions shorter than one second are
// discarded: nothing observable happened at the poll cadence.
func (s *Segmenter) close(now time.Time) *model.ActivityRecord {
	duration := int64(now.Sub(s.open.start).Seconds())
	if duration < 1 {
		return nil
	}

	return &model.ActivityRecord{
		ProcessName: s.open.key.ProcessName,
		WindowTitle: s.open.key.WindowTitle,
		Domain:      s.open.key.Domain,
		StartTime:   s.open.start,
		EndTime:     now,
		Duration:    duration,
	}
}
