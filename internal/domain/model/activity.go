package model

import "time"

// Sample is a single snapshot of the currently focused window, as captured by
// the window probe on one poll tick. Domain is filled in by the browser
// resolver for recognized browser processes and is empty otherwise.
type Sample struct {
	ProcessName string
	WindowTitle string
	Domain      string
}

// Key returns the identity triple used for session boundary detection. Any
// change in any component, including the domain alone, is a boundary.
func (s Sample) Key() SessionKey {
	return SessionKey{
		ProcessName: s.ProcessName,
		WindowTitle: s.WindowTitle,
		Domain:      s.Domain,
	}
}

// SessionKey is the comparable identity of an open session.
type SessionKey struct {
	ProcessName string
	WindowTitle string
	Domain      string
}

// ActivityRecord represents one finished focus session: a closed interval
// during which a single (process, title, domain) triple held foreground focus.
// Records are immutable once persisted.
type ActivityRecord struct {
	ID          int64
	ProcessName string
	WindowTitle string
	Domain      string // Empty when the process is not a recognized browser.
	StartTime   time.Time
	EndTime     time.Time
	Duration    int64 // Seconds; always EndTime - StartTime.
}

// HasDomain reports whether the record carries a resolved browser domain.
func (a ActivityRecord) HasDomain() bool {
	return a.Domain != ""
}

// Date returns the record's start date in YYYY-MM-DD form, which is how the
// store indexes and range-scans activities.
func (a ActivityRecord) Date() string {
	return a.StartTime.Format("2006-01-02")
}
