package model

// SyncOutcome is the result of pushing one activity's time entry to an
// external ticket-tracking service.
type SyncOutcome struct {
	Success    bool
	Message    string
	ExternalID string // Identifier assigned by the external system, if any.
}

// TicketMatch pairs an integration with the ticket id its extraction rules
// mined from an activity. One activity may produce zero or more matches, at
// most one per integration.
type TicketMatch struct {
	Integration string
	TicketID    string
}

// RuleSource identifies which activity field an extraction rule runs against.
type RuleSource string

const (
	RuleSourceWindowTitle RuleSource = "window_title"
	RuleSourceProcessName RuleSource = "process_name"
	RuleSourceDomain      RuleSource = "domain"
)

// FieldFrom returns the activity field named by the source. Unknown sources
// fall back to the window title, matching the original rule semantics.
func (s RuleSource) FieldFrom(activity ActivityRecord) string {
	switch s {
	case RuleSourceProcessName:
		return activity.ProcessName
	case RuleSourceDomain:
		return activity.Domain
	default:
		return activity.WindowTitle
	}
}
