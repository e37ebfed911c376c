package model

import "regexp"

// ExtractionRule is one compiled ticket-id rule: a pattern whose first
// capture group is the ticket id, run against a single activity field.
type ExtractionRule struct {
	Pattern *regexp.Regexp
	Source  RuleSource
}

// RuleSet is an ordered list of extraction rules belonging to one
// integration. Rules are evaluated in configured order; the first rule whose
// pattern captures a group on its source field wins.
type RuleSet []ExtractionRule

// Extract runs the rule set against the activity. ok is false when no rule
// produces a capture.
func (rs RuleSet) Extract(activity ActivityRecord) (ticketID string, ok bool) {
	for _, rule := range rs {
		text := rule.Source.FieldFrom(activity)
		if text == "" {
			continue
		}
		m := rule.Pattern.FindStringSubmatch(text)
		if len(m) >= 2 && m[1] != "" {
			return m[1], true
		}
	}
	return "", false
}
