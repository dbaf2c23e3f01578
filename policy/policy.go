// Package policy holds the domain-policy parameters that differ between
// degree programs. The thresholds are deliberately configurable rather than
// hard-coded: historical course material disagrees on the minimum internship
// span and hour requirements, so each deployment supplies its own values.
package policy

// Policy bundles the tunable business thresholds consumed by the workflow
// engine, the eligibility gate, and the scoring engine.
type Policy struct {
	// MinInternshipDays is the shortest allowed span between the internship
	// start and end dates on a CS05 request.
	MinInternshipDays int
	// MinApprovedHours is the supervisor-approved hour total a student must
	// reach before an evaluation request may be sent.
	MinApprovedHours float64
	// PassMark is the minimum rubric total score counted as a pass.
	PassMark int
	// MaxDailyHours caps a single logbook entry.
	MaxDailyHours float64
	// NotificationsEnabled is the system-wide toggle for evaluation sending.
	NotificationsEnabled bool
}

// Default returns the policy used when no deployment overrides are present.
func Default() Policy {
	return Policy{
		MinInternshipDays:    60,
		MinApprovedHours:     240,
		PassMark:             70,
		MaxDailyHours:        12,
		NotificationsEnabled: true,
	}
}
