package service

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ValidationReport accumulates what the snapshot validator found. Errors are
// fatal: an import must not proceed past them. Warnings are surfaced to the
// operator but do not block the import.
type ValidationReport struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (r *ValidationReport) errorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationReport) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors reports whether the snapshot must be rejected.
func (r *ValidationReport) HasErrors() bool {
	return len(r.Errors) > 0
}

// IntegrityError is returned when a snapshot fails validation. It carries
// the full report so callers can show every violation, not just the first.
type IntegrityError struct {
	Report *ValidationReport
}

func (e *IntegrityError) Error() string {
	if e.Report == nil || len(e.Report.Errors) == 0 {
		return "snapshot failed integrity validation"
	}
	return fmt.Sprintf("snapshot failed integrity validation: %s (and %d more)",
		e.Report.Errors[0], len(e.Report.Errors)-1)
}

// ValidateSnapshot runs the three validation passes over a snapshot:
// structural (collections present), referential (no dangling ids), and
// business rules (empty pools, ledger totals matching history). It never
// mutates anything.
func ValidateSnapshot(snap *Snapshot) *ValidationReport {
	report := &ValidationReport{}
	if snap == nil {
		report.errorf("snapshot is empty")
		return report
	}

	validateStructure(snap, report)
	if report.HasErrors() {
		// Referential checks against absent collections would only repeat
		// the structural errors.
		return report
	}
	validateReferences(snap, report)
	validateBusinessRules(snap, report)
	return report
}

func validateStructure(snap *Snapshot, report *ValidationReport) {
	if snap.Workouts == nil {
		report.errorf("missing collection: workouts")
	}
	if snap.Actions == nil {
		report.errorf("missing collection: actions")
	}
	if snap.Pools == nil {
		report.errorf("missing collection: workoutPools")
	}
	if snap.Memberships == nil {
		report.errorf("missing collection: workoutPoolWorkouts")
	}
	if snap.Sessions == nil {
		report.errorf("missing collection: sessions")
	}
	if snap.Completions == nil {
		report.errorf("missing collection: actionCompletions")
	}
	if snap.Received == nil {
		report.errorf("missing collection: workoutsReceived")
	}

	if snap.Version == "" {
		report.warnf("missing snapshot version tag")
	}
	if snap.ExportedAt.IsZero() {
		report.warnf("missing export timestamp")
	}
}

func validateReferences(snap *Snapshot, report *ValidationReport) {
	workouts := make(map[primitive.ObjectID]bool, len(snap.Workouts))
	for _, w := range snap.Workouts {
		workouts[w.ID] = true
	}
	actions := make(map[primitive.ObjectID]bool, len(snap.Actions))
	for _, a := range snap.Actions {
		actions[a.ID] = true
	}
	pools := make(map[primitive.ObjectID]bool, len(snap.Pools))
	for _, p := range snap.Pools {
		pools[p.ID] = true
	}
	sessions := make(map[primitive.ObjectID]bool, len(snap.Sessions))
	for _, s := range snap.Sessions {
		sessions[s.ID] = true
	}

	for _, m := range snap.Memberships {
		if !pools[m.PoolID] {
			report.errorf("pool membership %s references missing pool %s", m.ID.Hex(), m.PoolID.Hex())
		}
		if !workouts[m.WorkoutID] {
			report.errorf("pool membership %s references missing workout %s", m.ID.Hex(), m.WorkoutID.Hex())
		}
	}
	for _, s := range snap.Sessions {
		if !pools[s.PoolID] {
			report.errorf("session %s references missing pool %s", s.ID.Hex(), s.PoolID.Hex())
		}
	}
	for _, c := range snap.Completions {
		if !sessions[c.SessionID] {
			report.errorf("action completion %s references missing session %s", c.ID.Hex(), c.SessionID.Hex())
		}
		if !actions[c.ActionID] {
			report.errorf("action completion %s references missing action %s", c.ID.Hex(), c.ActionID.Hex())
		}
	}
	for _, r := range snap.Received {
		if !sessions[r.SessionID] {
			report.errorf("workout received %s references missing session %s", r.ID.Hex(), r.SessionID.Hex())
		}
		if !workouts[r.WorkoutID] {
			report.errorf("workout received %s references missing workout %s", r.ID.Hex(), r.WorkoutID.Hex())
		}
	}
}

// validateBusinessRules recomputes each session's ledger totals from its
// history and checks pools for emptiness. Mismatches are warnings, not
// errors: legacy data gets imported, but the drift is surfaced.
func validateBusinessRules(snap *Snapshot, report *ValidationReport) {
	memberCount := make(map[primitive.ObjectID]int, len(snap.Pools))
	for _, m := range snap.Memberships {
		memberCount[m.PoolID]++
	}
	for _, p := range snap.Pools {
		if memberCount[p.ID] == 0 {
			report.warnf("pool %s (%q) has no workouts", p.ID.Hex(), p.Name)
		}
	}

	earned := make(map[primitive.ObjectID]int, len(snap.Sessions))
	for _, c := range snap.Completions {
		earned[c.SessionID] += c.PointsAwarded
	}
	spent := make(map[primitive.ObjectID]int, len(snap.Sessions))
	for _, r := range snap.Received {
		spent[r.SessionID] += r.PointsSpent
	}

	for _, s := range snap.Sessions {
		if s.PointsEarned != earned[s.ID] {
			report.warnf("session %s stores pointsEarned=%d but its completions sum to %d",
				s.ID.Hex(), s.PointsEarned, earned[s.ID])
		}
		if s.PointsSpent != spent[s.ID] {
			report.warnf("session %s stores pointsSpent=%d but its redemptions sum to %d",
				s.ID.Hex(), s.PointsSpent, spent[s.ID])
		}
	}
}
