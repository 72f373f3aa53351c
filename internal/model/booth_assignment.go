package model

import "time"

// AssignmentStatus is the lifecycle state of a booth assignment.  States
// only move forward, one step at a time, in the order of assignmentOrder.
type AssignmentStatus string

const (
	AssignmentAssigned  AssignmentStatus = "assigned"
	AssignmentConfirmed AssignmentStatus = "confirmed"
	AssignmentSetup     AssignmentStatus = "setup"
	AssignmentActive    AssignmentStatus = "active"
	AssignmentBreakdown AssignmentStatus = "breakdown"
	AssignmentCompleted AssignmentStatus = "completed"
)

var assignmentOrder = []AssignmentStatus{
	AssignmentAssigned,
	AssignmentConfirmed,
	AssignmentSetup,
	AssignmentActive,
	AssignmentBreakdown,
	AssignmentCompleted,
}

// AssignmentStatuses returns the statuses in lifecycle order.
func AssignmentStatuses() []AssignmentStatus {
	out := make([]AssignmentStatus, len(assignmentOrder))
	copy(out, assignmentOrder)
	return out
}

// Valid reports whether s is a known status.
func (s AssignmentStatus) Valid() bool {
	return s.index() >= 0
}

// Next returns the immediate successor of s.  The second result is false
// for completed and for unknown statuses.
func (s AssignmentStatus) Next() (AssignmentStatus, bool) {
	i := s.index()
	if i < 0 || i == len(assignmentOrder)-1 {
		return "", false
	}
	return assignmentOrder[i+1], true
}

func (s AssignmentStatus) index() int {
	for i, v := range assignmentOrder {
		if v == s {
			return i
		}
	}
	return -1
}

// BoothAssignment binds one exhibitor to one booth for a date range.
type BoothAssignment struct {
	ID                  uint64           `json:"id"`
	BoothPositionID     uint64           `json:"booth_position_id"`
	ExhibitorID         uint64           `json:"exhibitor_id"`
	AssignmentDate      time.Time        `json:"assignment_date"`
	StartDate           time.Time        `json:"start_date"`
	EndDate             time.Time        `json:"end_date"`
	SetupTime           *string          `json:"setup_time,omitempty"`
	BreakdownTime       *string          `json:"breakdown_time,omitempty"`
	SpecialRequirements *string          `json:"special_requirements,omitempty"`
	Status              AssignmentStatus `json:"assignment_status"`
	BoothNumber         string           `json:"booth_number,omitempty"`
	CompanyName         string           `json:"company_name,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// Overlaps reports whether the inclusive date ranges [aStart, aEnd] and
// [bStart, bEnd] share at least one day.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}
