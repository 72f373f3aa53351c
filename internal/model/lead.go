package model

import "time"

// LeadType distinguishes benefit requests from meeting requests.
type LeadType string

const (
	LeadBenefit LeadType = "benefit"
	LeadMeeting LeadType = "meeting"
)

// Valid reports whether t is a known lead type.
func (t LeadType) Valid() bool { return t == LeadBenefit || t == LeadMeeting }

// LeadStatus progresses pending -> contacted -> completed.
type LeadStatus string

const (
	LeadPending   LeadStatus = "pending"
	LeadContacted LeadStatus = "contacted"
	LeadCompleted LeadStatus = "completed"
)

// Valid reports whether s is a known lead status.
func (s LeadStatus) Valid() bool {
	return s == LeadPending || s == LeadContacted || s == LeadCompleted
}

// CanAdvanceTo reports whether moving from s to next keeps the status
// monotonic.  Skipping contacted is allowed; going back or staying put is not.
func (s LeadStatus) CanAdvanceTo(next LeadStatus) bool {
	rank := map[LeadStatus]int{LeadPending: 0, LeadContacted: 1, LeadCompleted: 2}
	a, ok1 := rank[s]
	b, ok2 := rank[next]
	return ok1 && ok2 && b > a
}

// Lead is a visitor-initiated contact request directed at an exhibitor.
type Lead struct {
	ID           uint64     `json:"id"`
	ExhibitorID  uint64     `json:"exhibitor_id"`
	VisitorName  string     `json:"visitor_name"`
	VisitorEmail string     `json:"visitor_email"`
	VisitorPhone string     `json:"visitor_phone"`
	LeadType     LeadType   `json:"lead_type"`
	Status       LeadStatus `json:"status"`
	Notes        *string    `json:"notes,omitempty"`
	CompanyName  string     `json:"company_name,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
