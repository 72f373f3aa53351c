package model

import "time"

// EventSession is a scheduled slot in the event agenda.
type EventSession struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	SessionType string    `json:"session_type"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Location    *string   `json:"location,omitempty"`
	MaxCapacity int       `json:"max_capacity"`
	IsActive    bool      `json:"is_active"`
}

// ExhibitorPresentation places an exhibitor talk inside a session.
type ExhibitorPresentation struct {
	ID             uint64    `json:"id"`
	ExhibitorID    uint64    `json:"exhibitor_id"`
	SessionID      uint64    `json:"session_id"`
	Title          string    `json:"presentation_title"`
	Description    *string   `json:"presentation_description,omitempty"`
	PresenterName  *string   `json:"presenter_name,omitempty"`
	PresenterTitle *string   `json:"presenter_title,omitempty"`
	IsConfirmed    bool      `json:"is_confirmed"`
	CompanyName    string    `json:"company_name,omitempty"`
	SessionTitle   string    `json:"session_title,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
