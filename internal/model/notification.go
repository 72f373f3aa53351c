package model

import "time"

// NotificationKind groups notifications for display.
type NotificationKind string

const (
	NotifyLead    NotificationKind = "lead"
	NotifyMeeting NotificationKind = "meeting"
	NotifyAccess  NotificationKind = "system"
)

// Notification is a user-facing message produced from a change event.
type Notification struct {
	ID        string            `json:"id"`
	Recipient string            `json:"recipient"`
	Kind      NotificationKind  `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Data      map[string]string `json:"data,omitempty"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"timestamp"`
}
