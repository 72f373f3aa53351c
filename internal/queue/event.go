// Package queue carries row-change events between the API and the
// notification worker over RabbitMQ.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/expo-access/internal/model"
)

// Event types published on the change feed.
const (
	EventLeadCreated = "lead.created"
	EventQRRedeemed  = "qr.redeemed"
)

// ChangeEvent describes one committed row change.  Exactly one of Lead
// and QRCode is set, matching Table.  For qr.redeemed, WasUsed carries the
// pre-change value of is_used so consumers can detect the false to true
// edge without a second read.
type ChangeEvent struct {
	ID         string        `json:"id"`
	Type       string        `json:"type"`
	Table      string        `json:"table"`
	Op         string        `json:"op"` // INSERT | UPDATE
	OccurredAt time.Time     `json:"occurred_at"`
	Lead       *model.Lead   `json:"lead,omitempty"`
	QRCode     *model.QRCode `json:"qr_code,omitempty"`
	WasUsed    bool          `json:"was_used"`
}

// LeadCreated builds the event for a freshly inserted lead.
func LeadCreated(l model.Lead) ChangeEvent {
	return ChangeEvent{
		ID:         uuid.NewString(),
		Type:       EventLeadCreated,
		Table:      "leads",
		Op:         "INSERT",
		OccurredAt: time.Now().UTC(),
		Lead:       &l,
	}
}

// QRRedeemed builds the event for the first redemption of a code.
func QRRedeemed(q model.QRCode) ChangeEvent {
	return ChangeEvent{
		ID:         uuid.NewString(),
		Type:       EventQRRedeemed,
		Table:      "qr_codes",
		Op:         "UPDATE",
		OccurredAt: time.Now().UTC(),
		QRCode:     &q,
		WasUsed:    false,
	}
}
