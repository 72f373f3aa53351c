package model

import "time"

// SubjectType identifies who an access code was issued to.
type SubjectType string

const (
	SubjectVisitor   SubjectType = "visitor"
	SubjectExhibitor SubjectType = "exhibitor"
)

// Valid reports whether s is one of the known subject types.
func (s SubjectType) Valid() bool {
	return s == SubjectVisitor || s == SubjectExhibitor
}

// QRCode is an access token for the event.  Code is globally unique
// (qr_codes.code has a unique index).  UsedAt is non-nil exactly when IsUsed
// is true, and IsUsed never goes back to false once set.
type QRCode struct {
	ID           uint64      `json:"id"`            // qr_codes.id
	Code         string      `json:"code"`          // qr_codes.code (unique)
	SubjectType  SubjectType `json:"user_type"`     // qr_codes.user_type
	SubjectEmail string      `json:"user_email"`    // qr_codes.user_email
	SubjectName  string      `json:"user_name"`     // qr_codes.user_name
	CompanyName  *string     `json:"company_name"`  // qr_codes.company_name (nullable)
	IsUsed       bool        `json:"is_used"`       // qr_codes.is_used
	UsedAt       *time.Time  `json:"used_at"`       // qr_codes.used_at (nullable)
	CreatedAt    time.Time   `json:"created_at"`    // qr_codes.created_at
}
