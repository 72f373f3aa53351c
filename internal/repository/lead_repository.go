package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/expo-access/internal/model"
)

// LeadRepo provides access to the leads table.
type LeadRepo struct {
	db *sql.DB
}

// NewLeadRepo returns a LeadRepo bound to db.
func NewLeadRepo(db *sql.DB) *LeadRepo { return &LeadRepo{db: db} }

// Create inserts a lead.  Status is taken from l (callers set pending).
func (r *LeadRepo) Create(ctx context.Context, l *model.Lead) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO leads (exhibitor_id, visitor_name, visitor_email, visitor_phone, lead_type, status, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ExhibitorID, l.VisitorName, l.VisitorEmail, l.VisitorPhone, string(l.LeadType), string(l.Status), l.Notes, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	l.CreatedAt = now
	l.UpdatedAt = now
	return nil
}

const leadSelect = `SELECT l.id, l.exhibitor_id, l.visitor_name, l.visitor_email, l.visitor_phone, l.lead_type, l.status,
                           l.notes, e.company_name, l.created_at, l.updated_at
                    FROM leads l
                    JOIN exhibitors e ON e.id = l.exhibitor_id`

// GetByID returns a lead or ErrNotFound.
func (r *LeadRepo) GetByID(ctx context.Context, id uint64) (*model.Lead, error) {
	l, err := scanLead(r.db.QueryRowContext(ctx, leadSelect+` WHERE l.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return l, err
}

// LeadFilter narrows List results.  Zero values mean "any".
type LeadFilter struct {
	ExhibitorID uint64
	Status      model.LeadStatus
	LeadType    model.LeadType
}

// List returns leads newest first.
func (r *LeadRepo) List(ctx context.Context, f LeadFilter) ([]model.Lead, error) {
	q := leadSelect + ` WHERE 1=1`
	var args []interface{}
	if f.ExhibitorID != 0 {
		q += ` AND l.exhibitor_id = ?`
		args = append(args, f.ExhibitorID)
	}
	if f.Status != "" {
		q += ` AND l.status = ?`
		args = append(args, string(f.Status))
	}
	if f.LeadType != "" {
		q += ` AND l.lead_type = ?`
		args = append(args, string(f.LeadType))
	}
	q += ` ORDER BY l.created_at DESC, l.id DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// UpdateStatus moves a lead from `from` to `to` and optionally replaces the
// notes.  It returns ErrStaleState when the row no longer has status
// `from`.
func (r *LeadRepo) UpdateStatus(ctx context.Context, id uint64, from, to model.LeadStatus, notes *string) error {
	q := `UPDATE leads SET status = ?, updated_at = ?`
	args := []interface{}{string(to), time.Now().UTC()}
	if notes != nil {
		q += `, notes = ?`
		args = append(args, *notes)
	}
	q += ` WHERE id = ? AND status = ?`
	args = append(args, id, string(from))
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrStaleState
	}
	return nil
}

func scanLead(s rowScanner) (*model.Lead, error) {
	var (
		l                model.Lead
		leadType, status string
		notes            sql.NullString
	)
	if err := s.Scan(&l.ID, &l.ExhibitorID, &l.VisitorName, &l.VisitorEmail, &l.VisitorPhone, &leadType, &status,
		&notes, &l.CompanyName, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.LeadType = model.LeadType(leadType)
	l.Status = model.LeadStatus(status)
	l.Notes = nullStringPtr(notes)
	return &l, nil
}
