package repository

import (
	"context"
	"database/sql"
	"time"
)

// ReportRepo runs the aggregate queries behind the admin dashboard.  Each
// method is a single independent read so callers may run them in parallel.
type ReportRepo struct {
	db *sql.DB
}

// NewReportRepo returns a ReportRepo bound to db.
func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{db: db} }

// ExhibitorCounts returns total and active exhibitors.
func (r *ReportRepo) ExhibitorCounts(ctx context.Context) (total, active int, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_active = 1 THEN 1 ELSE 0 END), 0) FROM exhibitors`).Scan(&total, &active)
	return total, active, err
}

// LeadsByType counts leads per lead_type.
func (r *ReportRepo) LeadsByType(ctx context.Context) (map[string]int, error) {
	return countGrouped(ctx, r.db, `SELECT lead_type, COUNT(*) FROM leads GROUP BY lead_type`)
}

// LeadsByStatus counts leads per status.
func (r *ReportRepo) LeadsByStatus(ctx context.Context) (map[string]int, error) {
	return countGrouped(ctx, r.db, `SELECT status, COUNT(*) FROM leads GROUP BY status`)
}

// QRBySubject counts issued codes per subject type.
func (r *ReportRepo) QRBySubject(ctx context.Context) (map[string]int, error) {
	return countGrouped(ctx, r.db, `SELECT user_type, COUNT(*) FROM qr_codes GROUP BY user_type`)
}

// QRUsed counts redeemed codes.
func (r *ReportRepo) QRUsed(ctx context.Context) (int, error) {
	return countOne(ctx, r.db, `SELECT COUNT(*) FROM qr_codes WHERE is_used = 1`)
}

// LeadsSince counts leads created at or after t.
func (r *ReportRepo) LeadsSince(ctx context.Context, t time.Time) (int, error) {
	return countOne(ctx, r.db, `SELECT COUNT(*) FROM leads WHERE created_at >= ?`, t.UTC())
}

// ScansSince counts codes redeemed at or after t.
func (r *ReportRepo) ScansSince(ctx context.Context, t time.Time) (int, error) {
	return countOne(ctx, r.db, `SELECT COUNT(*) FROM qr_codes WHERE used_at >= ?`, t.UTC())
}

// PresentationCounts returns confirmed and pending presentations.
func (r *ReportRepo) PresentationCounts(ctx context.Context) (confirmed, pending int, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN is_confirmed = 1 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN is_confirmed = 0 THEN 1 ELSE 0 END), 0)
		 FROM exhibitor_presentations`).Scan(&confirmed, &pending)
	return confirmed, pending, err
}

// AssignmentsByStatus counts booth assignments per status.
func (r *ReportRepo) AssignmentsByStatus(ctx context.Context) (map[string]int, error) {
	return countGrouped(ctx, r.db, `SELECT assignment_status, COUNT(*) FROM booth_assignments GROUP BY assignment_status`)
}
