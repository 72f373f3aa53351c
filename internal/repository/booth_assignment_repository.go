package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/expo-access/internal/model"
)

// BoothAssignmentRepo provides access to booth_assignments.  Dates are
// stored as DATE columns and compared inclusively.
type BoothAssignmentRepo struct {
	db *sql.DB
}

// NewBoothAssignmentRepo returns a BoothAssignmentRepo bound to db.
func NewBoothAssignmentRepo(db *sql.DB) *BoothAssignmentRepo { return &BoothAssignmentRepo{db: db} }

// DB exposes the handle so services can open transactions.
func (r *BoothAssignmentRepo) DB() *sql.DB { return r.db }

// CountForBoothTx counts every assignment row referencing the booth,
// regardless of dates or status.
func (r *BoothAssignmentRepo) CountForBoothTx(ctx context.Context, tx *sql.Tx, boothID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM booth_assignments WHERE booth_position_id = ?`, boothID).Scan(&n)
	return n, err
}

// CountOverlappingTx counts non-completed assignments of the booth whose
// inclusive date range intersects [start, end].
func (r *BoothAssignmentRepo) CountOverlappingTx(ctx context.Context, tx *sql.Tx, boothID uint64, start, end time.Time) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM booth_assignments
		 WHERE booth_position_id = ? AND assignment_status <> ? AND start_date <= ? AND end_date >= ?`,
		boothID, string(model.AssignmentCompleted), dateOnly(end), dateOnly(start)).Scan(&n)
	return n, err
}

// CreateTx inserts the assignment inside tx with status assigned.
func (r *BoothAssignmentRepo) CreateTx(ctx context.Context, tx *sql.Tx, a *model.BoothAssignment) error {
	now := time.Now().UTC()
	a.Status = model.AssignmentAssigned
	res, err := tx.ExecContext(ctx,
		`INSERT INTO booth_assignments (booth_position_id, exhibitor_id, assignment_date, start_date, end_date,
		                                setup_time, breakdown_time, special_requirements, assignment_status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.BoothPositionID, a.ExhibitorID, dateOnly(a.AssignmentDate), dateOnly(a.StartDate), dateOnly(a.EndDate),
		a.SetupTime, a.BreakdownTime, a.SpecialRequirements, string(a.Status), now, now)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

const assignmentSelect = `SELECT ba.id, ba.booth_position_id, ba.exhibitor_id, ba.assignment_date, ba.start_date, ba.end_date,
                                 ba.setup_time, ba.breakdown_time, ba.special_requirements, ba.assignment_status,
                                 bp.booth_number, e.company_name, ba.created_at, ba.updated_at
                          FROM booth_assignments ba
                          JOIN booth_positions bp ON bp.id = ba.booth_position_id
                          JOIN exhibitors e ON e.id = ba.exhibitor_id`

// GetByID returns an assignment or ErrNotFound.
func (r *BoothAssignmentRepo) GetByID(ctx context.Context, id uint64) (*model.BoothAssignment, error) {
	a, err := scanAssignment(r.db.QueryRowContext(ctx, assignmentSelect+` WHERE ba.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// List returns all assignments ordered by start date.
func (r *BoothAssignmentRepo) List(ctx context.Context) ([]model.BoothAssignment, error) {
	rows, err := r.db.QueryContext(ctx, assignmentSelect+` ORDER BY ba.start_date, ba.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.BoothAssignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// UpdateStatus moves the assignment from `from` to `to`.  The write only
// applies while the row still holds `from`; otherwise ErrStaleState is
// returned (or ErrNotFound when the row does not exist at all).
func (r *BoothAssignmentRepo) UpdateStatus(ctx context.Context, id uint64, from, to model.AssignmentStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE booth_assignments SET assignment_status = ?, updated_at = ? WHERE id = ? AND assignment_status = ?`,
		string(to), time.Now().UTC(), id, string(from))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var one int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM booth_assignments WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrStaleState
}

// AssignedBoothIDs returns the distinct booths referenced by any
// assignment row.
func (r *BoothAssignmentRepo) AssignedBoothIDs(ctx context.Context) (map[uint64]model.AssignmentStatus, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT booth_position_id, assignment_status FROM booth_assignments ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[uint64]model.AssignmentStatus{}
	for rows.Next() {
		var (
			id     uint64
			status string
		)
		if err := rows.Scan(&id, &status); err != nil {
			return nil, err
		}
		out[id] = model.AssignmentStatus(status) // latest row wins
	}
	return out, rows.Err()
}

func scanAssignment(s rowScanner) (*model.BoothAssignment, error) {
	var (
		a                         model.BoothAssignment
		setup, breakdown, special sql.NullString
		status                    string
	)
	if err := s.Scan(&a.ID, &a.BoothPositionID, &a.ExhibitorID, &a.AssignmentDate, &a.StartDate, &a.EndDate,
		&setup, &breakdown, &special, &status, &a.BoothNumber, &a.CompanyName, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Status = model.AssignmentStatus(status)
	a.SetupTime = nullStringPtr(setup)
	a.BreakdownTime = nullStringPtr(breakdown)
	a.SpecialRequirements = nullStringPtr(special)
	return &a, nil
}

func nullStringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// dateOnly formats t as a DATE literal.
func dateOnly(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// countGrouped runs a `SELECT key, COUNT(*) ... GROUP BY key` query.
func countGrouped(ctx context.Context, db *sql.DB, q string, args ...interface{}) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var (
			k string
			n int
		)
		if err := rows.Scan(&k, &n); err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, rows.Err()
}

// countOne runs a single-value COUNT query.
func countOne(ctx context.Context, db *sql.DB, q string, args ...interface{}) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, q, args...).Scan(&n)
	return n, err
}
