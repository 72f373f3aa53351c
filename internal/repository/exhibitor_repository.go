package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/expo-access/internal/model"
)

// ExhibitorRepo provides access to the exhibitors table.
type ExhibitorRepo struct {
	db *sql.DB
}

// NewExhibitorRepo returns an ExhibitorRepo bound to db.
func NewExhibitorRepo(db *sql.DB) *ExhibitorRepo { return &ExhibitorRepo{db: db} }

// DB exposes the handle so services can open transactions.
func (r *ExhibitorRepo) DB() *sql.DB { return r.db }

const exhibitorColumns = `id, company_name, company_description, contact_email, contact_phone, website_url, booth_number,
                          benefit_title, benefit_description, benefit_percentage, advisor_name, advisor_email,
                          advisor_phone, is_active, created_at`

const exhibitorInsert = `INSERT INTO exhibitors (company_name, company_description, contact_email, contact_phone, website_url,
                         booth_number, benefit_title, benefit_description, benefit_percentage, advisor_name,
                         advisor_email, advisor_phone, is_active, created_at) VALUES `

const exhibitorPlaceholders = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"

func exhibitorArgs(e *model.Exhibitor, now time.Time) []interface{} {
	return []interface{}{
		e.CompanyName, e.CompanyDescription, e.ContactEmail, e.ContactPhone, e.WebsiteURL,
		e.BoothNumber, e.BenefitTitle, e.BenefitDescription, e.BenefitPercentage, e.AdvisorName,
		e.AdvisorEmail, e.AdvisorPhone, e.IsActive, now,
	}
}

// DefaultBoothNumber is the label given to an exhibitor created without one.
func DefaultBoothNumber(n uint64) string { return fmt.Sprintf("B%03d", n) }

// Create inserts one exhibitor.  A blank booth number is replaced by
// DefaultBoothNumber of the new id in the same transaction.
func (r *ExhibitorRepo) Create(ctx context.Context, e *model.Exhibitor) error {
	now := time.Now().UTC()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx, exhibitorInsert+exhibitorPlaceholders, exhibitorArgs(e, now)...)
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
	booth := e.BoothNumber
	if booth == "" {
		booth = DefaultBoothNumber(uint64(id))
		if _, err := tx.ExecContext(ctx, `UPDATE exhibitors SET booth_number = ? WHERE id = ?`, booth, id); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	e.ID = uint64(id)
	e.BoothNumber = booth
	e.CreatedAt = now
	return nil
}

// CreateBulkTx inserts many exhibitors in one statement inside tx.
func (r *ExhibitorRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, list []model.Exhibitor) error {
	if len(list) == 0 {
		return nil
	}
	now := time.Now().UTC()
	var b strings.Builder
	b.WriteString(exhibitorInsert)
	args := make([]interface{}, 0, len(list)*14)
	for i := range list {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(exhibitorPlaceholders)
		args = append(args, exhibitorArgs(&list[i], now)...)
	}
	if _, err := tx.ExecContext(ctx, b.String(), args...); err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// GetByID returns an exhibitor or ErrNotFound.
func (r *ExhibitorRepo) GetByID(ctx context.Context, id uint64) (*model.Exhibitor, error) {
	e, err := scanExhibitor(r.db.QueryRowContext(ctx, `SELECT `+exhibitorColumns+` FROM exhibitors WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// List returns exhibitors ordered by company name.  activeOnly restricts
// the result to active exhibitors.
func (r *ExhibitorRepo) List(ctx context.Context, activeOnly bool) ([]model.Exhibitor, error) {
	q := `SELECT ` + exhibitorColumns + ` FROM exhibitors`
	if activeOnly {
		q += ` WHERE is_active = 1`
	}
	q += ` ORDER BY company_name, id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Exhibitor{}
	for rows.Next() {
		e, err := scanExhibitor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// SetActive toggles is_active.
func (r *ExhibitorRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE exhibitors SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Exists reports whether an exhibitor with id exists.
func (r *ExhibitorRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM exhibitors WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func scanExhibitor(s rowScanner) (*model.Exhibitor, error) {
	var e model.Exhibitor
	if err := s.Scan(&e.ID, &e.CompanyName, &e.CompanyDescription, &e.ContactEmail, &e.ContactPhone, &e.WebsiteURL,
		&e.BoothNumber, &e.BenefitTitle, &e.BenefitDescription, &e.BenefitPercentage, &e.AdvisorName,
		&e.AdvisorEmail, &e.AdvisorPhone, &e.IsActive, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}
