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

// QRCodeRepo provides data access to the qr_codes table.  qr_codes.code
// carries a unique index, so inserts report ErrConflict on a duplicate
// code and callers may retry with a fresh candidate.
type QRCodeRepo struct {
	db *sql.DB
}

// NewQRCodeRepo returns a QRCodeRepo bound to db.
func NewQRCodeRepo(db *sql.DB) *QRCodeRepo { return &QRCodeRepo{db: db} }

// DB exposes the handle so services can open transactions.
func (r *QRCodeRepo) DB() *sql.DB { return r.db }

const qrColumns = `id, code, user_type, user_email, user_name, company_name, is_used, used_at, created_at`

// Create inserts a single code and fills in ID and CreatedAt.
func (r *QRCodeRepo) Create(ctx context.Context, q *model.QRCode) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO qr_codes (code, user_type, user_email, user_name, company_name, is_used, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?)`,
		q.Code, string(q.SubjectType), q.SubjectEmail, q.SubjectName, q.CompanyName, now)
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
	q.ID = uint64(id)
	q.IsUsed = false
	q.UsedAt = nil
	q.CreatedAt = now
	return nil
}

// CreateBulkTx inserts all codes with a single statement inside tx.  A
// duplicate code anywhere in the batch fails the statement as a whole and
// is reported as ErrConflict.  On success the rows are read back inside tx
// and ID and CreatedAt are filled in on codes.
func (r *QRCodeRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, codes []model.QRCode) error {
	if len(codes) == 0 {
		return nil
	}
	now := time.Now().UTC()
	var b strings.Builder
	b.WriteString(`INSERT INTO qr_codes (code, user_type, user_email, user_name, company_name, is_used, created_at) VALUES `)
	args := make([]interface{}, 0, len(codes)*6)
	for i, q := range codes {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?, ?, ?, ?, 0, ?)")
		args = append(args, q.Code, string(q.SubjectType), q.SubjectEmail, q.SubjectName, q.CompanyName, now)
	}
	if _, err := tx.ExecContext(ctx, b.String(), args...); err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	ids, err := r.idsByCodeTx(ctx, tx, codes)
	if err != nil {
		return err
	}
	for i := range codes {
		id, ok := ids[codes[i].Code]
		if !ok {
			return fmt.Errorf("reload qr code %s: %w", codes[i].Code, ErrNotFound)
		}
		codes[i].ID = id
		codes[i].IsUsed = false
		codes[i].UsedAt = nil
		codes[i].CreatedAt = now
	}
	return nil
}

func (r *QRCodeRepo) idsByCodeTx(ctx context.Context, tx *sql.Tx, codes []model.QRCode) (map[string]uint64, error) {
	args := make([]interface{}, len(codes))
	for i, q := range codes {
		args[i] = q.Code
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(codes)), ",")
	rows, err := tx.QueryContext(ctx, `SELECT id, code FROM qr_codes WHERE code IN (`+marks+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]uint64, len(codes))
	for rows.Next() {
		var (
			id   uint64
			code string
		)
		if err := rows.Scan(&id, &code); err != nil {
			return nil, err
		}
		out[code] = id
	}
	return out, rows.Err()
}

// GetByCode returns the code row or ErrNotFound.
func (r *QRCodeRepo) GetByCode(ctx context.Context, code string) (*model.QRCode, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+qrColumns+` FROM qr_codes WHERE code = ?`, code)
	q, err := scanQRCode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return q, err
}

// MarkUsed performs the redemption write.  It only touches the row when it
// is still unused and reports whether this call performed the transition,
// so two concurrent scans cannot both observe a first-time success.
func (r *QRCodeRepo) MarkUsed(ctx context.Context, id uint64, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE qr_codes SET is_used = 1, used_at = ? WHERE id = ? AND is_used = 0`,
		at.UTC(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// QRFilter narrows List results.  Zero values mean "any".
type QRFilter struct {
	SubjectType model.SubjectType
	Used        *bool
	Limit       int
}

// List returns codes newest first.
func (r *QRCodeRepo) List(ctx context.Context, f QRFilter) ([]model.QRCode, error) {
	q := `SELECT ` + qrColumns + ` FROM qr_codes WHERE 1=1`
	var args []interface{}
	if f.SubjectType != "" {
		q += ` AND user_type = ?`
		args = append(args, string(f.SubjectType))
	}
	if f.Used != nil {
		q += ` AND is_used = ?`
		args = append(args, *f.Used)
	}
	q += ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.QRCode{}
	for rows.Next() {
		item, err := scanQRCode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

// Purge deletes a code.  This is an administrative clean-up outside the
// normal lifecycle.
func (r *QRCodeRepo) Purge(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM qr_codes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQRCode(s rowScanner) (*model.QRCode, error) {
	var (
		q       model.QRCode
		subject string
		company sql.NullString
		usedAt  sql.NullTime
	)
	if err := s.Scan(&q.ID, &q.Code, &subject, &q.SubjectEmail, &q.SubjectName, &company, &q.IsUsed, &usedAt, &q.CreatedAt); err != nil {
		return nil, err
	}
	q.SubjectType = model.SubjectType(subject)
	if company.Valid {
		c := company.String
		q.CompanyName = &c
	}
	if usedAt.Valid {
		t := usedAt.Time.UTC()
		q.UsedAt = &t
	}
	return &q, nil
}
