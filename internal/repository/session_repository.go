package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/expo-access/internal/model"
)

// SessionRepo provides access to event_sessions and exhibitor_presentations.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a SessionRepo bound to db.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// CreateSession inserts an agenda session.
func (r *SessionRepo) CreateSession(ctx context.Context, s *model.EventSession) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO event_sessions (title, description, session_type, start_time, end_time, location, max_capacity, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Title, s.Description, s.SessionType, s.StartTime.UTC(), s.EndTime.UTC(), s.Location, s.MaxCapacity, s.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// ListSessions returns sessions ordered by start time.
func (r *SessionRepo) ListSessions(ctx context.Context) ([]model.EventSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, description, session_type, start_time, end_time, location, max_capacity, is_active
		 FROM event_sessions ORDER BY start_time, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.EventSession{}
	for rows.Next() {
		var (
			s              model.EventSession
			desc, location sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Title, &desc, &s.SessionType, &s.StartTime, &s.EndTime, &location, &s.MaxCapacity, &s.IsActive); err != nil {
			return nil, err
		}
		s.Description = nullStringPtr(desc)
		s.Location = nullStringPtr(location)
		out = append(out, s)
	}
	return out, rows.Err()
}

// SessionExists reports whether a session with id exists.
func (r *SessionRepo) SessionExists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM event_sessions WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// CreatePresentation inserts an unconfirmed presentation.
func (r *SessionRepo) CreatePresentation(ctx context.Context, p *model.ExhibitorPresentation) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO exhibitor_presentations (exhibitor_id, session_id, presentation_title, presentation_description,
		                                      presenter_name, presenter_title, is_confirmed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		p.ExhibitorID, p.SessionID, p.Title, p.Description, p.PresenterName, p.PresenterTitle, now)
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
	p.ID = uint64(id)
	p.IsConfirmed = false
	p.CreatedAt = now
	return nil
}

// ConfirmPresentation sets is_confirmed.  Confirming twice is a no-op.
func (r *SessionRepo) ConfirmPresentation(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE exhibitor_presentations SET is_confirmed = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM exhibitor_presentations WHERE id = ?`, id).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
	}
	return nil
}

// ListPresentations returns presentations with company and session titles.
func (r *SessionRepo) ListPresentations(ctx context.Context) ([]model.ExhibitorPresentation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.exhibitor_id, p.session_id, p.presentation_title, p.presentation_description,
		        p.presenter_name, p.presenter_title, p.is_confirmed, e.company_name, s.title, p.created_at
		 FROM exhibitor_presentations p
		 JOIN exhibitors e ON e.id = p.exhibitor_id
		 JOIN event_sessions s ON s.id = p.session_id
		 ORDER BY s.start_time, p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ExhibitorPresentation{}
	for rows.Next() {
		var (
			p                   model.ExhibitorPresentation
			desc, pName, pTitle sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.ExhibitorID, &p.SessionID, &p.Title, &desc, &pName, &pTitle,
			&p.IsConfirmed, &p.CompanyName, &p.SessionTitle, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Description = nullStringPtr(desc)
		p.PresenterName = nullStringPtr(pName)
		p.PresenterTitle = nullStringPtr(pTitle)
		out = append(out, p)
	}
	return out, rows.Err()
}
