package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/expo-access/internal/model"
	"github.com/iliyamo/expo-access/internal/repository"
)

// ScheduleService manages the agenda and exhibitor presentations.
type ScheduleService struct {
	sessions   *repository.SessionRepo
	exhibitors *repository.ExhibitorRepo
}

func NewScheduleService(sessions *repository.SessionRepo, exhibitors *repository.ExhibitorRepo) *ScheduleService {
	return &ScheduleService{sessions: sessions, exhibitors: exhibitors}
}

// CreateSession stores an agenda slot.  Title, start and end are
// required and the slot must end after it starts.
func (s *ScheduleService) CreateSession(ctx context.Context, es *model.EventSession) error {
	es.Title = strings.TrimSpace(es.Title)
	if es.Title == "" {
		return invalid("title", "required")
	}
	if es.StartTime.IsZero() || es.EndTime.IsZero() {
		return invalid("start_time", "start_time and end_time are required")
	}
	if !es.EndTime.After(es.StartTime) {
		return invalid("end_time", "must be after start_time")
	}
	if es.SessionType == "" {
		es.SessionType = "presentation"
	}
	if es.MaxCapacity < 0 {
		return invalid("max_capacity", "must not be negative")
	}
	es.Description = trimPtr(es.Description)
	es.Location = trimPtr(es.Location)
	return s.sessions.CreateSession(ctx, es)
}

// ListSessions returns the agenda ordered by start time.
func (s *ScheduleService) ListSessions(ctx context.Context) ([]model.EventSession, error) {
	return s.sessions.ListSessions(ctx)
}

// CreatePresentation schedules an exhibitor talk inside a session.  New
// presentations start unconfirmed.
func (s *ScheduleService) CreatePresentation(ctx context.Context, p *model.ExhibitorPresentation) error {
	if p.ExhibitorID == 0 {
		return invalid("exhibitor_id", "required")
	}
	if p.SessionID == 0 {
		return invalid("session_id", "required")
	}
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return invalid("presentation_title", "required")
	}
	ok, err := s.exhibitors.Exists(ctx, p.ExhibitorID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("exhibitor %d: %w", p.ExhibitorID, ErrNotFound)
	}
	ok, err = s.sessions.SessionExists(ctx, p.SessionID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("session %d: %w", p.SessionID, ErrNotFound)
	}
	p.Description = trimPtr(p.Description)
	p.PresenterName = trimPtr(p.PresenterName)
	p.PresenterTitle = trimPtr(p.PresenterTitle)
	if err := s.sessions.CreatePresentation(ctx, p); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return fmt.Errorf("presentation: %w", ErrConflict)
		}
		return err
	}
	return nil
}

// ConfirmPresentation marks a presentation confirmed.  Idempotent.
func (s *ScheduleService) ConfirmPresentation(ctx context.Context, id uint64) error {
	return s.sessions.ConfirmPresentation(ctx, id)
}

// ListPresentations returns presentations in agenda order.
func (s *ScheduleService) ListPresentations(ctx context.Context) ([]model.ExhibitorPresentation, error) {
	return s.sessions.ListPresentations(ctx)
}
