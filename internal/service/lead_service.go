package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/expo-access/internal/metrics"
	"github.com/iliyamo/expo-access/internal/model"
	"github.com/iliyamo/expo-access/internal/queue"
	"github.com/iliyamo/expo-access/internal/repository"
)

// LeadService records visitor requests and tracks their follow-up.
type LeadService struct {
	leads      *repository.LeadRepo
	exhibitors *repository.ExhibitorRepo
	pub        queue.Publisher
	log        *zap.Logger
}

func NewLeadService(leads *repository.LeadRepo, exhibitors *repository.ExhibitorRepo, pub queue.Publisher, log *zap.Logger) *LeadService {
	return &LeadService{leads: leads, exhibitors: exhibitors, pub: pub, log: log}
}

// SubmitInput is a public lead submission.
type SubmitInput struct {
	ExhibitorID  uint64
	VisitorName  string
	VisitorEmail string
	VisitorPhone string
	LeadType     model.LeadType
	Notes        *string
}

// Submit stores a pending lead for an active exhibitor and publishes
// lead.created.  A publish failure does not undo the lead.
func (s *LeadService) Submit(ctx context.Context, in SubmitInput) (*model.Lead, error) {
	if in.ExhibitorID == 0 {
		return nil, invalid("exhibitor_id", "required")
	}
	if !in.LeadType.Valid() {
		return nil, invalid("lead_type", "must be benefit or meeting")
	}
	name := strings.TrimSpace(in.VisitorName)
	if name == "" {
		return nil, invalid("visitor_name", "required")
	}
	email := strings.ToLower(strings.TrimSpace(in.VisitorEmail))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalid("visitor_email", "invalid email")
	}

	ex, err := s.exhibitors.GetByID(ctx, in.ExhibitorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("exhibitor %d: %w", in.ExhibitorID, ErrNotFound)
		}
		return nil, err
	}
	if !ex.IsActive {
		return nil, fmt.Errorf("exhibitor %d is not active: %w", in.ExhibitorID, ErrNotFound)
	}

	l := &model.Lead{
		ExhibitorID:  in.ExhibitorID,
		VisitorName:  name,
		VisitorEmail: email,
		VisitorPhone: strings.TrimSpace(in.VisitorPhone),
		LeadType:     in.LeadType,
		Status:       model.LeadPending,
		Notes:        trimPtr(in.Notes),
	}
	if err := s.leads.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("insert lead: %w", err)
	}
	l.CompanyName = ex.CompanyName
	metrics.LeadsCreated.WithLabelValues(string(l.LeadType)).Inc()

	if err := s.pub.Publish(ctx, queue.LeadCreated(*l)); err != nil {
		s.log.Warn("lead: publish created event failed", zap.Uint64("lead_id", l.ID), zap.Error(err))
	}
	return l, nil
}

// AdvanceStatus moves a lead forward (pending -> contacted -> completed,
// skipping allowed).  notes, when non-nil, replaces the stored notes.
func (s *LeadService) AdvanceStatus(ctx context.Context, id uint64, next model.LeadStatus, notes *string) (*model.Lead, error) {
	if !next.Valid() {
		return nil, invalid("status", "must be pending, contacted or completed")
	}
	l, err := s.leads.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !l.Status.CanAdvanceTo(next) {
		return nil, fmt.Errorf("%s -> %s: %w", l.Status, next, ErrInvalidTransition)
	}
	if err := s.leads.UpdateStatus(ctx, id, l.Status, next, notes); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, fmt.Errorf("%s -> %s: concurrent update: %w", l.Status, next, ErrInvalidTransition)
		}
		return nil, err
	}
	return s.leads.GetByID(ctx, id)
}

// List returns leads matching f.
func (s *LeadService) List(ctx context.Context, f repository.LeadFilter) ([]model.Lead, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, invalid("status", "unknown lead status")
	}
	if f.LeadType != "" && !f.LeadType.Valid() {
		return nil, invalid("lead_type", "unknown lead type")
	}
	return s.leads.List(ctx, f)
}

// Get returns one lead.
func (s *LeadService) Get(ctx context.Context, id uint64) (*model.Lead, error) {
	return s.leads.GetByID(ctx, id)
}
