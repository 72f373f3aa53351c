package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/expo-access/internal/config"
	"github.com/iliyamo/expo-access/internal/metrics"
	"github.com/iliyamo/expo-access/internal/model"
	"github.com/iliyamo/expo-access/internal/repository"
)

// BoothService manages venue areas, booth positions and the assignment
// lifecycle.
type BoothService struct {
	venues      *repository.VenueRepo
	assignments *repository.BoothAssignmentRepo
	exhibitors  *repository.ExhibitorRepo
	rule        string
	log         *zap.Logger
	now         func() time.Time
}

func NewBoothService(venues *repository.VenueRepo, assignments *repository.BoothAssignmentRepo,
	exhibitors *repository.ExhibitorRepo, cfg config.BoothConfig, log *zap.Logger) *BoothService {
	return &BoothService{
		venues:      venues,
		assignments: assignments,
		exhibitors:  exhibitors,
		rule:        cfg.AvailabilityRule,
		log:         log,
		now:         time.Now,
	}
}

// AssignInput is the request to place an exhibitor on a booth.  Dates are
// whole days; a single-day range has StartDate == EndDate.
type AssignInput struct {
	BoothPositionID     uint64
	ExhibitorID         uint64
	StartDate           time.Time
	EndDate             time.Time
	SetupTime           *string
	BreakdownTime       *string
	SpecialRequirements *string
}

// Assign creates an assignment in status assigned.  The booth row is
// locked for the duration of the check and insert, so two concurrent
// requests for the same booth are serialized.
func (s *BoothService) Assign(ctx context.Context, in AssignInput) (*model.BoothAssignment, error) {
	if in.BoothPositionID == 0 {
		return nil, invalid("booth_position_id", "required")
	}
	if in.ExhibitorID == 0 {
		return nil, invalid("exhibitor_id", "required")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return nil, invalid("start_date", "start_date and end_date are required")
	}
	start, end := truncateDay(in.StartDate), truncateDay(in.EndDate)
	if end.Before(start) {
		return nil, invalid("end_date", "must not be before start_date")
	}

	ok, err := s.exhibitors.Exists(ctx, in.ExhibitorID)
	if err != nil {
		return nil, fmt.Errorf("check exhibitor: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("exhibitor %d: %w", in.ExhibitorID, ErrNotFound)
	}

	tx, err := s.assignments.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	available, err := s.venues.LockBoothTx(ctx, tx, in.BoothPositionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("booth %d: %w", in.BoothPositionID, ErrNotFound)
		}
		return nil, fmt.Errorf("lock booth: %w", err)
	}
	if !available {
		return nil, fmt.Errorf("booth %d is marked unavailable: %w", in.BoothPositionID, ErrConflict)
	}

	var taken int
	if s.rule == config.RuleOverlap {
		taken, err = s.assignments.CountOverlappingTx(ctx, tx, in.BoothPositionID, start, end)
	} else {
		taken, err = s.assignments.CountForBoothTx(ctx, tx, in.BoothPositionID)
	}
	if err != nil {
		return nil, fmt.Errorf("check booth: %w", err)
	}
	if taken > 0 {
		return nil, fmt.Errorf("booth %d already assigned: %w", in.BoothPositionID, ErrConflict)
	}

	a := &model.BoothAssignment{
		BoothPositionID:     in.BoothPositionID,
		ExhibitorID:         in.ExhibitorID,
		AssignmentDate:      truncateDay(s.now()),
		StartDate:           start,
		EndDate:             end,
		SetupTime:           trimPtr(in.SetupTime),
		BreakdownTime:       trimPtr(in.BreakdownTime),
		SpecialRequirements: trimPtr(in.SpecialRequirements),
	}
	if err := s.assignments.CreateTx(ctx, tx, a); err != nil {
		return nil, fmt.Errorf("insert assignment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	committed = true

	metrics.AssignmentTransitions.WithLabelValues(string(a.Status)).Inc()
	s.log.Info("booth assigned",
		zap.Uint64("assignment_id", a.ID),
		zap.Uint64("booth_id", a.BoothPositionID),
		zap.Uint64("exhibitor_id", a.ExhibitorID),
		zap.String("rule", s.rule))
	return a, nil
}

// Advance moves an assignment to next, which must be the immediate
// successor of its current status.
func (s *BoothService) Advance(ctx context.Context, id uint64, next model.AssignmentStatus) (*model.BoothAssignment, error) {
	if !next.Valid() {
		return nil, invalid("status", "unknown assignment status")
	}
	a, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	want, ok := a.Status.Next()
	if !ok || want != next {
		return nil, fmt.Errorf("%s -> %s: %w", a.Status, next, ErrInvalidTransition)
	}
	if err := s.assignments.UpdateStatus(ctx, id, a.Status, next); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, fmt.Errorf("%s -> %s: concurrent update: %w", a.Status, next, ErrInvalidTransition)
		}
		return nil, err
	}
	metrics.AssignmentTransitions.WithLabelValues(string(next)).Inc()
	a.Status = next
	a.UpdatedAt = s.now().UTC()
	return a, nil
}

// ListAssignments returns every assignment ordered by start date.
func (s *BoothService) ListAssignments(ctx context.Context) ([]model.BoothAssignment, error) {
	return s.assignments.List(ctx)
}

// blocking reports whether a counts against booth availability under the
// configured rule.  from/to restrict the overlap rule to a date range; with
// a zero range any open assignment blocks.
func (s *BoothService) blocking(a model.BoothAssignment, from, to time.Time) bool {
	if s.rule != config.RuleOverlap {
		return true
	}
	if a.Status == model.AssignmentCompleted {
		return false
	}
	if from.IsZero() || to.IsZero() {
		return true
	}
	return model.Overlaps(a.StartDate, a.EndDate, from, to)
}

// AvailableBooths lists booths that could be assigned right now.
func (s *BoothService) AvailableBooths(ctx context.Context, from, to time.Time) ([]model.BoothPosition, error) {
	booths, err := s.venues.ListBooths(ctx, 0)
	if err != nil {
		return nil, err
	}
	all, err := s.assignments.List(ctx)
	if err != nil {
		return nil, err
	}
	taken := map[uint64]bool{}
	for _, a := range all {
		if s.blocking(a, truncateDay(from), truncateDay(to)) {
			taken[a.BoothPositionID] = true
		}
	}
	out := []model.BoothPosition{}
	for _, b := range booths {
		if b.IsAvailable && !taken[b.ID] {
			out = append(out, b)
		}
	}
	return out, nil
}

// UnassignedExhibitors lists active exhibitors without a blocking
// assignment.  Holding several assignments is not prevented; this is only
// the pick-list offered to admins.
func (s *BoothService) UnassignedExhibitors(ctx context.Context) ([]model.Exhibitor, error) {
	exhibitors, err := s.exhibitors.List(ctx, true)
	if err != nil {
		return nil, err
	}
	all, err := s.assignments.List(ctx)
	if err != nil {
		return nil, err
	}
	assigned := map[uint64]bool{}
	for _, a := range all {
		if s.blocking(a, time.Time{}, time.Time{}) {
			assigned[a.ExhibitorID] = true
		}
	}
	out := []model.Exhibitor{}
	for _, e := range exhibitors {
		if !assigned[e.ID] {
			out = append(out, e)
		}
	}
	return out, nil
}

// BoothState is one entry of the venue layout.
type BoothState struct {
	model.BoothPosition
	Status string `json:"status"`
}

// Booth layout statuses besides the assignment statuses.
const (
	BoothAvailable   = "available"
	BoothUnavailable = "unavailable"
)

// BoothStatus returns every booth of an area (all areas when areaID is 0)
// with the status of its latest assignment, or available/unavailable.
func (s *BoothService) BoothStatus(ctx context.Context, areaID uint64) ([]BoothState, error) {
	booths, err := s.venues.ListBooths(ctx, areaID)
	if err != nil {
		return nil, err
	}
	latest, err := s.assignments.AssignedBoothIDs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]BoothState, 0, len(booths))
	for _, b := range booths {
		st := BoothState{BoothPosition: b, Status: BoothAvailable}
		if status, ok := latest[b.ID]; ok {
			st.Status = string(status)
		} else if !b.IsAvailable {
			st.Status = BoothUnavailable
		}
		out = append(out, st)
	}
	return out, nil
}

// CreateArea validates and stores a venue area.
func (s *BoothService) CreateArea(ctx context.Context, a *model.VenueArea) error {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return invalid("area_name", "required")
	}
	if strings.TrimSpace(a.AreaType) == "" {
		a.AreaType = "exhibition"
	}
	if a.Capacity < 0 {
		return invalid("capacity", "must not be negative")
	}
	if err := s.venues.CreateArea(ctx, a); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return fmt.Errorf("area %q: %w", a.Name, ErrConflict)
		}
		return err
	}
	return nil
}

// ListAreas returns all venue areas.
func (s *BoothService) ListAreas(ctx context.Context) ([]model.VenueArea, error) {
	return s.venues.ListAreas(ctx)
}

// CreateBooth validates and stores a booth position.
func (s *BoothService) CreateBooth(ctx context.Context, b *model.BoothPosition) error {
	if b.VenueAreaID == 0 {
		return invalid("venue_area_id", "required")
	}
	b.BoothNumber = strings.TrimSpace(b.BoothNumber)
	if b.BoothNumber == "" {
		return invalid("booth_number", "required")
	}
	if b.BoothType == "" {
		b.BoothType = model.BoothStandard
	}
	if !b.BoothType.Valid() {
		return invalid("booth_type", "must be standard, premium, corner or island")
	}
	if b.WidthMeters <= 0 || b.HeightMeters <= 0 {
		return invalid("width_meters", "booth dimensions must be positive")
	}
	if b.PricePerDay.LessThan(decimal.Zero) {
		return invalid("price_per_day", "must not be negative")
	}
	ok, err := s.venues.AreaExists(ctx, b.VenueAreaID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("venue area %d: %w", b.VenueAreaID, ErrNotFound)
	}
	if err := s.venues.CreateBooth(ctx, b); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return fmt.Errorf("booth %s already exists in area: %w", b.BoothNumber, ErrConflict)
		}
		return err
	}
	return nil
}

// ListBooths returns the booths of an area, or all booths for areaID 0.
func (s *BoothService) ListBooths(ctx context.Context, areaID uint64) ([]model.BoothPosition, error) {
	return s.venues.ListBooths(ctx, areaID)
}

// CreateFacility validates and stores a venue facility.
func (s *BoothService) CreateFacility(ctx context.Context, f *model.VenueFacility) error {
	if f.VenueAreaID == 0 {
		return invalid("venue_area_id", "required")
	}
	f.Name = strings.TrimSpace(f.Name)
	if f.Name == "" {
		return invalid("facility_name", "required")
	}
	f.FacilityType = strings.ToLower(strings.TrimSpace(f.FacilityType))
	if f.FacilityType == "" {
		return invalid("facility_type", "required")
	}
	if (f.PositionX == nil) != (f.PositionY == nil) {
		return invalid("position_x", "position needs both coordinates")
	}
	f.Description = trimPtr(f.Description)
	ok, err := s.venues.AreaExists(ctx, f.VenueAreaID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("venue area %d: %w", f.VenueAreaID, ErrNotFound)
	}
	return s.venues.CreateFacility(ctx, f)
}

// ListFacilities returns the facilities of an area, or all of them for
// areaID 0.
func (s *BoothService) ListFacilities(ctx context.Context, areaID uint64) ([]model.VenueFacility, error) {
	return s.venues.ListFacilities(ctx, areaID)
}

// SetBoothAvailability toggles the manual availability flag of a booth.
func (s *BoothService) SetBoothAvailability(ctx context.Context, id uint64, available bool) error {
	return s.venues.SetBoothAvailability(ctx, id, available)
}

func truncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

// GetBooth returns one booth position.
func (s *BoothService) GetBooth(ctx context.Context, id uint64) (*model.BoothPosition, error) {
	return s.venues.GetBooth(ctx, id)
}
