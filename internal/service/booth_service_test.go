package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/expo-access/internal/config"
	"github.com/iliyamo/expo-access/internal/model"
	"github.com/iliyamo/expo-access/internal/repository"
)

var assignmentCols = []string{"id", "booth_position_id", "exhibitor_id", "assignment_date", "start_date", "end_date",
	"setup_time", "breakdown_time", "special_requirements", "assignment_status", "booth_number", "company_name",
	"created_at", "updated_at"}

func newBoothService(t *testing.T, rule string) (*BoothService, sqlmock.Sqlmock) {
	db, mock := setupMockDB(t)
	svc := NewBoothService(repository.NewVenueRepo(db), repository.NewBoothAssignmentRepo(db),
		repository.NewExhibitorRepo(db), config.BoothConfig{AvailabilityRule: rule}, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 12, 20, 15, 0, 0, 0, time.UTC) }
	return svc, mock
}

func day(m time.Month, d int) time.Time { return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC) }

func expectAssignPrelude(mock sqlmock.Sqlmock, boothID, exhibitorID int) {
	mock.ExpectQuery(`SELECT 1 FROM exhibitors WHERE id = \?`).WithArgs(exhibitorID).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT is_available FROM booth_positions WHERE id = \? FOR UPDATE`).WithArgs(boothID).
		WillReturnRows(sqlmock.NewRows([]string{"is_available"}).AddRow(true))
}

// Booth A (id 1) is held by exhibitor X from 01-01 to 01-03.  Exhibitor Y
// (id 20) asks for 01-02..01-04, then for 01-05..01-06.
func TestAssign_BoothAScenario(t *testing.T) {
	t.Run("overlapping range rejected under any_assignment", func(t *testing.T) {
		svc, mock := newBoothService(t, config.RuleAnyAssignment)
		expectAssignPrelude(mock, 1, 20)
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM booth_assignments WHERE booth_position_id = \?`).WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
		mock.ExpectRollback()

		_, err := svc.Assign(context.Background(), AssignInput{BoothPositionID: 1, ExhibitorID: 20, StartDate: day(1, 2), EndDate: day(1, 4)})
		assert.ErrorIs(t, err, ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("overlapping range rejected under overlap", func(t *testing.T) {
		svc, mock := newBoothService(t, config.RuleOverlap)
		expectAssignPrelude(mock, 1, 20)
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM booth_assignments\s+WHERE booth_position_id = \? AND assignment_status <> \?`).
			WithArgs(1, "completed", "2025-01-04", "2025-01-02").
			WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
		mock.ExpectRollback()

		_, err := svc.Assign(context.Background(), AssignInput{BoothPositionID: 1, ExhibitorID: 20, StartDate: day(1, 2), EndDate: day(1, 4)})
		assert.ErrorIs(t, err, ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("disjoint range rejected under any_assignment", func(t *testing.T) {
		svc, mock := newBoothService(t, config.RuleAnyAssignment)
		expectAssignPrelude(mock, 1, 20)
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM booth_assignments WHERE booth_position_id = \?`).WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
		mock.ExpectRollback()

		_, err := svc.Assign(context.Background(), AssignInput{BoothPositionID: 1, ExhibitorID: 20, StartDate: day(1, 5), EndDate: day(1, 6)})
		assert.ErrorIs(t, err, ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("disjoint range accepted under overlap", func(t *testing.T) {
		svc, mock := newBoothService(t, config.RuleOverlap)
		expectAssignPrelude(mock, 1, 20)
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM booth_assignments`).
			WithArgs(1, "completed", "2025-01-06", "2025-01-05").
			WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
		mock.ExpectExec(`INSERT INTO booth_assignments`).
			WithArgs(1, 20, "2024-12-20", "2025-01-05", "2025-01-06", nil, nil, nil, "assigned", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(42, 1))
		mock.ExpectCommit()

		a, err := svc.Assign(context.Background(), AssignInput{BoothPositionID: 1, ExhibitorID: 20, StartDate: day(1, 5), EndDate: day(1, 6)})
		require.NoError(t, err)
		assert.Equal(t, uint64(42), a.ID)
		assert.Equal(t, model.AssignmentAssigned, a.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAssign_Validation(t *testing.T) {
	svc, mock := newBoothService(t, config.RuleAnyAssignment)

	_, err := svc.Assign(context.Background(), AssignInput{ExhibitorID: 1, StartDate: day(1, 1), EndDate: day(1, 1)})
	assert.IsType(t, &ValidationError{}, err)

	_, err = svc.Assign(context.Background(), AssignInput{BoothPositionID: 1, ExhibitorID: 1, StartDate: day(1, 3), EndDate: day(1, 1)})
	assert.IsType(t, &ValidationError{}, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssign_SingleDayAllowed(t *testing.T) {
	svc, mock := newBoothService(t, config.RuleAnyAssignment)
	expectAssignPrelude(mock, 3, 4)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM booth_assignments`).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO booth_assignments`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	_, err := svc.Assign(context.Background(), AssignInput{BoothPositionID: 3, ExhibitorID: 4, StartDate: day(2, 1), EndDate: day(2, 1)})
	require.NoError(t, err)
}

func TestAssign_UnknownBoothOrExhibitor(t *testing.T) {
	svc, mock := newBoothService(t, config.RuleAnyAssignment)
	mock.ExpectQuery(`SELECT 1 FROM exhibitors`).WillReturnRows(sqlmock.NewRows([]string{"1"}))

	_, err := svc.Assign(context.Background(), AssignInput{BoothPositionID: 1, ExhibitorID: 99, StartDate: day(1, 1), EndDate: day(1, 2)})
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectQuery(`SELECT 1 FROM exhibitors`).WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(sqlmock.NewRows([]string{"is_available"}))
	mock.ExpectRollback()

	_, err = svc.Assign(context.Background(), AssignInput{BoothPositionID: 77, ExhibitorID: 1, StartDate: day(1, 1), EndDate: day(1, 2)})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func assignmentRow(status string) *sqlmock.Rows {
	return sqlmock.NewRows(assignmentCols).AddRow(5, 1, 20, day(1, 1), day(1, 5), day(1, 6), nil, nil, nil, status,
		"A", "Acme", time.Now(), time.Now())
}

func TestAdvance_OnlyImmediateSuccessor(t *testing.T) {
	statuses := model.AssignmentStatuses()
	for i, from := range statuses {
		for j, to := range statuses {
			svc, mock := newBoothService(t, config.RuleAnyAssignment)
			mock.ExpectQuery(`WHERE ba.id = \?`).WithArgs(5).WillReturnRows(assignmentRow(string(from)))
			if j == i+1 {
				mock.ExpectExec(`UPDATE booth_assignments SET assignment_status = \?`).
					WithArgs(string(to), sqlmock.AnyArg(), 5, string(from)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			}

			a, err := svc.Advance(context.Background(), 5, to)
			if j == i+1 {
				require.NoError(t, err, "%s -> %s", from, to)
				assert.Equal(t, to, a.Status)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", from, to)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		}
	}
}

func TestAdvance_LostRaceIsInvalidTransition(t *testing.T) {
	svc, mock := newBoothService(t, config.RuleAnyAssignment)
	mock.ExpectQuery(`WHERE ba.id = \?`).WillReturnRows(assignmentRow("assigned"))
	mock.ExpectExec(`UPDATE booth_assignments`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1 FROM booth_assignments`).WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	_, err := svc.Advance(context.Background(), 5, model.AssignmentConfirmed)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

var boothCols = []string{"id", "venue_area_id", "area_name", "booth_number", "position_x", "position_y",
	"width_meters", "height_meters", "booth_type", "has_power", "has_internet", "has_water", "price_per_day",
	"is_available", "created_at"}

func boothRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(boothCols).
		AddRow(1, 1, "Hall 1", "A", 0, 0, 3, 3, "standard", true, true, false, "100.00", true, now).
		AddRow(2, 1, "Hall 1", "B", 3, 0, 3, 3, "corner", true, true, false, "150.00", true, now).
		AddRow(3, 1, "Hall 1", "C", 6, 0, 3, 3, "premium", true, true, true, "200.00", false, now)
}

func TestAvailableBooths_ByRule(t *testing.T) {
	completed := sqlmock.NewRows(assignmentCols).
		AddRow(9, 2, 20, day(1, 1), day(1, 1), day(1, 2), nil, nil, nil, "completed", "B", "Acme", time.Now(), time.Now())

	svc, mock := newBoothService(t, config.RuleAnyAssignment)
	mock.ExpectQuery(`FROM booth_positions`).WillReturnRows(boothRows())
	mock.ExpectQuery(`FROM booth_assignments`).WillReturnRows(completed)
	out, err := svc.AvailableBooths(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "A", out[0].BoothNumber)

	completed = sqlmock.NewRows(assignmentCols).
		AddRow(9, 2, 20, day(1, 1), day(1, 1), day(1, 2), nil, nil, nil, "completed", "B", "Acme", time.Now(), time.Now())
	svc, mock = newBoothService(t, config.RuleOverlap)
	mock.ExpectQuery(`FROM booth_positions`).WillReturnRows(boothRows())
	mock.ExpectQuery(`FROM booth_assignments`).WillReturnRows(completed)
	out, err = svc.AvailableBooths(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[0].PricePerDay.Equal(decimal.RequireFromString("100")))
}

func TestBoothStatus(t *testing.T) {
	svc, mock := newBoothService(t, config.RuleAnyAssignment)
	mock.ExpectQuery(`FROM booth_positions`).WillReturnRows(boothRows())
	mock.ExpectQuery(`SELECT booth_position_id, assignment_status FROM booth_assignments`).
		WillReturnRows(sqlmock.NewRows([]string{"booth_position_id", "assignment_status"}).AddRow(2, "setup"))

	out, err := svc.BoothStatus(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, BoothAvailable, out[0].Status)
	assert.Equal(t, "setup", out[1].Status)
	assert.Equal(t, BoothUnavailable, out[2].Status)
}

func TestCreateBooth_Validation(t *testing.T) {
	svc, mock := newBoothService(t, config.RuleAnyAssignment)

	err := svc.CreateBooth(context.Background(), &model.BoothPosition{VenueAreaID: 1, BoothNumber: "A", BoothType: "tent", WidthMeters: 1, HeightMeters: 1})
	assert.IsType(t, &ValidationError{}, err)

	mock.ExpectQuery(`SELECT 1 FROM venue_areas`).WillReturnRows(sqlmock.NewRows([]string{"1"}))
	err = svc.CreateBooth(context.Background(), &model.BoothPosition{VenueAreaID: 9, BoothNumber: "A", WidthMeters: 1, HeightMeters: 1})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnassignedExhibitors_ByRule(t *testing.T) {
	exhibitors := func() *sqlmock.Rows {
		now := time.Now()
		return sqlmock.NewRows(exhibitorCols).
			AddRow(20, "Acme", "", "info@acme.com", "555", "", "B", "", "", "", "", "", "", true, now).
			AddRow(21, "Beta", "", "hi@beta.com", "556", "", "C", "", "", "", "", "", "", true, now).
			AddRow(22, "Gamma", "", "yo@gamma.com", "557", "", "", "", "", "", "", "", "", true, now)
	}
	assignments := func() *sqlmock.Rows {
		now := time.Now()
		return sqlmock.NewRows(assignmentCols).
			AddRow(9, 2, 20, day(1, 1), day(1, 1), day(1, 3), nil, nil, nil, "setup", "B", "Acme", now, now).
			AddRow(10, 3, 21, day(1, 1), day(1, 1), day(1, 2), nil, nil, nil, "completed", "C", "Beta", now, now)
	}
	names := func(list []model.Exhibitor) []string {
		out := []string{}
		for _, e := range list {
			out = append(out, e.CompanyName)
		}
		return out
	}

	svc, mock := newBoothService(t, config.RuleAnyAssignment)
	mock.ExpectQuery(`FROM exhibitors WHERE is_active = 1`).WillReturnRows(exhibitors())
	mock.ExpectQuery(`FROM booth_assignments`).WillReturnRows(assignments())
	out, err := svc.UnassignedExhibitors(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Gamma"}, names(out))
	assert.NoError(t, mock.ExpectationsWereMet())

	svc, mock = newBoothService(t, config.RuleOverlap)
	mock.ExpectQuery(`FROM exhibitors WHERE is_active = 1`).WillReturnRows(exhibitors())
	mock.ExpectQuery(`FROM booth_assignments`).WillReturnRows(assignments())
	out, err = svc.UnassignedExhibitors(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Beta", "Gamma"}, names(out))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnassignedExhibitors_Empty(t *testing.T) {
	svc, mock := newBoothService(t, config.RuleAnyAssignment)
	mock.ExpectQuery(`FROM exhibitors`).WillReturnRows(sqlmock.NewRows(exhibitorCols))
	mock.ExpectQuery(`FROM booth_assignments`).WillReturnRows(sqlmock.NewRows(assignmentCols))

	out, err := svc.UnassignedExhibitors(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestCreateFacility(t *testing.T) {
	svc, mock := newBoothService(t, config.RuleAnyAssignment)
	mock.ExpectQuery(`SELECT 1 FROM venue_areas WHERE id = \?`).WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec(`INSERT INTO venue_facilities`).
		WithArgs(3, "First aid", "medical", 12.5, 4.0, "Next to hall B", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(9, 1))

	x, y, desc := 12.5, 4.0, "  Next to hall B "
	f := &model.VenueFacility{VenueAreaID: 3, Name: " First aid ", FacilityType: "Medical",
		PositionX: &x, PositionY: &y, Description: &desc, IsAccessible: true}
	require.NoError(t, svc.CreateFacility(context.Background(), f))
	assert.Equal(t, uint64(9), f.ID)
	assert.Equal(t, "medical", f.FacilityType)
	assert.False(t, f.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFacility_Validation(t *testing.T) {
	svc, mock := newBoothService(t, config.RuleAnyAssignment)
	x := 1.0
	for _, f := range []*model.VenueFacility{
		{Name: "Desk", FacilityType: "info"},
		{VenueAreaID: 3, FacilityType: "info"},
		{VenueAreaID: 3, Name: "Desk"},
		{VenueAreaID: 3, Name: "Desk", FacilityType: "info", PositionX: &x},
	} {
		var ve *ValidationError
		assert.ErrorAs(t, svc.CreateFacility(context.Background(), f), &ve)
	}

	mock.ExpectQuery(`SELECT 1 FROM venue_areas WHERE id = \?`).WithArgs(99).WillReturnRows(sqlmock.NewRows([]string{"1"}))
	err := svc.CreateFacility(context.Background(), &model.VenueFacility{VenueAreaID: 99, Name: "Desk", FacilityType: "info"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListFacilities_ByArea(t *testing.T) {
	svc, mock := newBoothService(t, config.RuleAnyAssignment)
	now := time.Now().UTC()
	mock.ExpectQuery(`FROM venue_facilities f\s+JOIN venue_areas a ON a.id = f.venue_area_id WHERE f.venue_area_id = \?`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "venue_area_id", "area_name", "facility_name", "facility_type",
			"position_x", "position_y", "description", "is_accessible", "created_at"}).
			AddRow(9, 3, "Hall B", "First aid", "medical", 12.5, 4.0, nil, true, now).
			AddRow(10, 3, "Hall B", "Restrooms", "restroom", nil, nil, "North wall", false, now))

	out, err := svc.ListFacilities(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Hall B", out[0].AreaName)
	require.NotNil(t, out[0].PositionX)
	assert.Equal(t, 12.5, *out[0].PositionX)
	assert.Nil(t, out[0].Description)
	assert.Nil(t, out[1].PositionX)
	require.NotNil(t, out[1].Description)
	assert.Equal(t, "North wall", *out[1].Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}
