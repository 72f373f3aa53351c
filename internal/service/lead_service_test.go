package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/expo-access/internal/model"
	"github.com/iliyamo/expo-access/internal/queue"
	"github.com/iliyamo/expo-access/internal/repository"
)

var exhibitorCols = []string{"id", "company_name", "company_description", "contact_email", "contact_phone", "website_url",
	"booth_number", "benefit_title", "benefit_description", "benefit_percentage", "advisor_name", "advisor_email",
	"advisor_phone", "is_active", "created_at"}

var leadCols = []string{"id", "exhibitor_id", "visitor_name", "visitor_email", "visitor_phone", "lead_type", "status",
	"notes", "company_name", "created_at", "updated_at"}

func exhibitorRow(active bool) *sqlmock.Rows {
	return sqlmock.NewRows(exhibitorCols).AddRow(2, "Acme", "", "info@acme.com", "555", "", "B001", "", "", "",
		"Marta", "marta@acme.com", "", active, time.Now())
}

func newLeadService(t *testing.T) (*LeadService, sqlmock.Sqlmock, *fakePublisher) {
	db, mock := setupMockDB(t)
	pub := &fakePublisher{}
	return NewLeadService(repository.NewLeadRepo(db), repository.NewExhibitorRepo(db), pub, zap.NewNop()), mock, pub
}

func TestSubmit_StoresPendingAndPublishes(t *testing.T) {
	svc, mock, pub := newLeadService(t)
	mock.ExpectQuery(`FROM exhibitors WHERE id = \?`).WithArgs(2).WillReturnRows(exhibitorRow(true))
	mock.ExpectExec(`INSERT INTO leads`).
		WithArgs(2, "Luis", "luis@x.com", "555-1", "meeting", "pending", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(30, 1))

	l, err := svc.Submit(context.Background(), SubmitInput{ExhibitorID: 2, VisitorName: "Luis", VisitorEmail: "Luis@x.com",
		VisitorPhone: "555-1", LeadType: model.LeadMeeting})
	require.NoError(t, err)
	assert.Equal(t, model.LeadPending, l.Status)
	assert.Equal(t, "Acme", l.CompanyName)
	require.Len(t, pub.events, 1)
	assert.Equal(t, queue.EventLeadCreated, pub.events[0].Type)
	assert.Equal(t, uint64(30), pub.events[0].Lead.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmit_PublishFailureKeepsLead(t *testing.T) {
	svc, mock, pub := newLeadService(t)
	pub.err = errors.New("broker down")
	mock.ExpectQuery(`FROM exhibitors`).WillReturnRows(exhibitorRow(true))
	mock.ExpectExec(`INSERT INTO leads`).WillReturnResult(sqlmock.NewResult(31, 1))

	l, err := svc.Submit(context.Background(), SubmitInput{ExhibitorID: 2, VisitorName: "Ana", VisitorEmail: "ana@x.com", LeadType: model.LeadBenefit})
	require.NoError(t, err)
	assert.Equal(t, uint64(31), l.ID)
}

func TestSubmit_InactiveOrMissingExhibitor(t *testing.T) {
	svc, mock, pub := newLeadService(t)
	mock.ExpectQuery(`FROM exhibitors`).WillReturnRows(exhibitorRow(false))
	_, err := svc.Submit(context.Background(), SubmitInput{ExhibitorID: 2, VisitorName: "Ana", VisitorEmail: "ana@x.com", LeadType: model.LeadBenefit})
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectQuery(`FROM exhibitors`).WillReturnRows(sqlmock.NewRows(exhibitorCols))
	_, err = svc.Submit(context.Background(), SubmitInput{ExhibitorID: 3, VisitorName: "Ana", VisitorEmail: "ana@x.com", LeadType: model.LeadBenefit})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, pub.events)
}

func TestSubmit_Validation(t *testing.T) {
	svc, _, _ := newLeadService(t)
	_, err := svc.Submit(context.Background(), SubmitInput{ExhibitorID: 2, VisitorName: "Ana", VisitorEmail: "ana@x.com", LeadType: "call"})
	assert.IsType(t, &ValidationError{}, err)
	_, err = svc.Submit(context.Background(), SubmitInput{ExhibitorID: 2, VisitorName: "Ana", VisitorEmail: "not-an-email", LeadType: model.LeadBenefit})
	assert.IsType(t, &ValidationError{}, err)
}

func leadRowWith(status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(leadCols).AddRow(30, 2, "Luis", "luis@x.com", "", "meeting", status, nil, "Acme", now, now)
}

func TestAdvanceStatus_Monotonic(t *testing.T) {
	svc, mock, _ := newLeadService(t)

	mock.ExpectQuery(`WHERE l.id = \?`).WillReturnRows(leadRowWith("contacted"))
	_, err := svc.AdvanceStatus(context.Background(), 30, model.LeadPending, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	mock.ExpectQuery(`WHERE l.id = \?`).WillReturnRows(leadRowWith("pending"))
	mock.ExpectExec(`UPDATE leads SET status = \?, updated_at = \? WHERE id = \? AND status = \?`).
		WithArgs("completed", sqlmock.AnyArg(), 30, "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`WHERE l.id = \?`).WillReturnRows(leadRowWith("completed"))

	l, err := svc.AdvanceStatus(context.Background(), 30, model.LeadCompleted, nil)
	require.NoError(t, err)
	assert.Equal(t, model.LeadCompleted, l.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
