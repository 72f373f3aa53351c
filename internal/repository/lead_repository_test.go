package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/expo-access/internal/model"
)

var leadCols = []string{"id", "exhibitor_id", "visitor_name", "visitor_email", "visitor_phone", "lead_type", "status",
	"notes", "company_name", "created_at", "updated_at"}

func TestLeadCreate_Pending(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewLeadRepo(db)

	mock.ExpectExec(`INSERT INTO leads`).
		WithArgs(2, "Luis", "luis@x.com", "555", "meeting", "pending", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(11, 1))

	l := &model.Lead{ExhibitorID: 2, VisitorName: "Luis", VisitorEmail: "luis@x.com", VisitorPhone: "555",
		LeadType: model.LeadMeeting, Status: model.LeadPending}
	require.NoError(t, repo.Create(context.Background(), l))
	assert.Equal(t, uint64(11), l.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadList_Filters(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewLeadRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`WHERE 1=1 AND l.exhibitor_id = \? AND l.status = \?`).
		WithArgs(2, "pending").
		WillReturnRows(sqlmock.NewRows(leadCols).
			AddRow(11, 2, "Luis", "luis@x.com", "555", "meeting", "pending", "call after 5", "Acme", now, now))

	out, err := repo.List(context.Background(), LeadFilter{ExhibitorID: 2, Status: model.LeadPending})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Acme", out[0].CompanyName)
	require.NotNil(t, out[0].Notes)
	assert.Equal(t, "call after 5", *out[0].Notes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadUpdateStatus_StaleWhenRowMoved(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewLeadRepo(db)
	notes := "called"

	mock.ExpectExec(`UPDATE leads SET status = \?, updated_at = \?, notes = \? WHERE id = \? AND status = \?`).
		WithArgs("contacted", sqlmock.AnyArg(), "called", 11, "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), 11, model.LeadPending, model.LeadContacted, &notes)
	assert.ErrorIs(t, err, ErrStaleState)
	assert.NoError(t, mock.ExpectationsWereMet())
}
