package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/expo-access/internal/model"
	"github.com/iliyamo/expo-access/internal/repository"
)

func TestWriteExhibitorsCSV_QuotesEveryField(t *testing.T) {
	var buf bytes.Buffer
	err := WriteExhibitorsCSV(&buf, []model.Exhibitor{{
		CompanyName: `Farmacia "Central"`, ContactEmail: "c@f.com", ContactPhone: "555", BoothNumber: "B001", IsActive: true,
	}})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(ExhibitorCSVHeader, ","), lines[0])
	assert.Equal(t, `"Farmacia ""Central""","","c@f.com","555","","B001","","","","","","","true"`, lines[1])
}

func TestExhibitorsCSV_RoundTrip(t *testing.T) {
	in := []model.Exhibitor{
		{CompanyName: "Farmacia Central", CompanyDescription: "Retail, wholesale", ContactEmail: "c@f.com",
			ContactPhone: "555-0001", WebsiteURL: "https://f.com", BoothNumber: "B001", BenefitTitle: "10%",
			BenefitDescription: "en \"todo\"", BenefitPercentage: "10", AdvisorName: "Juan", AdvisorEmail: "j@f.com",
			AdvisorPhone: "555-0002", IsActive: true},
		{CompanyName: "Labs ABC", ContactEmail: "i@abc.com", ContactPhone: "555-0003", BoothNumber: "B002", IsActive: false},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteExhibitorsCSV(&buf, in))

	out, err := ParseExhibitorsCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestParseExhibitorsCSV_DefaultsAndRequiredColumns(t *testing.T) {
	src := "company_name,contact_email,contact_phone,booth_number,is_active\n" +
		"Acme,a@acme.com,1,,\n" +
		"Beta,b@beta.com,2,X9,0\n" +
		"Gamma,g@gamma.com,3,,1\n"
	out, err := ParseExhibitorsCSV(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "B001", out[0].BoothNumber)
	assert.True(t, out[0].IsActive)
	assert.Equal(t, "X9", out[1].BoothNumber)
	assert.False(t, out[1].IsActive)
	assert.Equal(t, "B003", out[2].BoothNumber)
	assert.True(t, out[2].IsActive)

	_, err = ParseExhibitorsCSV(strings.NewReader("company_name,contact_email\nAcme,a@acme.com\n"))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Msg, "contact_phone")
}

func TestImportCSV_AllOrNothing(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := NewExhibitorService(repository.NewExhibitorRepo(db), zap.NewNop())

	// bad email on row 3: nothing reaches the database
	_, err := svc.ImportCSV(context.Background(), strings.NewReader(
		"company_name,contact_email,contact_phone\nAcme,a@acme.com,1\nBeta,broken,2\n"))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Field, "row 3")

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO exhibitors .* VALUES \(.*\),\(.*\)`).WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectCommit()
	n, err := svc.ImportCSV(context.Background(), strings.NewReader(
		"company_name,contact_email,contact_phone\nAcme,a@acme.com,1\nBeta,b@beta.com,2\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// An exhibitor created with padded fields and no booth comes back from an
// export and re-import exactly as it was stored.
func TestCreate_ThenCSVRoundTrip(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := NewExhibitorService(repository.NewExhibitorRepo(db), zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO exhibitors`).
		WithArgs("Acme", "x", "info@acme.com", "555", "https://acme.com", "", "", "", "15", "Marta",
			"marta@acme.com", "", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec(`UPDATE exhibitors SET booth_number = \? WHERE id = \?`).WithArgs("B007", 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	e := &model.Exhibitor{CompanyName: " Acme ", CompanyDescription: "  x", ContactEmail: "Info@Acme.com",
		ContactPhone: "555 ", WebsiteURL: " https://acme.com", BenefitPercentage: " 15 ", AdvisorName: "Marta ",
		AdvisorEmail: "marta@acme.com", IsActive: true}
	require.NoError(t, svc.Create(context.Background(), e))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, uint64(7), e.ID)
	assert.Equal(t, "B007", e.BoothNumber)

	stored := *e
	stored.ID, stored.CreatedAt = 0, time.Time{}

	var buf bytes.Buffer
	require.NoError(t, WriteExhibitorsCSV(&buf, []model.Exhibitor{stored}))
	out, err := ParseExhibitorsCSV(&buf)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NoError(t, normalizeExhibitor(&out[0]))
	assert.Equal(t, stored, out[0])
}

func TestCreate_KeepsGivenBooth(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := NewExhibitorService(repository.NewExhibitorRepo(db), zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO exhibitors`).WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectCommit()

	e := &model.Exhibitor{CompanyName: "Beta", ContactEmail: "b@beta.com", ContactPhone: "1", BoothNumber: " X9 "}
	require.NoError(t, svc.Create(context.Background(), e))
	assert.Equal(t, "X9", e.BoothNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}
