package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokenCols = []string{"id", "user_id", "token_hash", "expires_at", "revoked_at", "created_at"}

func TestTokenActive(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		expires time.Time
		revoked interface{}
		wantErr bool
	}{
		{"valid", now.Add(time.Hour), nil, false},
		{"expired", now.Add(-time.Second), nil, true},
		{"revoked", now.Add(time.Hour), now.Add(-time.Minute), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewTokenRepo(db)
			mock.ExpectQuery(`FROM refresh_tokens WHERE token_hash=\?`).
				WithArgs("h").
				WillReturnRows(sqlmock.NewRows(tokenCols).AddRow(1, 4, "h", tc.expires, tc.revoked, now.Add(-time.Hour)))

			tok, err := repo.Active(context.Background(), "h", now)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint64(4), tok.UserID)
		})
	}
}

func TestTokenActive_Unknown(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTokenRepo(db)
	mock.ExpectQuery(`FROM refresh_tokens`).WillReturnRows(sqlmock.NewRows(tokenCols))

	_, err := repo.Active(context.Background(), "nope", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}
