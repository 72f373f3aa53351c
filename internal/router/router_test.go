package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/expo-access/internal/config"
	"github.com/iliyamo/expo-access/internal/handler"
	"github.com/iliyamo/expo-access/internal/model"
	"github.com/iliyamo/expo-access/internal/notify"
	"github.com/iliyamo/expo-access/internal/queue"
	"github.com/iliyamo/expo-access/internal/repository"
	"github.com/iliyamo/expo-access/internal/service"
	"github.com/iliyamo/expo-access/internal/utils"
)

const secret = "router-secret"

type nopPublisher struct{}

func (nopPublisher) Publish(_ context.Context, _ queue.ChangeEvent) error { return nil }

func newTestServer(t *testing.T) (*echo.Echo, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := zap.NewNop()
	exhibitors := repository.NewExhibitorRepo(db)
	cfg := config.Config{JWTSecret: secret, AccessTTLMin: 5, RefreshTTLDays: 1, BcryptCost: 4}

	h := Handlers{
		Auth: handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db), exhibitors, log),
		QR: handler.NewQRHandler(service.NewQRService(repository.NewQRCodeRepo(db), exhibitors, nopPublisher{},
			config.QRConfig{MaxAttempts: 1, TokenBytes: 8, PNGSize: 64}, log), log),
		Booth: handler.NewBoothHandler(service.NewBoothService(repository.NewVenueRepo(db), repository.NewBoothAssignmentRepo(db),
			exhibitors, config.BoothConfig{AvailabilityRule: config.RuleAnyAssignment}, log), log),
		Lead:      handler.NewLeadHandler(service.NewLeadService(repository.NewLeadRepo(db), exhibitors, nopPublisher{}, log), log),
		Exhibitor: handler.NewExhibitorHandler(service.NewExhibitorService(exhibitors, log), log),
		Schedule:  handler.NewScheduleHandler(service.NewScheduleService(repository.NewSessionRepo(db), exhibitors), log),
		Report:    handler.NewReportHandler(service.NewReportService(repository.NewReportRepo(db), repository.NewLeadRepo(db)), log),
		Notification: handler.NewNotificationHandler(notify.NewStore(rdb, "test", 10), notify.NewHub(4), "admin", log),
		Ready:        &handler.Readiness{DB: db, Redis: rdb},
	}

	pass := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	e := echo.New()
	RegisterRoutes(e, h)
	RegisterAuth(e, h.Auth, secret)
	RegisterPublic(e, h, pass)
	RegisterStaff(e, h, secret)
	RegisterAdmin(e, h, secret, pass, pass)
	return e, mock
}

func token(t *testing.T, role string, exhibitorID *uint64) string {
	tok, err := utils.NewAccessToken(secret, 1, role, exhibitorID, 5)
	require.NoError(t, err)
	return tok.Token
}

func TestRoutesRegistered(t *testing.T) {
	e, _ := newTestServer(t)
	have := map[string]bool{}
	for _, r := range e.Routes() {
		have[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /healthz",
		"GET /readyz",
		"GET /metrics",
		"POST /v1/auth/login",
		"POST /v1/auth/refresh",
		"GET /v1/me",
		"POST /v1/public/leads",
		"GET /v1/public/exhibitors",
		"POST /v1/qr",
		"POST /v1/qr/bulk",
		"POST /v1/scan",
		"GET /v1/scan/:code",
		"POST /v1/venue/areas/:id/facilities",
		"GET /v1/venue/facilities",
		"GET /v1/leads",
		"PATCH /v1/leads/:id/status",
		"GET /v1/notifications",
		"GET /v1/notifications/ws",
	} {
		assert.True(t, have[want], "missing route %s", want)
	}
}

func TestRouteGuards(t *testing.T) {
	e, _ := newTestServer(t)
	exh := uint64(2)

	cases := []struct {
		name   string
		method string
		path   string
		bearer string
		status int
	}{
		{"no token", http.MethodGet, "/v1/qr", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/v1/qr", "garbage", http.StatusUnauthorized},
		{"exhibitor on admin route", http.MethodGet, "/v1/qr", token(t, model.RoleExhibitor, &exh), http.StatusForbidden},
		{"health is public", http.MethodGet, "/healthz", "", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.bearer != "" {
				req.Header.Set(echo.HeaderAuthorization, "Bearer "+tc.bearer)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestMe_ReturnsCaller(t *testing.T) {
	e, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, model.RoleAdmin, nil))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
