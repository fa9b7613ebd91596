package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/club-event-ticketing/internal/handler"
	"github.com/iliyamo/club-event-ticketing/internal/metrics"
	"github.com/iliyamo/club-event-ticketing/internal/model"
	"github.com/iliyamo/club-event-ticketing/internal/ticket"
	"github.com/iliyamo/club-event-ticketing/internal/utils"
)

const secret = "router-secret"

type admitAll struct{ calls int }

func (a *admitAll) Verify(_ context.Context, _ string, _ ticket.Operator) (*ticket.CheckInResult, error) {
	a.calls++
	return &ticket.CheckInResult{CheckedInAt: time.Now().UTC()}, nil
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func TestVerifyQRIsLimitedToStaff(t *testing.T) {
	v := &admitAll{}
	e := echo.New()
	RegisterCheckIn(e, handler.NewCheckInHandler(v, nil), secret, passThrough)

	scan := func(role string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/bookings/verify-qr", strings.NewReader(`{"qr_code":"tok"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		if role != "" {
			tok, err := utils.NewAccessToken(secret, "u-"+role, role, time.Minute)
			require.NoError(t, err)
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, scan(""))
	assert.Equal(t, http.StatusForbidden, scan(model.RoleUser))
	assert.Equal(t, http.StatusOK, scan(model.RoleClub))
	assert.Equal(t, http.StatusOK, scan(model.RoleAdmin))
	assert.Equal(t, 2, v.calls)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.CheckInOutcome(string(ticket.KindExpired), time.Millisecond)

	e := echo.New()
	RegisterRoutes(e, nil, reg)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `checkin_attempts_total{outcome="EXPIRED"} 1`)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
