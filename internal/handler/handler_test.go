package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/club-event-ticketing/internal/config"
	"github.com/iliyamo/club-event-ticketing/internal/middleware"
	"github.com/iliyamo/club-event-ticketing/internal/model"
	"github.com/iliyamo/club-event-ticketing/internal/otp"
	"github.com/iliyamo/club-event-ticketing/internal/repository"
	"github.com/iliyamo/club-event-ticketing/internal/ticket"
	"github.com/iliyamo/club-event-ticketing/internal/utils"
)

const jwtSecret = "handler-secret"

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func do(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(jwtSecret, userID, role, time.Minute)
	require.NoError(t, err)
	return tok.Token
}

// ===========================================================================
// Check-in
// ===========================================================================

type fakeVerifier struct {
	res *ticket.CheckInResult
	err error

	gotToken string
	gotOp    ticket.Operator
}

func (f *fakeVerifier) Verify(_ context.Context, presented string, op ticket.Operator) (*ticket.CheckInResult, error) {
	f.gotToken, f.gotOp = presented, op
	return f.res, f.err
}

func checkInServer(v TicketVerifier) *echo.Echo {
	e := newEcho()
	h := NewCheckInHandler(v, nil)
	e.POST("/v1/bookings/verify-qr", h.VerifyQR, middleware.JWTAuth(jwtSecret))
	return e
}

func TestVerifyQRSuccess(t *testing.T) {
	at := time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC)
	v := &fakeVerifier{res: &ticket.CheckInResult{
		Booking: model.BookingDetail{
			Booking: model.Booking{ID: "b1", Status: model.BookingCheckedIn, CheckedInAt: &at},
			Event:   model.EventSummary{Title: "Spring Gala"},
			User:    model.UserSummary{FirstName: "Ada", LastName: "Lovelace"},
		},
		CheckedInAt: at,
	}}
	e := checkInServer(v)

	rec := do(e, http.MethodPost, "/v1/bookings/verify-qr", `{"qr_code":"  tok  "}`, token(t, "op-1", model.RoleClub))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "check-in successful", body["message"])
	assert.Equal(t, "2025-06-01T18:30:00Z", body["checked_in_at"])
	booking := body["booking"].(map[string]any)
	assert.Equal(t, "b1", booking["id"])
	assert.Equal(t, "Spring Gala", booking["event"].(map[string]any)["title"])

	assert.Equal(t, "  tok  ", v.gotToken)
	assert.Equal(t, ticket.Operator{UserID: "op-1", Role: model.RoleClub}, v.gotOp)
}

func TestVerifyQRRejections(t *testing.T) {
	at := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		err     error
		status  int
		kind    string
		timeKey string
	}{
		{"malformed", &ticket.Error{Kind: ticket.KindMalformed}, http.StatusBadRequest, "MALFORMED", ""},
		{"bad signature", &ticket.Error{Kind: ticket.KindSignatureInvalid}, http.StatusBadRequest, "SIGNATURE_INVALID", ""},
		{"expired", &ticket.Error{Kind: ticket.KindExpired}, http.StatusBadRequest, "EXPIRED", ""},
		{"wrong type", &ticket.Error{Kind: ticket.KindWrongType}, http.StatusBadRequest, "WRONG_TYPE", ""},
		{"not found", &ticket.Error{Kind: ticket.KindBookingNotFound}, http.StatusNotFound, "BOOKING_NOT_FOUND", ""},
		{"mismatch", &ticket.Error{Kind: ticket.KindCredentialBookingMismatch}, http.StatusBadRequest, "CREDENTIAL_BOOKING_MISMATCH", ""},
		{"cancelled", &ticket.Error{Kind: ticket.KindBookingCancelled}, http.StatusBadRequest, "BOOKING_CANCELLED", ""},
		{"already used", &ticket.Error{Kind: ticket.KindAlreadyCheckedIn, At: at}, http.StatusConflict, "ALREADY_CHECKED_IN", "checked_in_at"},
		{"too early", &ticket.Error{Kind: ticket.KindNotYetOpen, At: at}, http.StatusBadRequest, "CHECK_IN_NOT_YET_OPEN", "check_in_opens_at"},
		{"too late", &ticket.Error{Kind: ticket.KindWindowClosed, At: at}, http.StatusBadRequest, "CHECK_IN_WINDOW_CLOSED", "check_in_closed_at"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := checkInServer(&fakeVerifier{err: tc.err})
			rec := do(e, http.MethodPost, "/v1/bookings/verify-qr", `{"qr_code":"tok"}`, token(t, "op-1", model.RoleAdmin))
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			body := decode(t, rec)
			assert.Equal(t, tc.kind, body["error"])
			assert.NotEmpty(t, body["message"])
			if tc.timeKey != "" {
				assert.Equal(t, "2025-06-01T14:00:00Z", body[tc.timeKey])
			}
		})
	}
}

func TestVerifyQRInfrastructureFault(t *testing.T) {
	e := checkInServer(&fakeVerifier{err: errors.New("connection reset")})
	rec := do(e, http.MethodPost, "/v1/bookings/verify-qr", `{"qr_code":"tok"}`, token(t, "op-1", model.RoleClub))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestVerifyQRRequiresToken(t *testing.T) {
	v := &fakeVerifier{}
	e := checkInServer(v)
	for _, body := range []string{`{}`, `{"qr_code":"   "}`, `not json`} {
		rec := do(e, http.MethodPost, "/v1/bookings/verify-qr", body, token(t, "op-1", model.RoleClub))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, v.gotToken)
}

func TestVerifyQRWithoutOperator(t *testing.T) {
	e := newEcho()
	h := NewCheckInHandler(&fakeVerifier{err: ticket.ErrNoOperator}, nil)
	e.POST("/scan", h.VerifyQR)
	rec := do(e, http.MethodPost, "/scan", `{"qr_code":"tok"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ===========================================================================
// Auth
// ===========================================================================

type memUsers struct {
	mu   sync.Mutex
	byID map[string]*model.User
}

func newMemUsers() *memUsers { return &memUsers{byID: make(map[string]*model.User)} }

func (m *memUsers) Create(_ context.Context, nu repository.NewUser, cost int) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(nu.Email))
	for _, u := range m.byID {
		if u.Email == email {
			return nil, repository.ErrDuplicate
		}
	}
	hash, err := utils.HashPassword(nu.Password, cost)
	if err != nil {
		return nil, err
	}
	u := &model.User{ID: uuid.NewString(), Email: email, PasswordHash: hash,
		FirstName: nu.FirstName, LastName: nu.LastName, Role: nu.Role}
	m.byID[u.ID] = u
	return u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

type codeSink struct {
	mu    sync.Mutex
	codes map[string]string
}

func (s *codeSink) SendCode(_ context.Context, email, code string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.codes == nil {
		s.codes = make(map[string]string)
	}
	s.codes[email] = code
	return nil
}

func (s *codeSink) code(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[email]
}

type authFixture struct {
	e     *echo.Echo
	users *memUsers
	sink  *codeSink
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	sink := &codeSink{}
	svc, err := otp.NewService(otp.NewMemoryStore(), sink, 10*time.Minute, 3)
	require.NoError(t, err)
	users := newMemUsers()
	cfg := config.Config{JWTSecret: jwtSecret, AccessTTLMin: 15, BcryptCost: 4}
	h := NewAuthHandler(cfg, users, svc, nil)

	e := newEcho()
	e.POST("/v1/auth/otp/send", h.SendOTP)
	e.POST("/v1/auth/otp/verify", h.VerifyOTP)
	e.POST("/v1/auth/register", h.Register)
	e.POST("/v1/auth/login", h.Login)
	e.GET("/v1/me", h.Me, middleware.JWTAuth(jwtSecret))
	return &authFixture{e: e, users: users, sink: sink}
}

func (f *authFixture) verifyEmail(t *testing.T, email string) {
	t.Helper()
	rec := do(f.e, http.MethodPost, "/v1/auth/otp/send", `{"email":"`+email+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	code := f.sink.code(email)
	require.Len(t, code, 6)
	rec = do(f.e, http.MethodPost, "/v1/auth/otp/verify", `{"email":"`+email+`","code":"`+code+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRegisterRequiresVerifiedEmail(t *testing.T) {
	f := newAuthFixture(t)
	body := `{"email":"ada@example.com","password":"correct-horse","first_name":"Ada"}`

	rec := do(f.e, http.MethodPost, "/v1/auth/register", body, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	f.verifyEmail(t, "ada@example.com")
	rec = do(f.e, http.MethodPost, "/v1/auth/register", body, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode(t, rec)
	user := resp["user"].(map[string]any)
	assert.Equal(t, "ada@example.com", user["email"])
	assert.Equal(t, model.RoleUser, user["role"])
	assert.NotContains(t, rec.Body.String(), "password")
	access := resp["access"].(map[string]any)["token"].(string)

	claims, err := utils.ParseAccessToken(jwtSecret, access)
	require.NoError(t, err)
	assert.Equal(t, user["id"], claims.Subject)

	// verification is consumed by registration
	rec = do(f.e, http.MethodPost, "/v1/auth/register", body, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(f.e, http.MethodGet, "/v1/me", "", access)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ada", decode(t, rec)["first_name"])
}

func TestRegisterIgnoresAdminRole(t *testing.T) {
	f := newAuthFixture(t)
	f.verifyEmail(t, "eve@example.com")
	rec := do(f.e, http.MethodPost, "/v1/auth/register",
		`{"email":"eve@example.com","password":"correct-horse","first_name":"Eve","role":"ADMIN"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, model.RoleUser, decode(t, rec)["user"].(map[string]any)["role"])
}

func TestRegisterValidation(t *testing.T) {
	f := newAuthFixture(t)
	rec := do(f.e, http.MethodPost, "/v1/auth/register", `{"email":"nope","password":"short"}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	msg := decode(t, rec)["error"].(string)
	assert.Contains(t, msg, "email: must be a valid email")
	assert.Contains(t, msg, "password: must be at least 8 characters")
	assert.Contains(t, msg, "first_name: is required")
}

func TestOTPVerifyOutcomes(t *testing.T) {
	f := newAuthFixture(t)

	rec := do(f.e, http.MethodPost, "/v1/auth/otp/verify", `{"email":"bob@example.com","code":"123456"}`, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(f.e, http.MethodPost, "/v1/auth/otp/send", `{"email":"bob@example.com"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	wrong := "000000"
	if f.sink.code("bob@example.com") == wrong {
		wrong = "111111"
	}
	rec = do(f.e, http.MethodPost, "/v1/auth/otp/verify", `{"email":"bob@example.com","code":"`+wrong+`"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(f.e, http.MethodPost, "/v1/auth/otp/verify", `{"email":"bob@example.com","code":"`+wrong+`"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(f.e, http.MethodPost, "/v1/auth/otp/verify", `{"email":"bob@example.com","code":"`+wrong+`"}`, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = do(f.e, http.MethodPost, "/v1/auth/otp/verify", `{"email":"bob@example.com","code":"12ab56"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendOTPForRegisteredEmail(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.users.Create(context.Background(), repository.NewUser{Email: "ada@example.com", Password: "x", Role: model.RoleUser}, 4)
	require.NoError(t, err)
	rec := do(f.e, http.MethodPost, "/v1/auth/otp/send", `{"email":"ada@example.com"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.users.Create(context.Background(), repository.NewUser{Email: "door@example.com", Password: "scanner-pass", Role: model.RoleClub}, 4)
	require.NoError(t, err)

	rec := do(f.e, http.MethodPost, "/v1/auth/login", `{"email":"Door@Example.com","password":"scanner-pass"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	access := decode(t, rec)["access"].(map[string]any)["token"].(string)
	claims, err := utils.ParseAccessToken(jwtSecret, access)
	require.NoError(t, err)
	assert.Equal(t, model.RoleClub, claims.Role)

	rec = do(f.e, http.MethodPost, "/v1/auth/login", `{"email":"door@example.com","password":"wrong-pass"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = do(f.e, http.MethodPost, "/v1/auth/login", `{"email":"ghost@example.com","password":"scanner-pass"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ===========================================================================
// Events, bookings, health
// ===========================================================================

type eventMap map[string]*model.Event

func (m eventMap) GetByID(_ context.Context, id string) (*model.Event, error) {
	if ev, ok := m[id]; ok {
		return ev, nil
	}
	return nil, repository.ErrNotFound
}

func TestGetEventReportsCheckInWindow(t *testing.T) {
	id := uuid.NewString()
	date := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	h := NewEventHandler(eventMap{id: {ID: id, Title: "Spring Gala", Date: date, Status: model.EventApproved}}, ticket.DefaultWindow())
	e := newEcho()
	e.GET("/v1/events/:id", h.GetEvent)

	rec := do(e, http.MethodGet, "/v1/events/"+id, "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Spring Gala", body["title"])
	assert.Equal(t, "2025-06-01T00:00:00Z", body["check_in_opens_at"])
	assert.Equal(t, "2025-06-01T22:00:00Z", body["check_in_closes_at"])

	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/v1/events/"+uuid.NewString(), "", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/v1/events/42", "", "").Code)
}

func TestBookingEndpointsRejectBadInputBeforeStorage(t *testing.T) {
	h := &BookingHandler{Now: time.Now}
	e := newEcho()
	auth := middleware.JWTAuth(jwtSecret)
	e.POST("/v1/events/:id/book", h.BookEvent, auth)
	e.PATCH("/v1/bookings/:id/cancel", h.CancelBooking, auth)
	e.GET("/v1/bookings/:id/ticket", h.Ticket, auth)
	e.GET("/anon/my-bookings", h.MyBookings)

	tok := token(t, uuid.NewString(), model.RoleUser)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/v1/events/not-a-uuid/book", "", tok).Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPatch, "/v1/bookings/1/cancel", "", tok).Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/v1/bookings/x/ticket", "", tok).Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodPost, "/v1/events/"+uuid.NewString()+"/book", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/anon/my-bookings", "", "").Code)
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	e := newEcho()
	e.GET("/up", Health(pinger{}))
	e.GET("/down", Health(pinger{err: errors.New("gone")}))
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/up", "", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(e, http.MethodGet, "/down", "", "").Code)
}
