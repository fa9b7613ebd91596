package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/club-event-ticketing/internal/config"
	"github.com/iliyamo/club-event-ticketing/internal/model"
	"github.com/iliyamo/club-event-ticketing/internal/otp"
	"github.com/iliyamo/club-event-ticketing/internal/repository"
	"github.com/iliyamo/club-event-ticketing/internal/utils"
)

// Users is the user persistence used by AuthHandler.
type Users interface {
	Create(ctx context.Context, nu repository.NewUser, cost int) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// Verifications is the email verification flow gating registration.
type Verifications interface {
	Send(ctx context.Context, email string) (time.Time, error)
	Verify(ctx context.Context, email, code string) error
	IsVerified(ctx context.Context, email string) (bool, error)
	Remove(ctx context.Context, email string) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  Users
	OTP    Verifications
	Logger *slog.Logger
}

func NewAuthHandler(cfg config.Config, u Users, v Verifications, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{Cfg: cfg, Users: u, OTP: v, Logger: logger}
}

// ----- DTOs -----

type otpSendReq struct {
	Email string `json:"email" validate:"required,email"`
}
type otpVerifyReq struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}
type registerReq struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Role      string `json:"role"` // USER | CLUB
}
type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	User   model.User `json:"user"`
	Access tokenPart  `json:"access"`
}

// bindValid binds and validates req, returning a client message on failure.
func bindValid(c echo.Context, req any) (string, bool) {
	if err := c.Bind(req); err != nil {
		return "invalid body", false
	}
	if err := c.Validate(req); err != nil {
		return validationMessage(err), false
	}
	return "", true
}

// SendOTP: POST /v1/auth/otp/send.  A new code replaces any pending one.
func (h *AuthHandler) SendOTP(c echo.Context) error {
	var req otpSendReq
	if msg, ok := bindValid(c, &req); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Users.GetByEmail(ctx, req.Email); err == nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	} else if !errors.Is(err, repository.ErrNotFound) {
		h.Logger.ErrorContext(ctx, "auth: lookup user failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	expiresAt, err := h.OTP.Send(ctx, req.Email)
	if err != nil {
		h.Logger.ErrorContext(ctx, "auth: send otp failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not send verification code"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "verification code sent", "expires_at": expiresAt.UTC()})
}

// VerifyOTP: POST /v1/auth/otp/verify.
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req otpVerifyReq
	if msg, ok := bindValid(c, &req); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err := h.OTP.Verify(ctx, req.Email, req.Code)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"message": "email verified"})
	case errors.Is(err, otp.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no verification code was requested for this email"})
	case errors.Is(err, otp.ErrExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": "verification code has expired"})
	case errors.Is(err, otp.ErrTooManyAttempts):
		return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many attempts, request a new code"})
	case errors.Is(err, otp.ErrInvalidCode):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "verification code is incorrect"})
	}
	h.Logger.ErrorContext(ctx, "auth: verify otp failed", "error", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verification failed"})
}

// Register: create a user for an email that passed OTP verification and
// return an access token immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if msg, ok := bindValid(c, &req); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role != model.RoleClub {
		role = model.RoleUser
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	verified, err := h.OTP.IsVerified(ctx, req.Email)
	if err != nil {
		h.Logger.ErrorContext(ctx, "auth: otp lookup failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verification lookup failed"})
	}
	if !verified {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "email has not been verified"})
	}

	u, err := h.Users.Create(ctx, repository.NewUser{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Role:      role,
	}, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		if errors.Is(err, utils.ErrPasswordTooLong) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		h.Logger.ErrorContext(ctx, "auth: create user failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	if err := h.OTP.Remove(ctx, req.Email); err != nil {
		h.Logger.WarnContext(ctx, "auth: clearing otp failed", "error", err)
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTL())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	h.Logger.InfoContext(ctx, "user registered", "user_id", u.ID, "role", u.Role)
	return c.JSON(http.StatusCreated, authResp{User: *u, Access: tokenPart{Token: access.Token, Expires: access.Exp}})
}

// Login: verify the password and return an access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if msg, ok := bindValid(c, &req); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.DummyVerify(req.Password)
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		h.Logger.ErrorContext(ctx, "auth: lookup user failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTL())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, authResp{User: *u, Access: tokenPart{Token: access.Token, Expires: access.Exp}})
}

// Me: the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	u, err := h.Users.GetByID(c.Request().Context(), uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, u)
}
