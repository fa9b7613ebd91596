package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// client talks to the ticketing API on behalf of a door operator.
type client struct {
	base  string
	token string
	http  *http.Client
}

func newClient(base string, timeout time.Duration) *client {
	return &client{base: strings.TrimRight(base, "/"), http: &http.Client{Timeout: timeout}}
}

// rejection is a refused check-in as reported by the server.
type rejection struct {
	Status  int
	Kind    string    `json:"error"`
	Message string    `json:"message"`
	OpensAt time.Time `json:"check_in_opens_at"`
	Closed  time.Time `json:"check_in_closed_at"`
	UsedAt  time.Time `json:"checked_in_at"`
}

func (r *rejection) Error() string {
	msg := r.Kind
	if r.Message != "" && r.Message != r.Kind {
		msg += ": " + r.Message
	}
	switch {
	case !r.OpensAt.IsZero():
		msg += " (opens " + r.OpensAt.Local().Format(time.RFC1123) + ")"
	case !r.Closed.IsZero():
		msg += " (closed " + r.Closed.Local().Format(time.RFC1123) + ")"
	case !r.UsedAt.IsZero():
		msg += " (checked in " + r.UsedAt.Local().Format(time.RFC1123) + ")"
	}
	return msg
}

type admission struct {
	Message     string    `json:"message"`
	CheckedInAt time.Time `json:"checked_in_at"`
	Booking     struct {
		ID    string `json:"id"`
		Event struct {
			Title string    `json:"title"`
			Date  time.Time `json:"date"`
			Venue string    `json:"venue"`
		} `json:"event"`
		User struct {
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
			Email     string `json:"email"`
		} `json:"user"`
	} `json:"booking"`
}

func (c *client) post(ctx context.Context, path string, body, out any) (int, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return resp.StatusCode, nil, err
	}
	if out != nil && resp.StatusCode < 300 {
		if err := json.Unmarshal(buf.Bytes(), out); err != nil {
			return resp.StatusCode, buf.Bytes(), fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, buf.Bytes(), nil
}

// login exchanges credentials for an access token and keeps it.
func (c *client) login(ctx context.Context, email, password string) error {
	var out struct {
		Access struct {
			Token string `json:"token"`
		} `json:"access"`
	}
	status, body, err := c.post(ctx, "/v1/auth/login", map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("login: %s", serverError(status, body))
	}
	c.token = out.Access.Token
	return nil
}

// verify submits a scanned ticket.  A refusal is returned as *rejection.
func (c *client) verify(ctx context.Context, qr string) (*admission, error) {
	var out admission
	status, body, err := c.post(ctx, "/v1/bookings/verify-qr", map[string]string{"qr_code": qr}, &out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusOK {
		return &out, nil
	}
	var rej rejection
	if json.Unmarshal(body, &rej) == nil && rej.Kind != "" && status < 500 && status != http.StatusUnauthorized && status != http.StatusForbidden {
		rej.Status = status
		return nil, &rej
	}
	return nil, fmt.Errorf("verify: %s", serverError(status, body))
}

func serverError(status int, body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return fmt.Sprintf("%d %s", status, e.Error)
	}
	return fmt.Sprintf("%d %s", status, http.StatusText(status))
}
