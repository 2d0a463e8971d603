// Package mailer delivers transactional email through the Brevo HTTP API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("email service not configured")

// Sender is the email delivery collaborator used by the core flows.
type Sender interface {
	SendOTP(ctx context.Context, to, code, name string) error
	SendInvitation(ctx context.Context, to, link, companyName, inviterName string) error
	SendLeaveDecision(ctx context.Context, d LeaveDecision) error
}

// LeaveDecision is the content of a leave approval or rejection email.
type LeaveDecision struct {
	To        string
	Name      string
	LeaveType string
	StartDate string
	EndDate   string
	Status    string
}

// Config configures the Brevo client.
type Config struct {
	APIKey     string
	APIURL     string
	From       string
	SenderName string
	Attempts   uint
}

// Client calls the Brevo transactional email endpoint.
type Client struct {
	cfg  Config
	HTTP *http.Client
}

// New creates a client with a 10s per-attempt timeout.
func New(cfg Config) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.brevo.com/v3/smtp/email"
	}
	if cfg.SenderName == "" {
		cfg.SenderName = "HRMS Lite"
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	return &Client{
		cfg:  cfg,
		HTTP: &http.Client{Timeout: 10 * time.Second},
	}
}

type contact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type message struct {
	Sender      contact   `json:"sender"`
	To          []contact `json:"to"`
	Subject     string    `json:"subject"`
	HTMLContent string    `json:"htmlContent"`
}

// SendOTP emails a password reset code.
func (c *Client) SendOTP(ctx context.Context, to, code, name string) error {
	if name == "" {
		name = "User"
	}
	body := fmt.Sprintf(otpTemplate, html.EscapeString(name), html.EscapeString(code))
	return c.send(ctx, contact{Email: to, Name: name}, "HRMS Lite - Password Reset OTP", body)
}

// SendInvitation emails an invitation link.
func (c *Client) SendInvitation(ctx context.Context, to, link, companyName, inviterName string) error {
	body := fmt.Sprintf(invitationTemplate,
		html.EscapeString(inviterName),
		html.EscapeString(companyName),
		html.EscapeString(link),
		html.EscapeString(link),
	)
	return c.send(ctx, contact{Email: to}, "Invitation to join "+companyName, body)
}

// SendLeaveDecision emails the outcome of a leave request.
func (c *Client) SendLeaveDecision(ctx context.Context, d LeaveDecision) error {
	body := fmt.Sprintf(leaveTemplate,
		html.EscapeString(d.Name),
		html.EscapeString(d.LeaveType),
		html.EscapeString(d.StartDate),
		html.EscapeString(d.EndDate),
		html.EscapeString(d.Status),
	)
	return c.send(ctx, contact{Email: d.To, Name: d.Name}, "HRMS Lite - Leave "+d.Status, body)
}

func (c *Client) send(ctx context.Context, to contact, subject, htmlBody string) error {
	if c.cfg.APIKey == "" {
		return ErrNotConfigured
	}
	payload, err := json.Marshal(message{
		Sender:      contact{Email: c.cfg.From, Name: c.cfg.SenderName},
		To:          []contact{to},
		Subject:     subject,
		HTMLContent: htmlBody,
	})
	if err != nil {
		return err
	}

	err = retry.Do(
		func() error { return c.post(ctx, payload) },
		retry.Context(ctx),
		retry.Attempts(c.cfg.Attempts),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		slog.Warn("email delivery failed", "subject", subject, "err", err)
		return err
	}
	slog.Info("email sent", "subject", subject)
	return nil
}

func (c *Client) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(payload))
	if err != nil {
		return retry.Unrecoverable(err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("content-type", "application/json")
	req.Header.Set("api-key", c.cfg.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("brevo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusAccepted {
		return nil
	}
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := fmt.Errorf("Brevo API error: %d - %s", resp.StatusCode, bytes.TrimSpace(bodyBytes))
	if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return retry.Unrecoverable(apiErr)
	}
	return apiErr
}

const otpTemplate = `<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; color: #333;">
<h2>Hello %s,</h2>
<p>You requested to reset your password for your HRMS Lite account.</p>
<p>Your One-Time Password (OTP) is:</p>
<p style="font-size: 32px; font-weight: bold; letter-spacing: 5px;">%s</p>
<p><strong>This OTP is valid for 10 minutes.</strong></p>
<p>If you didn't request this password reset, please ignore this email or contact your admin.</p>
</body></html>`

const invitationTemplate = `<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; color: #333;">
<p>%s has invited you to join <strong>%s</strong> on HRMS Lite.</p>
<p><a href="%s">Accept invitation</a></p>
<p>If the button does not work, copy this link into your browser:<br>%s</p>
</body></html>`

const leaveTemplate = `<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; color: #333;">
<h2>Hello %s,</h2>
<p>Your %s leave from %s to %s has been <strong>%s</strong>.</p>
</body></html>`
