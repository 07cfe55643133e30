package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

const postmarkAPIURL = "https://api.postmarkapp.com/email"

type Client struct {
	serverToken string
	fromEmail   string
	apiURL      string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithAPIURL overrides the Postmark endpoint, used by tests.
func WithAPIURL(url string) Option {
	return func(cl *Client) {
		cl.apiURL = url
	}
}

func NewClient(serverToken, fromEmail string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		apiURL:      postmarkAPIURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

func (c *Client) SendPasswordReset(toEmail, resetLink string) error {
	textBody := fmt.Sprintf(
		"We received a request to reset your password.\n\nOpen the link below to choose a new one:\n\n%s\n\nThe link expires in 24 hours. If you did not ask for this, you can ignore this email.",
		resetLink,
	)
	htmlBody := fmt.Sprintf(
		`<p>We received a request to reset your password.</p><p><a href="%s">Choose a new password</a></p><p>The link expires in 24 hours. If you did not ask for this, you can ignore this email.</p>`,
		resetLink,
	)
	return c.send(toEmail, "Reset your password", htmlBody, textBody)
}

func (c *Client) SendWelcome(toEmail, fullName string) error {
	textBody := fmt.Sprintf("Hi %s,\n\nYour membership account is ready. Sign in with this email address to get started.", fullName)
	htmlBody := fmt.Sprintf(`<p>Hi %s,</p><p>Your membership account is ready. Sign in with this email address to get started.</p>`, fullName)
	return c.send(toEmail, "Welcome aboard", htmlBody, textBody)
}

func (c *Client) SendPasswordChanged(toEmail string) error {
	const textBody = "Your password was changed. If this was not you, contact an administrator immediately."
	const htmlBody = `<p>Your password was changed.</p><p>If this was not you, contact an administrator immediately.</p>`
	return c.send(toEmail, "Your password was changed", htmlBody, textBody)
}

func (c *Client) send(toEmail, subject, htmlBody, textBody string) error {
	if c.serverToken == "" {
		return fmt.Errorf("email client not configured: missing server token")
	}

	payload := postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}
	return nil
}
