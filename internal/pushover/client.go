package pushover

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultEndpoint = "https://api.pushover.net/1/messages.json"
	DefaultTitle    = "Stage Alert"
	DefaultTimeout  = 10 * time.Second

	maxBodySize = 64 * 1024
)

var (
	ErrMissingCredentials = errors.New("pushover credentials are not configured")
	ErrDeliveryFailed     = errors.New("notification delivery failed")
)

// DeliveryError describes a rejected or failed request. Status is 0 when the
// request never got a response.
type DeliveryError struct {
	Status int
	Body   string
	Err    error
}

func (e *DeliveryError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("delivery failed: %v", e.Err)
	}
	return fmt.Sprintf("delivery failed: HTTP %d: %s", e.Status, e.Body)
}

func (e *DeliveryError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDeliveryFailed}
	}
	return []error{ErrDeliveryFailed, e.Err}
}

// CredentialSource provides the current credentials.
type CredentialSource interface {
	Credentials() (userKey, apiToken string)
}

// Receipt is the decoded body of an accepted request. Receipt is set only for
// emergency messages.
type Receipt struct {
	Status  int    `json:"status"`
	Request string `json:"request"`
	Receipt string `json:"receipt,omitempty"`
}

// Options configures a Client. Zero values select the defaults.
type Options struct {
	Endpoint   string
	Title      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client sends messages to the Pushover API.
type Client struct {
	endpoint string
	title    string
	http     *http.Client
	creds    CredentialSource
}

// NewClient creates a Client reading credentials from creds on every send.
func NewClient(creds CredentialSource, opts Options) *Client {
	c := &Client{
		endpoint: opts.Endpoint,
		title:    opts.Title,
		http:     opts.HTTPClient,
		creds:    creds,
	}
	if c.endpoint == "" {
		c.endpoint = DefaultEndpoint
	}
	if c.title == "" {
		c.title = DefaultTitle
	}
	if c.http == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}
	return c
}

// BuildForm returns the form body for a message. retry and expire are added
// for emergency priority only.
func BuildForm(userKey, apiToken, title, message string, priority Priority) url.Values {
	form := url.Values{}
	form.Set("token", apiToken)
	form.Set("user", userKey)
	form.Set("message", message)
	form.Set("title", title)
	form.Set("priority", strconv.Itoa(int(priority)))
	if priority == PriorityEmergency {
		form.Set("retry", strconv.Itoa(EmergencyRetry))
		form.Set("expire", strconv.Itoa(EmergencyExpire))
	}
	return form
}

// Send posts message with the given priority. It fails with
// ErrMissingCredentials without any network call when either credential is
// empty, and with a *DeliveryError on transport failure or a non-200 status.
func (c *Client) Send(ctx context.Context, message string, priority Priority) (*Receipt, error) {
	userKey, apiToken := c.creds.Credentials()
	if userKey == "" || apiToken == "" {
		return nil, ErrMissingCredentials
	}

	form := BuildForm(userKey, apiToken, c.title, message, priority)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	slog.Debug("sending pushover notification",
		"priority", int(priority),
		"priority_label", priority.Label(),
		"user_key", redact(userKey))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &DeliveryError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &DeliveryError{Status: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &DeliveryError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	receipt := &Receipt{Status: 1}
	if len(body) > 0 {
		if err := json.Unmarshal(body, receipt); err != nil {
			slog.Debug("pushover response is not JSON", "error", err)
		}
	}
	return receipt, nil
}

// redact keeps the first few characters of a secret for log correlation.
func redact(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}
