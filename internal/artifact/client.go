// Package artifact calls the external document rendering service. The
// consuming services declare the generator ports; this client satisfies
// both of them.
package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	dErrors "verdant/pkg/domain-errors"
	"verdant/pkg/platform/circuit"
)

// Client renders documents over HTTP. A circuit breaker guards the calls so
// a down document service fails fast instead of burning the full timeout on
// every issuance.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	breaker *circuit.Breaker

	mu        sync.Mutex
	nextProbe time.Time
}

// probeInterval is how long an open breaker rejects calls before letting a
// single probe through.
const probeInterval = 30 * time.Second

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) { cl.logger = logger }
}

func NewClient(baseURL string, opts ...Option) *Client {
	cl := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
		breaker: circuit.New("artifact"),
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

// GenerateAssessmentDocument renders the submitted questionnaire.
func (c *Client) GenerateAssessmentDocument(ctx context.Context, registrationID string) (string, error) {
	return c.generate(ctx, "/documents/assessment", map[string]string{
		"registrationId": registrationID,
	})
}

// GenerateCertificateDocument renders the certificate for the given grade.
func (c *Client) GenerateCertificateDocument(ctx context.Context, userID, grade string) (string, error) {
	return c.generate(ctx, "/documents/certificate", map[string]string{
		"userId": userID,
		"grade":  grade,
	})
}

func (c *Client) generate(ctx context.Context, path string, payload map[string]string) (string, error) {
	if c.rejectFast() {
		return "", dErrors.New(dErrors.CodeGenerationFailed, "document service circuit open")
	}

	url, err := c.doGenerate(ctx, path, payload)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeGenerationFailed) {
			if opened, change := c.breaker.RecordFailure(); opened {
				c.deferProbe()
				if change.Opened {
					c.logger.WarnContext(ctx, "document service circuit opened", "breaker", c.breaker.Name())
				}
			}
		}
		return "", err
	}

	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "document service circuit closed", "breaker", c.breaker.Name())
	}
	return url, nil
}

// rejectFast reports whether the call should be short-circuited. An open
// breaker lets one probe through per interval so recovery is detected.
func (c *Client) rejectFast() bool {
	if !c.breaker.IsOpen() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Now().Before(c.nextProbe) {
		return true
	}
	c.nextProbe = time.Now().Add(probeInterval)
	return false
}

func (c *Client) deferProbe() {
	c.mu.Lock()
	c.nextProbe = time.Now().Add(probeInterval)
	c.mu.Unlock()
}

func (c *Client) doGenerate(ctx context.Context, path string, payload map[string]string) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode document request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to build document request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeGenerationFailed, "document service unreachable")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", dErrors.New(dErrors.CodeGenerationFailed,
			fmt.Sprintf("document service returned status %d", resp.StatusCode))
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeGenerationFailed, "failed to decode document response")
	}
	if out.URL == "" {
		return "", dErrors.New(dErrors.CodeGenerationFailed, "document service returned no url")
	}
	return out.URL, nil
}
