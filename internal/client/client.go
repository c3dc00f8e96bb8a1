// Package client talks to the batch manager REST API. Every method performs
// exactly one HTTP round-trip and never retries; failures are reported
// through the error taxonomy in errors.go.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/RevCBH/batchq/internal/auth"
)

const (
	// DefaultTimeout bounds a single request to the manager
	DefaultTimeout = 10 * time.Second

	// maxBodySize caps how much of a response body is read
	maxBodySize = 8 << 20

	// maxDetailSize caps the body text carried in error values
	maxDetailSize = 4 << 10
)

// errNullBody rejects a literal null where an array or object is expected
var errNullBody = errors.New("body is null")

// Options configures a Client.
type Options struct {
	// Timeout bounds each request (default: DefaultTimeout)
	Timeout time.Duration

	// HTTPClient overrides the client built from the auth settings
	HTTPClient *http.Client

	// Logger receives a debug line per request
	Logger zerolog.Logger

	// UserAgent is sent with each request (default: "batchq")
	UserAgent string
}

// Client issues typed requests against one manager base URL.
type Client struct {
	baseURL   string
	settings  *auth.Settings
	http      *http.Client
	timeout   time.Duration
	userAgent string
	log       zerolog.Logger
}

// New creates a client for baseURL authenticated with settings.
func New(baseURL string, settings *auth.Settings, opts Options) (*Client, error) {
	if settings == nil {
		return nil, errors.New("settings cannot be nil")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse manager url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("manager url %q: scheme must be http or https", baseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		transport, err := settings.Transport()
		if err != nil {
			return nil, fmt.Errorf("configure tls: %w", err)
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: transport,
		}
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "batchq"
	}

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		settings:  settings,
		http:      httpClient,
		timeout:   timeout,
		userAgent: userAgent,
		log:       opts.Logger.With().Str("component", "client").Logger(),
	}, nil
}

// BaseURL returns the manager URL this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListJobTypes returns the catalog of job types.
func (c *Client) ListJobTypes(ctx context.Context) ([]JobType, error) {
	var types []JobType
	if err := c.do(ctx, "list job types", http.MethodGet, "/type", nil, nil, &types); err != nil {
		return nil, err
	}
	if err := validateJobTypes(types); err != nil {
		return nil, &ProtocolError{Op: "list job types", Err: err}
	}
	return types, nil
}

// ListQueues returns every queue visible to the user.
// The first call of a session doubles as the login check.
func (c *Client) ListQueues(ctx context.Context) ([]Queue, error) {
	var queues []Queue
	if err := c.do(ctx, "list queues", http.MethodGet, "/queue", nil, nil, &queues); err != nil {
		return nil, err
	}
	if err := validateQueues(queues); err != nil {
		return nil, &ProtocolError{Op: "list queues", Err: err}
	}
	return queues, nil
}

// ListJobs returns the jobs of a queue in all statuses.
func (c *Client) ListJobs(ctx context.Context, queue string) ([]Job, error) {
	var jobs []Job
	query := url.Values{"status": []string{"all"}}
	path := "/queue/" + url.PathEscape(queue) + "/jobs"
	if err := c.do(ctx, "list jobs", http.MethodGet, path, query, nil, &jobs); err != nil {
		return nil, err
	}
	if err := validateJobs(jobs); err != nil {
		return nil, &ProtocolError{Op: "list jobs", Err: err}
	}
	return jobs, nil
}

// GetStats returns per-status job counts for a queue.
func (c *Client) GetStats(ctx context.Context, queue string) (*QueueStats, error) {
	var stats QueueStats
	if err := c.do(ctx, "get stats", http.MethodGet, "/stats/"+url.PathEscape(queue), nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Enqueue submits a new job. The manager assigns its id and initial status.
func (c *Client) Enqueue(ctx context.Context, queue, typeName string, params map[string]string) (*Job, error) {
	if params == nil {
		params = map[string]string{}
	}
	req := EnqueueRequest{Queue: queue, Type: typeName, Params: params}

	var job Job
	if err := c.do(ctx, "enqueue", http.MethodPost, "/queue/"+url.PathEscape(queue), nil, req, &job); err != nil {
		return nil, err
	}
	if err := validateJob(job); err != nil {
		return nil, &ProtocolError{Op: "enqueue", Err: err}
	}
	return &job, nil
}

// GetJob returns a single job by id.
func (c *Client) GetJob(ctx context.Context, id int64) (*Job, error) {
	var job Job
	if err := c.do(ctx, "get job", http.MethodGet, jobPath(id), nil, nil, &job); err != nil {
		return nil, err
	}
	if err := validateJob(job); err != nil {
		return nil, &ProtocolError{Op: "get job", Err: err}
	}
	return &job, nil
}

// DeleteJob removes a job. Only the status code is inspected.
func (c *Client) DeleteJob(ctx context.Context, id int64) error {
	return c.do(ctx, "delete job", http.MethodDelete, jobPath(id), nil, nil, nil)
}

// CreateQueue creates a queue and returns the manager's view of it.
func (c *Client) CreateQueue(ctx context.Context, queue Queue) (*Queue, error) {
	var created Queue
	if err := c.do(ctx, "create queue", http.MethodPost, "/queue", nil, queue, &created); err != nil {
		return nil, err
	}
	if err := validateQueue(created); err != nil {
		return nil, &ProtocolError{Op: "create queue", Err: err}
	}
	return &created, nil
}

// UpdateQueue sets the enabled flag of a queue.
func (c *Client) UpdateQueue(ctx context.Context, name string, enabled bool) error {
	return c.do(ctx, "update queue", http.MethodPut, "/queue/"+url.PathEscape(name), nil, queueUpdate{Enabled: enabled}, nil)
}

// ListSchedules returns the schedules queues can be bound to.
func (c *Client) ListSchedules(ctx context.Context) ([]Schedule, error) {
	var schedules []Schedule
	if err := c.do(ctx, "list schedules", http.MethodGet, "/schedule", nil, nil, &schedules); err != nil {
		return nil, err
	}
	if err := validateSchedules(schedules); err != nil {
		return nil, &ProtocolError{Op: "list schedules", Err: err}
	}
	return schedules, nil
}

func jobPath(id int64) string {
	return "/job/" + strconv.FormatInt(id, 10)
}

// do performs one round-trip and classifies the outcome.
// in is JSON-encoded as the request body when non-nil; out receives the
// decoded response body when non-nil.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	requestID := ulid.Make().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.settings.ApplyBasicAuth(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Str("op", op).Str("request_id", requestID).Err(err).Msg("request failed")
		return newTransportError(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return newTransportError(op, err)
	}

	c.log.Debug().
		Str("op", op).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Str("request_id", requestID).
		Msg("request")

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &UnauthorizedError{Op: op, StatusCode: resp.StatusCode, Body: detail(data)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &RemoteError{Op: op, StatusCode: resp.StatusCode, Body: detail(data)}
	}

	if out == nil {
		return nil
	}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return &ProtocolError{Op: op, Body: detail(data), Err: errNullBody}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ProtocolError{Op: op, Body: detail(data), Err: err}
	}
	return nil
}

func detail(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxDetailSize {
		s = s[:maxDetailSize] + "..."
	}
	return s
}
