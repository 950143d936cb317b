package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

const maxErrorBody = 64 << 10

// Options configures a Client.
type Options struct {
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Client talks to a taskboard server. It satisfies engine.Authority.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	logger  *log.Logger
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, clierr.Newf(clierr.InvalidInput, "invalid remote URL %q", baseURL)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Client{baseURL: u, token: opts.Token, http: hc, logger: logger}, nil
}

// FetchTasks returns the board's tasks in creation order.
func (c *Client) FetchTasks(ctx context.Context, boardID string) ([]task.Task, error) {
	var resp TasksResponse
	if err := c.do(ctx, http.MethodGet, boardPath(boardID, "tasks"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// UpdateStatus asks the server to move a task to status.
func (c *Client) UpdateStatus(ctx context.Context, taskID string, status task.Status) error {
	_, err := c.SetStatus(ctx, taskID, status)
	return err
}

// SetStatus moves a task and returns the server's copy of it.
func (c *Client) SetStatus(ctx context.Context, taskID string, status task.Status) (*task.Task, error) {
	var t task.Task
	if err := c.do(ctx, http.MethodPut, taskPath(taskID, "status"), StatusRequest{Status: status}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTask returns a single task.
func (c *Client) GetTask(ctx context.Context, taskID string) (*task.Task, error) {
	var t task.Task
	if err := c.do(ctx, http.MethodGet, taskPath(taskID, ""), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTask creates a task on the board.
func (c *Client) CreateTask(ctx context.Context, boardID string, req CreateRequest) (*task.Task, error) {
	var t task.Task
	if err := c.do(ctx, http.MethodPost, boardPath(boardID, "tasks"), req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTask applies a partial edit.
func (c *Client) UpdateTask(ctx context.Context, taskID string, req UpdateRequest) (*task.Task, error) {
	var t task.Task
	if err := c.do(ctx, http.MethodPatch, taskPath(taskID, ""), req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTask soft-deletes a task, or removes it when hard is set.
func (c *Client) DeleteTask(ctx context.Context, taskID string, hard bool) error {
	p := taskPath(taskID, "")
	if hard {
		p += "?hard=true"
	}
	return c.do(ctx, http.MethodDelete, p, nil, nil)
}

// Activity returns the most recent journal entries of a board.
func (c *Client) Activity(ctx context.Context, boardID string, limit int) (*ActivityResponse, error) {
	p := boardPath(boardID, "activity")
	if limit > 0 {
		p += fmt.Sprintf("?limit=%d", limit)
	}
	var resp ActivityResponse
	if err := c.do(ctx, http.MethodGet, p, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks that the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := sonic.ConfigStd.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("path", path).Debug("request failed")
		return clierr.Wrap(clierr.RemoteUnavailable, err, "remote unavailable: %v", err)
	}
	defer resp.Body.Close()

	c.logger.WithFields(log.Fields{
		"method":  method,
		"path":    path,
		"status":  resp.StatusCode,
		"latency": time.Since(start),
	}).Debug("request")

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var env ErrorResponse
	if err := sonic.ConfigStd.Unmarshal(data, &env); err != nil || env.Code == "" {
		code := clierr.InternalError
		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			code = clierr.Unauthorized
		case resp.StatusCode >= http.StatusInternalServerError:
			code = clierr.RemoteUnavailable
		}
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return clierr.Newf(code, "server returned %d: %s", resp.StatusCode, msg)
	}
	return &clierr.Error{Code: env.Code, Message: env.Error, Details: env.Details}
}

func boardPath(boardID, sub string) string {
	return "/api/boards/" + url.PathEscape(boardID) + "/" + sub
}

func taskPath(taskID, sub string) string {
	p := "/api/tasks/" + url.PathEscape(taskID)
	if sub != "" {
		p += "/" + sub
	}
	return p
}
