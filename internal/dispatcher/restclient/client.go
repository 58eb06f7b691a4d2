package restclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/G-Research/engine-dispatch/internal/common/dispatcherrors"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/domain"
)

const (
	MasterProperty   = "master"
	RetryMaxProperty = "retryMax"
	TimeoutProperty  = "timeout"

	DefaultRetryMax = 3
	DefaultTimeout  = 30 * time.Second
)

type submitRequest struct {
	JobId          string         `json:"jobId"`
	JobName        string         `json:"jobName,omitempty"`
	EngineType     string         `json:"engineType"`
	TaskParams     string         `json:"taskParams,omitempty"`
	ConfProperties map[string]any `json:"confProperties,omitempty"`
}

type jobResponse struct {
	JobId   string            `json:"jobId"`
	Status  domain.TaskStatus `json:"status"`
	Message string            `json:"message"`
}

// Client talks to an engine master exposing a JSON job API:
//
//	POST   /jobs               submit
//	DELETE /jobs/{id}          cancel
//	GET    /jobs/{id}/status   poll
//
// Requests failing with a transport error or a 5xx response are retried with backoff up to retryMax times.
type Client struct {
	mu     sync.RWMutex
	master string
	http   *retryablehttp.Client
}

func NewClient() *Client {
	return &Client{}
}

// NewExecutionClient is a plugin.Factory for Client.
func NewExecutionClient() domain.ExecutionClient {
	return NewClient()
}

func (c *Client) Init(properties map[string]string) error {
	master, _ := lookup(properties, MasterProperty)
	master = strings.TrimSuffix(strings.TrimSpace(master), "/")
	if master == "" {
		return &dispatcherrors.ErrConfiguration{Key: MasterProperty, Message: "rest client requires the engine master address"}
	}
	if _, err := url.ParseRequestURI(master); err != nil {
		return &dispatcherrors.ErrConfiguration{Key: MasterProperty, Value: master, Message: err.Error()}
	}

	retryMax := DefaultRetryMax
	if value, ok := lookup(properties, RetryMaxProperty); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			return &dispatcherrors.ErrConfiguration{Key: RetryMaxProperty, Value: value, Message: "must be a non-negative integer"}
		}
		retryMax = parsed
	}

	timeout := DefaultTimeout
	if value, ok := lookup(properties, TimeoutProperty); ok {
		parsed, err := time.ParseDuration(value)
		if err != nil || parsed <= 0 {
			return &dispatcherrors.ErrConfiguration{Key: TimeoutProperty, Value: value, Message: "must be a positive duration"}
		}
		timeout = parsed
	}

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = retryMax
	httpClient.RetryWaitMin = 100 * time.Millisecond
	httpClient.RetryWaitMax = 2 * time.Second
	httpClient.HTTPClient.Timeout = timeout
	httpClient.Logger = leveledLogger{log.WithField("master", master)}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.master = master
	c.http = httpClient
	return nil
}

func (c *Client) Submit(ctx context.Context, job *domain.JobRequest) (*domain.JobResult, error) {
	body := submitRequest{
		JobId:          job.JobId,
		JobName:        job.JobName,
		EngineType:     job.EngineType,
		TaskParams:     job.TaskParams,
		ConfProperties: job.ConfMap(),
	}
	var response jobResponse
	status, err := c.doJSON(ctx, http.MethodPost, "/jobs", body, &response)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return domain.NewErrorResult(failureMessage(status, response.Message)), nil
	}
	if response.Status == "" {
		response.Status = domain.TaskStatusSubmitted
	}
	return &domain.JobResult{JobId: response.JobId, Status: response.Status, Message: response.Message}, nil
}

func (c *Client) Cancel(ctx context.Context, jobId string) (*domain.JobResult, error) {
	var response jobResponse
	status, err := c.doJSON(ctx, http.MethodDelete, "/jobs/"+url.PathEscape(jobId), nil, &response)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound:
		return &domain.JobResult{JobId: jobId, Status: domain.TaskStatusNotFound, Failed: true, Message: failureMessage(status, response.Message)}, nil
	case !isSuccess(status):
		return &domain.JobResult{JobId: jobId, Failed: true, Message: failureMessage(status, response.Message)}, nil
	}
	if response.Status == "" {
		response.Status = domain.TaskStatusCanceling
	}
	return &domain.JobResult{JobId: jobId, Status: response.Status, Message: response.Message}, nil
}

func (c *Client) GetStatus(ctx context.Context, jobId string) (domain.TaskStatus, error) {
	var response jobResponse
	status, err := c.doJSON(ctx, http.MethodGet, "/jobs/"+url.PathEscape(jobId)+"/status", nil, &response)
	if err != nil {
		return "", err
	}
	switch {
	case status == http.StatusNotFound:
		return domain.TaskStatusNotFound, nil
	case !isSuccess(status):
		return "", errors.Errorf("status of job %s: %s", jobId, failureMessage(status, response.Message))
	}
	return response.Status, nil
}

func (c *Client) GetMasterEndpoint() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.master
}

// ForwardHTTP returns the body of a GET request for path on the engine master.
func (c *Client) ForwardHTTP(ctx context.Context, path string) (string, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	resp, endpoint, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &dispatcherrors.ErrBackendIO{Endpoint: endpoint, Err: errors.WithStack(err)}
	}
	if !isSuccess(resp.StatusCode) {
		return "", errors.Errorf("GET %s: %s", endpoint, failureMessage(resp.StatusCode, string(data)))
	}
	return string(data), nil
}

// doJSON sends body (if any) as JSON and decodes a JSON response into out.
// Non-JSON responses are tolerated; out is left untouched in that case.
func (c *Client) doJSON(ctx context.Context, method string, path string, body interface{}, out interface{}) (int, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return 0, errors.WithStack(err)
		}
	}
	resp, endpoint, err := c.do(ctx, method, path, payload)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, &dispatcherrors.ErrBackendIO{Endpoint: endpoint, Err: errors.WithStack(err)}
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			log.WithField("endpoint", endpoint).Debugf("ignoring non-JSON response body: %s", err)
		}
	}
	return resp.StatusCode, nil
}

func (c *Client) do(ctx context.Context, method string, path string, payload []byte) (*http.Response, string, error) {
	c.mu.RLock()
	master, httpClient := c.master, c.http
	c.mu.RUnlock()
	if httpClient == nil {
		return nil, path, errors.New("rest client used before Init")
	}
	endpoint := master + path

	var body interface{}
	if payload != nil {
		body = payload
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, endpoint, errors.WithStack(err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, endpoint, &dispatcherrors.ErrBackendIO{Endpoint: endpoint, Err: errors.WithStack(err)}
	}
	return resp, endpoint, nil
}

// Property names are matched case-insensitively as configuration loading lower-cases them.
func lookup(properties map[string]string, key string) (string, bool) {
	if value, ok := properties[key]; ok {
		return value, true
	}
	for k, value := range properties {
		if strings.EqualFold(k, key) {
			return value, true
		}
	}
	return "", false
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func failureMessage(status int, message string) string {
	if message == "" {
		return http.StatusText(status)
	}
	return fmt.Sprintf("%s: %s", http.StatusText(status), message)
}
