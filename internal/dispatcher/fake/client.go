package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/G-Research/engine-dispatch/internal/common/dispatcherrors"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/domain"
)

const MasterProperty = "master"

// Client is an in-memory execution client. Submitted jobs are accepted immediately and
// stay in the status they were given until changed with SetStatus or cancelled.
type Client struct {
	mu          sync.Mutex
	master      string
	initialised bool
	closed      bool
	jobs        map[string]domain.TaskStatus
	// When set, every backend call fails as if the engine were unreachable
	Unreachable bool
}

func NewClient() *Client {
	return &Client{jobs: map[string]domain.TaskStatus{}}
}

// NewExecutionClient is a plugin.Factory for Client.
func NewExecutionClient() domain.ExecutionClient {
	return NewClient()
}

func (c *Client) Init(properties map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	master, ok := properties[MasterProperty]
	if !ok || master == "" {
		return errors.Errorf("missing required property %q", MasterProperty)
	}
	c.master = master
	c.initialised = true
	return nil
}

func (c *Client) Submit(_ context.Context, job *domain.JobRequest) (*domain.JobResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkReachable("/jobs"); err != nil {
		return nil, err
	}
	jobId := uuid.NewString()
	c.jobs[jobId] = domain.TaskStatusSubmitted
	return domain.NewSuccessResult(jobId, domain.TaskStatusSubmitted), nil
}

func (c *Client) Cancel(_ context.Context, jobId string) (*domain.JobResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkReachable("/jobs/" + jobId); err != nil {
		return nil, err
	}
	if _, ok := c.jobs[jobId]; !ok {
		return &domain.JobResult{JobId: jobId, Status: domain.TaskStatusNotFound, Failed: true, Message: "no such job"}, nil
	}
	c.jobs[jobId] = domain.TaskStatusCanceled
	return domain.NewSuccessResult(jobId, domain.TaskStatusCanceled), nil
}

func (c *Client) GetStatus(_ context.Context, jobId string) (domain.TaskStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkReachable("/jobs/" + jobId + "/status"); err != nil {
		return "", err
	}
	status, ok := c.jobs[jobId]
	if !ok {
		return domain.TaskStatusNotFound, nil
	}
	return status, nil
}

func (c *Client) GetMasterEndpoint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.master
}

func (c *Client) ForwardHTTP(_ context.Context, path string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkReachable(path); err != nil {
		return "", err
	}
	return fmt.Sprintf(`{"master":%q,"path":%q,"jobs":%d}`, c.master, path, len(c.jobs)), nil
}

// SetStatus moves a submitted job to a new status.
func (c *Client) SetStatus(jobId string, status domain.TaskStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobs[jobId] = status
}

// Close marks the client closed; later backend calls fail.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) checkReachable(path string) error {
	if !c.initialised {
		return errors.New("client used before Init")
	}
	if c.Unreachable || c.closed {
		return &dispatcherrors.ErrBackendIO{Endpoint: c.master + path, Err: errors.New("connection refused")}
	}
	return nil
}
