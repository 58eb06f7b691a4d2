package domain

import "context"

// ExecutionClient is implemented by every engine-specific client.
// The dispatcher only ever sees clients through this interface.
type ExecutionClient interface {
	// Init sets the client up from engine connection properties.
	// It is called once, before any other method.
	Init(properties map[string]string) error
	// Submit hands the job to the engine and returns without waiting for it to complete.
	Submit(ctx context.Context, job *JobRequest) (*JobResult, error)
	Cancel(ctx context.Context, jobId string) (*JobResult, error)
	// GetStatus returns an *ErrBackendIO if the engine can't be reached.
	GetStatus(ctx context.Context, jobId string) (TaskStatus, error)
	// GetMasterEndpoint returns the address of the current engine master.
	GetMasterEndpoint() string
	// ForwardHTTP queries the engine's HTTP surface and returns the raw response body.
	ForwardHTTP(ctx context.Context, path string) (string, error)
}
