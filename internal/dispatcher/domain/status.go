package domain

// TaskStatus is the status of a job as reported by an engine backend.
type TaskStatus string

const (
	TaskStatusUnsubmitted  TaskStatus = "UNSUBMITTED"
	TaskStatusSubmitting   TaskStatus = "SUBMITTING"
	TaskStatusSubmitted    TaskStatus = "SUBMITTED"
	TaskStatusWaiting      TaskStatus = "WAITING"
	TaskStatusScheduled    TaskStatus = "SCHEDULED"
	TaskStatusRunning      TaskStatus = "RUNNING"
	TaskStatusFinished     TaskStatus = "FINISHED"
	TaskStatusCanceling    TaskStatus = "CANCELING"
	TaskStatusCanceled     TaskStatus = "CANCELED"
	TaskStatusFailed       TaskStatus = "FAILED"
	TaskStatusSubmitFailed TaskStatus = "SUBMITFAILED"
	TaskStatusNotFound     TaskStatus = "NOTFOUND"
)

var terminalStatuses = map[TaskStatus]bool{
	TaskStatusFinished:     true,
	TaskStatusCanceled:     true,
	TaskStatusFailed:       true,
	TaskStatusSubmitFailed: true,
	TaskStatusNotFound:     true,
}

// IsTerminal returns true if a job in this status will not change status again.
func (s TaskStatus) IsTerminal() bool {
	return terminalStatuses[s]
}

// JobResult is returned by submit and cancel calls.
// Submission is asynchronous: a successful result carries the backend's job id and an initial status.
type JobResult struct {
	JobId   string
	Status  TaskStatus
	Failed  bool
	Message string
}

func NewSuccessResult(jobId string, status TaskStatus) *JobResult {
	return &JobResult{JobId: jobId, Status: status}
}

func NewErrorResult(message string) *JobResult {
	return &JobResult{Status: TaskStatusSubmitFailed, Failed: true, Message: message}
}
