package domain

import (
	"fmt"

	"github.com/elliotchance/orderedmap/v2"
)

// Property is a single user-declared job setting, e.g. {"driver.memory", "2g"}.
type Property struct {
	Key   string
	Value any
}

// JobRequest is a job as handed to the dispatcher by the scheduler.
// The dispatcher never modifies a JobRequest.
type JobRequest struct {
	JobId      string
	JobName    string
	EngineType string
	TaskParams string
	// User-declared settings in declaration order. Values are strings or numbers.
	ConfProperties *orderedmap.OrderedMap[string, any]
}

func NewJobRequest(jobId string, engineType string, props ...Property) *JobRequest {
	conf := orderedmap.NewOrderedMap[string, any]()
	for _, p := range props {
		conf.Set(p.Key, p.Value)
	}
	return &JobRequest{
		JobId:          jobId,
		EngineType:     engineType,
		ConfProperties: conf,
	}
}

// HasProperty returns true if the job declares a value for key.
func (j *JobRequest) HasProperty(key string) bool {
	if j.ConfProperties == nil {
		return false
	}
	_, ok := j.ConfProperties.Get(key)
	return ok
}

// Properties returns the declared settings in declaration order.
func (j *JobRequest) Properties() []Property {
	if j.ConfProperties == nil {
		return nil
	}
	props := make([]Property, 0, j.ConfProperties.Len())
	for el := j.ConfProperties.Front(); el != nil; el = el.Next() {
		props = append(props, Property{Key: el.Key, Value: el.Value})
	}
	return props
}

// ConfMap returns a copy of the declared settings as a plain map.
func (j *JobRequest) ConfMap() map[string]any {
	result := map[string]any{}
	if j.ConfProperties == nil {
		return result
	}
	for el := j.ConfProperties.Front(); el != nil; el = el.Next() {
		result[el.Key] = el.Value
	}
	return result
}

func (j *JobRequest) String() string {
	return fmt.Sprintf("%s (%s)", j.JobId, j.EngineType)
}
