package dispatchctl

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/G-Research/engine-dispatch/internal/dispatcher/domain"
)

// JobFile is the YAML representation of a job, e.g.
//
//	jobId: job-1
//	engineType: spark
//	confProperties:
//	  driver.memory: 2g
//	  cores.max: 4
type JobFile struct {
	JobId          string        `yaml:"jobId"`
	JobName        string        `yaml:"jobName"`
	EngineType     string        `yaml:"engineType"`
	TaskParams     string        `yaml:"taskParams"`
	ConfProperties yaml.MapSlice `yaml:"confProperties"`
}

// ReadJob loads a job from a YAML file, keeping the declaration order of its properties.
func ReadJob(path string) (*domain.JobRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading job")
	}
	return ParseJob(data)
}

func ParseJob(data []byte) (*domain.JobRequest, error) {
	var file JobFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, "decoding job")
	}
	if file.EngineType == "" {
		return nil, errors.New("job has no engineType")
	}

	props := make([]domain.Property, 0, len(file.ConfProperties))
	for _, item := range file.ConfProperties {
		props = append(props, domain.Property{Key: fmt.Sprint(item.Key), Value: item.Value})
	}
	job := domain.NewJobRequest(file.JobId, file.EngineType, props...)
	job.JobName = file.JobName
	job.TaskParams = file.TaskParams
	return job, nil
}
