// Package requirements decodes the resource settings a job declares into typed requirements.
//
// Memory settings are free text ("2g", "512m") and never fail to decode: anything that can't be
// understood falls back to units.DefaultMegabytes. Parallelism and core settings must be integers;
// anything else is an *dispatcherrors.ErrConfiguration.
package requirements

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/G-Research/engine-dispatch/internal/common/config"
	"github.com/G-Research/engine-dispatch/internal/common/dispatcherrors"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/domain"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/units"
)

// Job property keys. These must match job configuration exactly.
const (
	FlinkSQLEnvParallelism = "sql.env.parallelism"
	FlinkMRParallelism     = "mr.job.parallelism"

	SparkExecutorMemory = "executor.memory"
	SparkDriverMemory   = "driver.memory"
	SparkDriverCores    = "driver.cores"
	SparkExecutorCores  = "executor.cores"
	SparkMaxCores       = "cores.max"
)

const (
	DefaultDriverMemoryMB   int64 = 512
	DefaultExecutorMemoryMB int64 = 512
	DefaultDriverCores            = 1
	DefaultMaxCores               = 1
	DefaultExecutorCores          = 1
)

// FlinkRequirement holds the parallelism settings a flink job declares; nil means not declared.
type FlinkRequirement struct {
	SQLParallelism *int `mapstructure:"sql.env.parallelism"`
	MRParallelism  *int `mapstructure:"mr.job.parallelism"`
}

// Parallelism returns the declared parallelism settings keyed by property name.
func (r *FlinkRequirement) Parallelism() map[string]int {
	result := map[string]int{}
	if r.SQLParallelism != nil {
		result[FlinkSQLEnvParallelism] = *r.SQLParallelism
	}
	if r.MRParallelism != nil {
		result[FlinkMRParallelism] = *r.MRParallelism
	}
	return result
}

// SparkRequirement is the driver and executor footprint of a spark job, with defaults applied.
type SparkRequirement struct {
	DriverMemoryMB int64
	// Memory per executor
	ExecutorMemoryMB int64
	DriverCores      int
	MaxCores         int
	ExecutorCores    int
	// max(1, MaxCores / ExecutorCores)
	ExecutorCount int
}

// RequiredMemoryMB is the driver memory plus the memory of every executor.
func (r *SparkRequirement) RequiredMemoryMB() int64 {
	return r.DriverMemoryMB + r.ExecutorMemoryMB*int64(r.ExecutorCount)
}

// RequiredCores is the driver cores plus cores.max.
// ExecutorCores only influences ExecutorCount; it doesn't enter this sum.
func (r *SparkRequirement) RequiredCores() int {
	return r.DriverCores + r.MaxCores
}

type sparkProperties struct {
	DriverMemory   *units.Megabytes `mapstructure:"driver.memory"`
	ExecutorMemory *units.Megabytes `mapstructure:"executor.memory"`
	DriverCores    *int             `mapstructure:"driver.cores"`
	MaxCores       *int             `mapstructure:"cores.max"`
	ExecutorCores  *int             `mapstructure:"executor.cores"`
}

// ExtractFlink decodes the parallelism settings of job.
func ExtractFlink(job *domain.JobRequest) (*FlinkRequirement, error) {
	result := &FlinkRequirement{}
	if err := decode(job, result, FlinkSQLEnvParallelism, FlinkMRParallelism); err != nil {
		return nil, err
	}
	return result, nil
}

// ExtractSpark decodes the memory and core settings of job and applies defaults.
func ExtractSpark(job *domain.JobRequest) (*SparkRequirement, error) {
	props := &sparkProperties{}
	if err := decode(job, props, SparkDriverCores, SparkMaxCores, SparkExecutorCores); err != nil {
		return nil, err
	}

	result := &SparkRequirement{
		DriverMemoryMB:   DefaultDriverMemoryMB,
		ExecutorMemoryMB: DefaultExecutorMemoryMB,
		DriverCores:      DefaultDriverCores,
		MaxCores:         DefaultMaxCores,
		ExecutorCores:    DefaultExecutorCores,
	}
	if props.DriverMemory != nil {
		result.DriverMemoryMB = int64(*props.DriverMemory)
	}
	if props.ExecutorMemory != nil {
		result.ExecutorMemoryMB = int64(*props.ExecutorMemory)
	}
	if props.DriverCores != nil {
		result.DriverCores = *props.DriverCores
	}
	if props.MaxCores != nil {
		result.MaxCores = *props.MaxCores
	}
	if props.ExecutorCores != nil {
		if *props.ExecutorCores <= 0 {
			return nil, &dispatcherrors.ErrConfiguration{
				Key:     SparkExecutorCores,
				Value:   *props.ExecutorCores,
				Message: "must be greater than zero",
			}
		}
		result.ExecutorCores = *props.ExecutorCores
	}

	result.ExecutorCount = result.MaxCores / result.ExecutorCores
	if result.ExecutorCount < 1 {
		result.ExecutorCount = 1
	}
	return result, nil
}

// decode maps the job properties onto out. The values of integerKeys are converted strictly first,
// so a blank, boolean or fractional setting is reported against its key instead of being coerced.
func decode(job *domain.JobRequest, out interface{}, integerKeys ...string) error {
	properties := job.ConfMap()
	for _, key := range integerKeys {
		value, ok := properties[key]
		if !ok {
			continue
		}
		converted, err := toInt(value)
		if err != nil {
			return &dispatcherrors.ErrConfiguration{
				Key:     key,
				Value:   value,
				Message: fmt.Sprintf("job %s: %s", job.JobId, err),
			}
		}
		properties[key] = converted
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: config.MegabytesDecodeHook(),
		// Property keys are case-sensitive.
		MatchName: func(mapKey, fieldName string) bool { return mapKey == fieldName },
		Result:    out,
	})
	if err != nil {
		return errors.WithStack(err)
	}
	if err := decoder.Decode(properties); err != nil {
		return &dispatcherrors.ErrConfiguration{
			Message: fmt.Sprintf("job %s declares invalid resource settings: %s", job.JobId, err),
		}
	}
	return nil
}

// toInt accepts integers, whole floats (as produced by JSON) and decimal integer strings.
func toInt(value interface{}) (int, error) {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return 0, errors.Errorf("%v is not a whole number", f)
		}
		return int(f), nil
	case reflect.String:
		n, err := strconv.Atoi(v.String())
		if err != nil {
			return 0, errors.Errorf("%q is not an integer", v.String())
		}
		return n, nil
	default:
		return 0, errors.Errorf("expected an integer, got %T", value)
	}
}
