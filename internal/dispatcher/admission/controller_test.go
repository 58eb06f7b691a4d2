package admission

import (
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G-Research/engine-dispatch/internal/common/dispatcherrors"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/configuration"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/deploy"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/domain"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/metrics"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/requirements"
)

func standaloneController() *Controller {
	resolver := deploy.NewStaticResolver(configuration.DeploymentConfiguration{
		DefaultMode: domain.DeployModeYarn,
		Modes: map[string]domain.DeployMode{
			"flink": domain.DeployModeStandalone,
			"spark": domain.DeployModeStandalone,
		},
	})
	return NewController(resolver, metrics.New(prometheus.NewRegistry()))
}

func flinkSnapshot(freeSlots ...float64) domain.ResourceSnapshot {
	workers := domain.WorkerResources{}
	for i, slots := range freeSlots {
		workers[fmt.Sprintf("taskmanager-%d", i)] = map[string]float64{domain.FreeSlotsKey: slots}
	}
	return domain.ResourceSnapshot{"flink": workers}
}

func sparkSnapshot(memoryFree float64, coresFree float64) domain.ResourceSnapshot {
	return domain.ResourceSnapshot{
		"spark": {
			"worker-1": {domain.MemoryFreeKey: memoryFree / 2, domain.CoresFreeKey: coresFree / 2},
			"worker-2": {domain.MemoryFreeKey: memoryFree / 2, domain.CoresFreeKey: coresFree / 2},
		},
	}
}

func TestJudgeSlots_FlinkParallelismAgainstFreeSlots(t *testing.T) {
	controller := standaloneController()
	job := domain.NewJobRequest("job-1", "flink", domain.Property{Key: requirements.FlinkSQLEnvParallelism, Value: "10"})

	admitted, err := controller.JudgeSlots(job, flinkSnapshot(4, 5))
	require.NoError(t, err)
	assert.False(t, admitted)

	admitted, err = controller.JudgeSlots(job, flinkSnapshot(4, 6))
	require.NoError(t, err)
	assert.True(t, admitted)
}

func TestJudgeSlots_FlinkBoundary(t *testing.T) {
	controller := standaloneController()
	snapshot := flinkSnapshot(3, 3, 3)

	for parallelism, want := range map[int]bool{8: true, 9: true, 10: false} {
		job := domain.NewJobRequest("job-1", "flink", domain.Property{Key: requirements.FlinkMRParallelism, Value: parallelism})
		admitted, err := controller.JudgeSlots(job, snapshot)
		require.NoError(t, err)
		assert.Equal(t, want, admitted, "parallelism %d", parallelism)
	}
}

func TestJudgeSlots_FlinkNoParallelismAlwaysAdmitted(t *testing.T) {
	controller := standaloneController()
	job := domain.NewJobRequest("job-1", "flink")

	for _, snapshot := range []domain.ResourceSnapshot{flinkSnapshot(), flinkSnapshot(0), flinkSnapshot(100)} {
		admitted, err := controller.JudgeSlots(job, snapshot)
		require.NoError(t, err)
		assert.True(t, admitted)
	}
}

func TestJudgeSlots_FlinkRequiresEveryDeclaredParallelism(t *testing.T) {
	controller := standaloneController()
	job := domain.NewJobRequest("job-1", "flink",
		domain.Property{Key: requirements.FlinkSQLEnvParallelism, Value: 5},
		domain.Property{Key: requirements.FlinkMRParallelism, Value: 20},
	)

	decision, err := controller.Evaluate(job, flinkSnapshot(5, 5))
	require.NoError(t, err)
	assert.False(t, decision.Admitted)
	assert.Equal(t, int64(10), decision.FreeSlots)
	assert.Contains(t, decision.Reason, requirements.FlinkMRParallelism)
	assert.NotContains(t, decision.Reason, requirements.FlinkSQLEnvParallelism)
}

func TestJudgeSlots_FlinkSnapshotKeyAlias(t *testing.T) {
	controller := standaloneController()
	job := domain.NewJobRequest("job-1", "Flink180", domain.Property{Key: requirements.FlinkSQLEnvParallelism, Value: 2})
	snapshot := domain.ResourceSnapshot{
		"FLINK": {"tm": {domain.FreeSlotsKey: 2}},
	}

	decision, err := controller.Evaluate(job, snapshot)
	require.NoError(t, err)
	assert.True(t, decision.Admitted)
	assert.Equal(t, "FLINK", decision.SnapshotKey)
}

func TestJudgeSlots_SparkDefaults(t *testing.T) {
	controller := standaloneController()
	job := domain.NewJobRequest("job-1", "spark")

	tests := map[string]struct {
		memory float64
		cores  float64
		want   bool
	}{
		"exactly enough":   {1024, 2, true},
		"plenty":           {8192, 16, true},
		"memory short":     {1022, 2, false},
		"cores short":      {1024, 1, false},
		"everything short": {0, 0, false},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			admitted, err := controller.JudgeSlots(job, sparkSnapshot(tc.memory, tc.cores))
			require.NoError(t, err)
			assert.Equal(t, tc.want, admitted)
		})
	}
}

func TestJudgeSlots_SparkEvaluatesBothChecks(t *testing.T) {
	controller := standaloneController()
	job := domain.NewJobRequest("job-1", "spark",
		domain.Property{Key: requirements.SparkDriverMemory, Value: "1g"},
		domain.Property{Key: requirements.SparkExecutorMemory, Value: "2g"},
		domain.Property{Key: requirements.SparkMaxCores, Value: "4"},
		domain.Property{Key: requirements.SparkExecutorCores, Value: "2"},
	)

	decision, err := controller.Evaluate(job, sparkSnapshot(2048, 100))
	require.NoError(t, err)
	assert.False(t, decision.Admitted)
	assert.False(t, decision.MemoryOK)
	assert.True(t, decision.CoresOK)
	assert.Equal(t, int64(1024+2*2048), decision.RequiredMemoryMB)
	assert.Equal(t, int64(1+4), decision.RequiredCores)
}

func TestJudgeSlots_SparkMalformedMemoryUsesDefault(t *testing.T) {
	controller := standaloneController()
	job := domain.NewJobRequest("job-1", "spark", domain.Property{Key: requirements.SparkDriverMemory, Value: "garbage"})

	admitted, err := controller.JudgeSlots(job, sparkSnapshot(1024, 2))
	require.NoError(t, err)
	assert.True(t, admitted)
}

func TestJudgeSlots_MalformedCoresIsConfigurationError(t *testing.T) {
	controller := standaloneController()
	job := domain.NewJobRequest("job-1", "spark", domain.Property{Key: requirements.SparkMaxCores, Value: "all of them"})

	_, err := controller.JudgeSlots(job, sparkSnapshot(1024, 2))
	var configErr *dispatcherrors.ErrConfiguration
	assert.True(t, errors.As(err, &configErr))
}

func TestJudgeSlots_MissingSnapshotEntryIsConfigurationError(t *testing.T) {
	controller := standaloneController()

	_, err := controller.JudgeSlots(domain.NewJobRequest("job-1", "spark"), flinkSnapshot(10))
	var configErr *dispatcherrors.ErrConfiguration
	require.True(t, errors.As(err, &configErr))
	assert.Equal(t, "spark", configErr.Value)

	_, err = controller.JudgeSlots(domain.NewJobRequest("job-2", "flink"), domain.ResourceSnapshot{})
	assert.True(t, errors.As(err, &configErr))
}

func TestJudgeSlots_DefaultPolicyAdmits(t *testing.T) {
	controller := NewController(deploy.NewStaticResolver(configuration.DeploymentConfiguration{
		DefaultMode: domain.DeployModeYarn,
		Modes:       map[string]domain.DeployMode{"datax": domain.DeployModeStandalone},
	}), nil)

	tests := map[string]*domain.JobRequest{
		"flink on yarn": domain.NewJobRequest("job-1", "flink",
			domain.Property{Key: requirements.FlinkSQLEnvParallelism, Value: 1000}),
		"spark on yarn":        domain.NewJobRequest("job-2", "spark"),
		"standalone, no judge": domain.NewJobRequest("job-3", "datax"),
		"unknown engine type":  domain.NewJobRequest("job-4", "mystery"),
	}
	for name, job := range tests {
		t.Run(name, func(t *testing.T) {
			// An empty snapshot would be a configuration error if a judge applied.
			admitted, err := controller.JudgeSlots(job, domain.ResourceSnapshot{})
			require.NoError(t, err)
			assert.True(t, admitted)
		})
	}
}

type failingResolver struct{}

func (failingResolver) DeployModeOf(string) (domain.DeployMode, error) {
	return domain.DeployModeUnknown, errors.New("registry unavailable")
}

func TestJudgeSlots_ResolverFailureIsConfigurationError(t *testing.T) {
	controller := NewController(failingResolver{}, nil)
	_, err := controller.JudgeSlots(domain.NewJobRequest("job-1", "flink"), flinkSnapshot(1))
	var configErr *dispatcherrors.ErrConfiguration
	assert.True(t, errors.As(err, &configErr))
}

func TestJudgeSlots_Concurrent(t *testing.T) {
	controller := standaloneController()
	snapshot := flinkSnapshot(4, 5)

	var wg sync.WaitGroup
	results := make([]bool, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			job := domain.NewJobRequest(fmt.Sprintf("job-%d", i), "flink",
				domain.Property{Key: requirements.FlinkSQLEnvParallelism, Value: i})
			admitted, err := controller.JudgeSlots(job, snapshot)
			assert.NoError(t, err)
			results[i] = admitted
		}(i)
	}
	wg.Wait()

	for i, admitted := range results {
		assert.Equal(t, i <= 9, admitted, "parallelism %d", i)
	}
}
