package dispatchctl

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G-Research/engine-dispatch/internal/dispatcher"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/configuration"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/domain"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/fake"
)

const sparkJob = `
jobId: job-1
jobName: etl
engineType: spark2.4
confProperties:
  driver.memory: 1g
  executor.memory: 1g
  executor.cores: 1
  cores.max: 2
`

const snapshotDocument = `
spark:
  worker-1:
    memoryfree: 2048
    coresfree: 2
  worker-2:
    memoryfree: 2048
    coresfree: 2
`

func testApp(t *testing.T) (*App, *bytes.Buffer) {
	dir := t.TempDir()
	snapshotPath := filepath.Join(dir, "snapshot.yaml")
	require.NoError(t, os.WriteFile(snapshotPath, []byte(snapshotDocument), 0o644))

	buf := new(bytes.Buffer)
	app := &App{
		Params: &Params{
			SnapshotPath: snapshotPath,
			Artifact:     dispatcher.Artifact{Path: "/opt/plugins/normal/spark", TypeId: "spark-fake"},
		},
		Out: buf,
		Config: &configuration.DispatcherConfiguration{
			ClientCache: configuration.DefaultClientCacheConfiguration(),
			Deployment: configuration.DeploymentConfiguration{
				DefaultMode: domain.DeployModeStandalone,
			},
			Plugins: []configuration.PluginConfiguration{
				{TypeId: "spark-fake", Client: "fake", Properties: map[string]string{fake.MasterProperty: "http://spark:6066"}},
			},
		},
		Registerer: prometheus.NewRegistry(),
	}
	return app, buf
}

func writeJob(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// field returns the value printed after label in tabwriter output.
func field(out string, label string) string {
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, label) {
			return strings.TrimSpace(strings.TrimPrefix(line, label))
		}
	}
	return ""
}

func TestVersion(t *testing.T) {
	app, buf := testApp(t)
	require.NoError(t, app.Version())
	for _, s := range []string{"Version", "Commit", "Go version", "Built"} {
		assert.Contains(t, buf.String(), s)
	}
}

func TestUnits(t *testing.T) {
	app, buf := testApp(t)
	require.NoError(t, app.Units([]string{"2g", "lots"}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"2g", "2048", "false"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"lots", "512", "true"}, strings.Fields(lines[2]))
}

func TestJudge(t *testing.T) {
	app, buf := testApp(t)
	require.NoError(t, app.Judge(context.Background(), writeJob(t, sparkJob)))

	out := buf.String()
	assert.Equal(t, "true", field(out, "Admitted:"))
	assert.Equal(t, "spark", field(out, "Snapshot entry:"))
	assert.Equal(t, "3072 required, 4096 free", field(out, "Memory (MB):"))
	assert.Equal(t, "3 required, 4 free", field(out, "Cores:"))
}

func TestJudge_Rejected(t *testing.T) {
	app, buf := testApp(t)
	job := strings.Replace(sparkJob, "cores.max: 2", "cores.max: 4", 1)
	require.NoError(t, app.Judge(context.Background(), writeJob(t, job)))
	assert.Equal(t, "false", field(buf.String(), "Admitted:"))
}

func TestJudge_RequiresSnapshot(t *testing.T) {
	app, _ := testApp(t)
	app.Params.SnapshotPath = ""
	assert.Error(t, app.Judge(context.Background(), writeJob(t, sparkJob)))
}

func TestDispatch(t *testing.T) {
	app, buf := testApp(t)
	require.NoError(t, app.Dispatch(context.Background(), writeJob(t, sparkJob)))
	assert.Contains(t, buf.String(), "Submitted job job-1 as ")
}

func TestDispatch_NotAdmitted(t *testing.T) {
	app, buf := testApp(t)
	job := strings.Replace(sparkJob, "driver.memory: 1g", "driver.memory: 8g", 1)
	require.NoError(t, app.Dispatch(context.Background(), writeJob(t, job)))
	assert.Contains(t, buf.String(), "Job job-1 was not submitted")
}

func TestAcquire_Stable(t *testing.T) {
	app, buf := testApp(t)
	require.NoError(t, app.Acquire(3))

	out := buf.String()
	assert.Equal(t, "true", field(out, "Cached:"))
	instances := map[string]bool{}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "Request") {
			instances[strings.Fields(line)[2]] = true
		}
	}
	assert.Len(t, instances, 1)
}

func TestAcquire_Volatile(t *testing.T) {
	app, buf := testApp(t)
	app.Params.Artifact.Path = "/tmp/upload/spark"
	require.NoError(t, app.Acquire(2))
	assert.Equal(t, "false", field(buf.String(), "Cached:"))
}

func TestAcquire_UnknownType(t *testing.T) {
	app, _ := testApp(t)
	app.Params.Artifact.TypeId = "missing"
	assert.Error(t, app.Acquire(1))
}

func TestParseJob_KeepsPropertyOrder(t *testing.T) {
	job, err := ParseJob([]byte(sparkJob))
	require.NoError(t, err)

	assert.Equal(t, "job-1", job.JobId)
	assert.Equal(t, "etl", job.JobName)
	keys := make([]string, 0)
	for _, p := range job.Properties() {
		keys = append(keys, p.Key)
	}
	assert.Equal(t, []string{"driver.memory", "executor.memory", "executor.cores", "cores.max"}, keys)
}

func TestParseJob_RequiresEngineType(t *testing.T) {
	_, err := ParseJob([]byte("jobId: job-1\n"))
	assert.Error(t, err)
}

func TestDispatchUntilAdmitted(t *testing.T) {
	app, buf := testApp(t)
	job := strings.Replace(sparkJob, "driver.memory: 1g", "driver.memory: 3g", 1)
	require.NoError(t, os.WriteFile(app.Params.SnapshotPath, []byte("spark:\n  worker-1:\n    memoryfree: 1024\n    coresfree: 8\n"), 0o644))

	go func() {
		time.Sleep(100 * time.Millisecond)
		// Replaced atomically so the dispatcher never reads a partial file.
		next := app.Params.SnapshotPath + ".next"
		_ = os.WriteFile(next, []byte("spark:\n  worker-1:\n    memoryfree: 8192\n    coresfree: 8\n"), 0o644)
		_ = os.Rename(next, app.Params.SnapshotPath)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, app.DispatchUntilAdmitted(ctx, writeJob(t, job), 20*time.Millisecond))
	assert.Contains(t, buf.String(), "Submitted job job-1 as ")
}

func TestDispatchUntilAdmitted_Cancelled(t *testing.T) {
	app, _ := testApp(t)
	job := strings.Replace(sparkJob, "driver.memory: 1g", "driver.memory: 64g", 1)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := app.DispatchUntilAdmitted(ctx, writeJob(t, job), 20*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
