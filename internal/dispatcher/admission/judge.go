package admission

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/exp/maps"

	"github.com/G-Research/engine-dispatch/internal/dispatcher/domain"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/requirements"
)

// Decision is the outcome of an admission check along with the figures it was based on.
type Decision struct {
	Admitted bool
	Family   domain.EngineFamily
	// Snapshot entry the decision was made against; empty for the default policy
	SnapshotKey string
	Reason      string

	// Flink
	FreeSlots   int64
	Parallelism map[string]int

	// Spark
	FreeMemoryMB     int64
	FreeCores        int64
	RequiredMemoryMB int64
	RequiredCores    int64
	MemoryOK         bool
	CoresOK          bool
}

func (d *Decision) String() string {
	verdict := "rejected"
	if d.Admitted {
		verdict = "admitted"
	}
	return fmt.Sprintf("%s (%s): %s", verdict, d.Family, d.Reason)
}

// Judge decides whether the free resources of one engine cluster are enough for a job.
type Judge interface {
	Judge(job *domain.JobRequest, workers domain.WorkerResources) (*Decision, error)
}

// FlinkJudge compares free task slots against every parallelism setting the job declares.
// A job declaring no parallelism is always admitted.
type FlinkJudge struct{}

func (FlinkJudge) Judge(job *domain.JobRequest, workers domain.WorkerResources) (*Decision, error) {
	req, err := requirements.ExtractFlink(job)
	if err != nil {
		return nil, err
	}
	freeSlots := workers.Sum(domain.FreeSlotsKey)
	parallelism := req.Parallelism()

	decision := &Decision{
		Admitted:    true,
		Family:      domain.FamilyFlink,
		FreeSlots:   freeSlots,
		Parallelism: parallelism,
	}
	if len(parallelism) == 0 {
		decision.Reason = "no parallelism declared"
		return decision, nil
	}

	keys := maps.Keys(parallelism)
	sort.Strings(keys)
	var shortfalls []string
	for _, key := range keys {
		if freeSlots < int64(parallelism[key]) {
			decision.Admitted = false
			shortfalls = append(shortfalls, fmt.Sprintf("%s=%d", key, parallelism[key]))
		}
	}
	if decision.Admitted {
		decision.Reason = fmt.Sprintf("%d free slots", freeSlots)
	} else {
		decision.Reason = fmt.Sprintf("%d free slots is less than %s", freeSlots, strings.Join(shortfalls, ", "))
	}
	return decision, nil
}

// SparkJudge compares free memory and cores against the driver and executors of a job.
// Both checks are always evaluated so the decision reports each of them.
type SparkJudge struct{}

func (SparkJudge) Judge(job *domain.JobRequest, workers domain.WorkerResources) (*Decision, error) {
	req, err := requirements.ExtractSpark(job)
	if err != nil {
		return nil, err
	}
	freeMemory := workers.Sum(domain.MemoryFreeKey)
	freeCores := workers.Sum(domain.CoresFreeKey)

	decision := &Decision{
		Family:           domain.FamilySpark,
		FreeMemoryMB:     freeMemory,
		FreeCores:        freeCores,
		RequiredMemoryMB: req.RequiredMemoryMB(),
		RequiredCores:    int64(req.RequiredCores()),
	}
	decision.MemoryOK = decision.RequiredMemoryMB <= freeMemory
	decision.CoresOK = decision.RequiredCores <= freeCores
	decision.Admitted = decision.MemoryOK && decision.CoresOK
	decision.Reason = fmt.Sprintf(
		"memory %d/%dMB, cores %d/%d (required/free)",
		decision.RequiredMemoryMB, freeMemory, decision.RequiredCores, freeCores,
	)
	return decision, nil
}
