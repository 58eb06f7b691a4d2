package admission

import (
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/G-Research/engine-dispatch/internal/common/dispatcherrors"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/deploy"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/domain"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/metrics"
)

// Controller decides whether a job may be handed to its engine given a snapshot of free resources.
// Standalone flink and spark clusters are judged by their family's Judge; every other
// combination is managed by the cluster itself and is always admitted.
//
// Controller holds no mutable state and may be used concurrently for any number of jobs.
type Controller struct {
	resolver deploy.Resolver
	judges   map[domain.EngineFamily]Judge
	metrics  *metrics.Metrics
}

func NewController(resolver deploy.Resolver, metrics *metrics.Metrics) *Controller {
	return &Controller{
		resolver: resolver,
		judges: map[domain.EngineFamily]Judge{
			domain.FamilyFlink: FlinkJudge{},
			domain.FamilySpark: SparkJudge{},
		},
		metrics: metrics,
	}
}

// JudgeSlots returns true if the job may be submitted.
// An *dispatcherrors.ErrConfiguration is returned if a judge applies but can't reach a decision.
func (c *Controller) JudgeSlots(job *domain.JobRequest, snapshot domain.ResourceSnapshot) (bool, error) {
	decision, err := c.Evaluate(job, snapshot)
	if err != nil {
		return false, err
	}
	return decision.Admitted, nil
}

// Evaluate is JudgeSlots returning the full decision.
func (c *Controller) Evaluate(job *domain.JobRequest, snapshot domain.ResourceSnapshot) (*Decision, error) {
	decision, err := c.evaluate(job, snapshot)
	if err != nil {
		c.metrics.RecordAdmissionError(string(dispatcherrors.KindFromError(err)))
		return nil, err
	}
	c.metrics.RecordAdmission(decision.Family.String(), decision.Admitted)
	log.WithField("jobId", job.JobId).
		WithField("engineType", job.EngineType).
		Debugf("admission decision: %s", decision)
	return decision, nil
}

func (c *Controller) evaluate(job *domain.JobRequest, snapshot domain.ResourceSnapshot) (*Decision, error) {
	mode, err := c.resolver.DeployModeOf(job.EngineType)
	if err != nil {
		return nil, errors.WithStack(&dispatcherrors.ErrConfiguration{
			Key:     "engineType",
			Value:   job.EngineType,
			Message: fmt.Sprintf("can't resolve deploy mode: %s", err),
		})
	}

	family := domain.FamilyOf(job.EngineType)
	judge, ok := c.judges[family]
	if !ok || mode != domain.DeployModeStandalone {
		log.Infof("no resource judge for engine type %s deployed as %s, admitting job %s", job.EngineType, mode, job.JobId)
		return &Decision{
			Admitted: true,
			Family:   family,
			Reason:   fmt.Sprintf("%s deployed as %s is not resource-managed by the dispatcher", job.EngineType, mode),
		}, nil
	}

	key, workers, ok := snapshot.FindFamily(family)
	if !ok {
		return nil, errors.WithStack(&dispatcherrors.ErrConfiguration{
			Key:     "engineType",
			Value:   job.EngineType,
			Message: "not support engine type: no resource information for its family",
		})
	}

	decision, err := judge.Judge(job, workers)
	if err != nil {
		return nil, err
	}
	decision.SnapshotKey = key
	return decision, nil
}
