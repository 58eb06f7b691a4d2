package dispatcher

import (
	"context"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/clock"

	"github.com/G-Research/engine-dispatch/internal/common/dispatcherrors"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/admission"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/clientcache"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/configuration"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/deploy"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/domain"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/fake"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/metrics"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/plugin"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/restclient"
)

// BuiltinClients are the execution client implementations that can be named in configuration.
var BuiltinClients = map[string]plugin.Factory{
	"rest": restclient.NewExecutionClient,
	"fake": fake.NewExecutionClient,
}

// Artifact identifies the execution client a job runs with.
type Artifact struct {
	Path   string
	TypeId string
}

// Outcome of TrySubmit. Result is nil unless the job was admitted.
type Outcome struct {
	Admitted bool
	Decision *admission.Decision
	Result   *domain.JobResult
}

// Dispatcher checks jobs against the free resources of their cluster and hands admitted jobs to their engine.
// A Dispatcher owns its client cache; create one per process and share it between goroutines.
type Dispatcher struct {
	controller *admission.Controller
	clients    *clientcache.Cache
}

func New(controller *admission.Controller, clients *clientcache.Cache) *Dispatcher {
	return &Dispatcher{controller: controller, clients: clients}
}

// NewFromConfiguration wires a Dispatcher from configuration, registering its metrics with registerer.
func NewFromConfiguration(
	config configuration.DispatcherConfiguration,
	registerer prometheus.Registerer,
	clock clock.Clock,
) (*Dispatcher, error) {
	if err := configuration.ValidateDispatcherConfiguration(config); err != nil {
		return nil, err
	}
	m := metrics.New(registerer)

	registry := plugin.NewRegistry()
	for _, p := range config.Plugins {
		factory, ok := BuiltinClients[p.Client]
		if !ok {
			return nil, &dispatcherrors.ErrConfiguration{
				Key:     "plugins.client",
				Value:   p.Client,
				Message: "no such built-in execution client",
			}
		}
		registry.Register(p.TypeId, factory, p.Properties)
	}
	loader := plugin.Router{Builtin: registry}
	if config.SharedObjects.Enabled {
		loader.SharedObjects = plugin.NewSharedObjectLoader(config.SharedObjects.Properties)
	}

	cache, err := clientcache.New(config.ClientCache, loader, clock, m)
	if err != nil {
		return nil, err
	}
	controller := admission.NewController(deploy.NewResolver(config.Deployment), m)
	return New(controller, cache), nil
}

// TrySubmit acquires the job's execution client, checks whether the cluster has room for the job
// and submits it if so. A rejected job is not an error: the caller should retry it later.
func (d *Dispatcher) TrySubmit(
	ctx context.Context,
	job *domain.JobRequest,
	artifact Artifact,
	snapshot domain.ResourceSnapshot,
) (*Outcome, error) {
	client, err := d.clients.Acquire(artifact.Path, artifact.TypeId)
	if err != nil {
		return nil, err
	}
	decision, err := d.controller.Evaluate(job, snapshot)
	if err != nil {
		return nil, err
	}
	outcome := &Outcome{Admitted: decision.Admitted, Decision: decision}
	if !decision.Admitted {
		log.WithField("jobId", job.JobId).Infof("not enough free resources to submit job: %s", decision.Reason)
		return outcome, nil
	}

	result, err := client.Submit(ctx, job)
	if err != nil {
		return nil, errors.WithMessagef(err, "submitting job %s to %s", job.JobId, client.GetMasterEndpoint())
	}
	outcome.Result = result
	log.WithField("jobId", job.JobId).
		WithField("master", client.GetMasterEndpoint()).
		Infof("submitted job as %s with status %s", result.JobId, result.Status)
	return outcome, nil
}

// Cancel cancels a job previously submitted with the client of artifact.
func (d *Dispatcher) Cancel(ctx context.Context, artifact Artifact, jobId string) (*domain.JobResult, error) {
	client, err := d.clients.Acquire(artifact.Path, artifact.TypeId)
	if err != nil {
		return nil, err
	}
	return client.Cancel(ctx, jobId)
}

// Status polls the status of a job previously submitted with the client of artifact.
func (d *Dispatcher) Status(ctx context.Context, artifact Artifact, jobId string) (domain.TaskStatus, error) {
	client, err := d.clients.Acquire(artifact.Path, artifact.TypeId)
	if err != nil {
		return "", err
	}
	return client.GetStatus(ctx, jobId)
}

// Clients gives access to the client cache, e.g. to forward requests to an engine master.
func (d *Dispatcher) Clients() *clientcache.Cache {
	return d.clients
}

// Run sweeps idle clients until ctx is cancelled, then closes every cached client.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer d.clients.Purge()
	return d.clients.Run(ctx)
}
