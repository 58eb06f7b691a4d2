package dispatchctl

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/G-Research/engine-dispatch/internal/common"
	"github.com/G-Research/engine-dispatch/internal/common/health"
	"github.com/G-Research/engine-dispatch/internal/dispatcher"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/domain"
)

// Acquire obtains the execution client of Params.Artifact times times and prints which instance each
// request got. Requests for a stable artifact share one instance; volatile artifacts are loaded every time.
func (a *App) Acquire(times int) error {
	if times < 1 {
		return errors.Errorf("times must be at least 1, got %d", times)
	}
	d, err := a.getDispatcher()
	if err != nil {
		return err
	}
	artifact := a.Params.Artifact
	clients := d.Clients()

	w := tabwriter.NewWriter(a.Out, 1, 1, 1, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "Artifact:\t%s (%s)\n", artifact.Path, artifact.TypeId)
	fmt.Fprintf(w, "Cached:\t%t\n", clients.IsStable(artifact.Path))
	for i := 0; i < times; i++ {
		client, err := clients.Acquire(artifact.Path, artifact.TypeId)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Request %d:\t%p %s\n", i+1, client, client.GetMasterEndpoint())
	}
	return nil
}

// Dispatch judges the job in jobPath against the snapshot in Params.SnapshotPath and
// submits it with the execution client of Params.Artifact if it is admitted.
func (a *App) Dispatch(ctx context.Context, jobPath string) error {
	job, err := ReadJob(jobPath)
	if err != nil {
		return err
	}
	provider, err := a.snapshotProvider()
	if err != nil {
		return err
	}
	snapshot, err := provider.Snapshot(ctx)
	if err != nil {
		return err
	}
	d, err := a.getDispatcher()
	if err != nil {
		return err
	}

	outcome, err := d.TrySubmit(ctx, job, a.Params.Artifact, snapshot)
	if err != nil {
		return err
	}
	return a.printOutcome(job, outcome)
}

// DispatchUntilAdmitted is Dispatch retried every interval, re-reading the snapshot each time,
// until the job is submitted or ctx is cancelled. Metrics are served on the configured port meanwhile.
func (a *App) DispatchUntilAdmitted(ctx context.Context, jobPath string, interval time.Duration) error {
	if interval <= 0 {
		return a.Dispatch(ctx, jobPath)
	}
	job, err := ReadJob(jobPath)
	if err != nil {
		return err
	}
	provider, err := a.snapshotProvider()
	if err != nil {
		return err
	}
	d, err := a.getDispatcher()
	if err != nil {
		return err
	}
	if gatherer, ok := a.Registerer.(prometheus.Gatherer); ok && a.Config.Metrics.Port != 0 {
		snapshotReadable := health.CheckerFunc(func(ctx context.Context) error {
			_, err := provider.Snapshot(ctx)
			return err
		})
		shutdown := common.ServeMetricsAndHealthFor(a.Config.Metrics.Port, gatherer, snapshotReadable)
		defer shutdown()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return d.Run(ctx)
	})
	g.Go(func() error {
		// Stops the sweep once the job is submitted.
		defer cancel()
		outcome, err := a.retrySubmit(ctx, d, job, provider.Snapshot, interval)
		if err != nil {
			return err
		}
		return a.printOutcome(job, outcome)
	})
	return g.Wait()
}

func (a *App) retrySubmit(
	ctx context.Context,
	d *dispatcher.Dispatcher,
	job *domain.JobRequest,
	snapshot func(context.Context) (domain.ResourceSnapshot, error),
	interval time.Duration,
) (*dispatcher.Outcome, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		current, err := snapshot(ctx)
		if err != nil {
			return nil, err
		}
		outcome, err := d.TrySubmit(ctx, job, a.Params.Artifact, current)
		if err != nil || outcome.Admitted {
			return outcome, err
		}
		log.WithField("jobId", job.JobId).Infof("%s, retrying in %s", outcome.Decision.Reason, interval)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (a *App) printOutcome(job *domain.JobRequest, outcome *dispatcher.Outcome) error {
	a.printDecision(job, outcome.Decision)
	if outcome.Result == nil {
		fmt.Fprintf(a.Out, "Job %s was not submitted, retry once resources are free\n", job.JobId)
		return nil
	}
	if outcome.Result.Failed {
		return errors.Errorf("engine rejected job %s: %s", job.JobId, outcome.Result.Message)
	}
	fmt.Fprintf(a.Out, "Submitted job %s as %s (%s)\n", job.JobId, outcome.Result.JobId, outcome.Result.Status)
	return nil
}
