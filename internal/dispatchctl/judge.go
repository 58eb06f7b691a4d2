package dispatchctl

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"

	"golang.org/x/exp/maps"

	"github.com/G-Research/engine-dispatch/internal/dispatcher/admission"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/deploy"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/domain"
)

// Judge prints whether the job in jobPath would be admitted given the snapshot in Params.SnapshotPath.
// Nothing is submitted.
func (a *App) Judge(ctx context.Context, jobPath string) error {
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
	config, err := a.configuration()
	if err != nil {
		return err
	}

	controller := admission.NewController(deploy.NewResolver(config.Deployment), nil)
	decision, err := controller.Evaluate(job, snapshot)
	if err != nil {
		return err
	}
	a.printDecision(job, decision)
	return nil
}

func (a *App) printDecision(job *domain.JobRequest, decision *admission.Decision) {
	w := tabwriter.NewWriter(a.Out, 1, 1, 1, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "Job:\t%s\n", job)
	fmt.Fprintf(w, "Admitted:\t%t\n", decision.Admitted)
	fmt.Fprintf(w, "Reason:\t%s\n", decision.Reason)
	if decision.SnapshotKey == "" {
		return
	}
	fmt.Fprintf(w, "Snapshot entry:\t%s\n", decision.SnapshotKey)
	switch decision.Family {
	case domain.FamilyFlink:
		fmt.Fprintf(w, "Free slots:\t%d\n", decision.FreeSlots)
		keys := maps.Keys(decision.Parallelism)
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(w, "%s:\t%d\n", key, decision.Parallelism[key])
		}
	case domain.FamilySpark:
		fmt.Fprintf(w, "Memory (MB):\t%d required, %d free\n", decision.RequiredMemoryMB, decision.FreeMemoryMB)
		fmt.Fprintf(w, "Cores:\t%d required, %d free\n", decision.RequiredCores, decision.FreeCores)
	}
}
