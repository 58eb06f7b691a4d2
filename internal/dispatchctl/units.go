package dispatchctl

import (
	"fmt"
	"text/tabwriter"

	"github.com/G-Research/engine-dispatch/internal/dispatcher/units"
)

// Units prints the capacity in megabytes each of values converts to.
func (a *App) Units(values []string) error {
	w := tabwriter.NewWriter(a.Out, 1, 1, 1, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "Value\tMB\tDefaulted\n")
	for _, value := range values {
		capacity := units.ConvertCapacity(value)
		fmt.Fprintf(w, "%s\t%d\t%t\n", value, capacity.MB, capacity.Defaulted)
	}
	return nil
}
