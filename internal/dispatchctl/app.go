package dispatchctl

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/apimachinery/pkg/util/clock"

	"github.com/G-Research/engine-dispatch/internal/common"
	commonconfig "github.com/G-Research/engine-dispatch/internal/common/config"
	"github.com/G-Research/engine-dispatch/internal/dispatchctl/build"
	"github.com/G-Research/engine-dispatch/internal/dispatcher"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/configuration"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/snapshot"
)

const DefaultConfigPath = "./config/dispatcher"

// App is the dispatchctl application.
type App struct {
	// Parameters passed to the CLI by the user.
	Params *Params
	// Out is used to write the output. Defaults to standard out,
	// but can be overridden in tests to make assertions on the applications's output.
	Out io.Writer
	// Dispatcher configuration. Loaded from Params on first use when nil.
	Config *configuration.DispatcherConfiguration
	// Registry for the metrics of the dispatcher created by the app.
	Registerer prometheus.Registerer

	dispatcher *dispatcher.Dispatcher
}

// Params struct holds all user-customizable parameters.
type Params struct {
	// Directory holding the base config.yaml
	DefaultConfigPath string
	// Config files merged over the base config, in order
	ConfigPaths []string
	// YAML or JSON file holding the resource snapshot jobs are judged against
	SnapshotPath string
	// Execution client used by acquire and dispatch
	Artifact dispatcher.Artifact
}

// New instantiates an App with default parameters, writing to standard out.
func New() *App {
	return &App{
		Params:     &Params{DefaultConfigPath: DefaultConfigPath},
		Out:        os.Stdout,
		Registerer: prometheus.NewRegistry(),
	}
}

// Version prints build information (e.g., current git commit) to the app output.
func (a *App) Version() error {
	w := tabwriter.NewWriter(a.Out, 1, 1, 1, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "Version:\t%s\n", build.ReleaseVersion)
	fmt.Fprintf(w, "Commit:\t%s\n", build.GitCommit)
	fmt.Fprintf(w, "Go version:\t%s\n", build.GoVersion)
	fmt.Fprintf(w, "Built:\t%s\n", build.BuildTime)
	return nil
}

func (a *App) configuration() (configuration.DispatcherConfiguration, error) {
	if a.Config != nil {
		return *a.Config, nil
	}
	var config configuration.DispatcherConfiguration
	if _, err := common.LoadConfig(&config, a.Params.DefaultConfigPath, a.Params.ConfigPaths); err != nil {
		return config, err
	}
	if err := configuration.ValidateDispatcherConfiguration(config); err != nil {
		commonconfig.LogValidationErrors(err)
		return config, err
	}
	a.Config = &config
	return config, nil
}

func (a *App) getDispatcher() (*dispatcher.Dispatcher, error) {
	if a.dispatcher != nil {
		return a.dispatcher, nil
	}
	config, err := a.configuration()
	if err != nil {
		return nil, err
	}
	d, err := dispatcher.NewFromConfiguration(config, a.Registerer, clock.RealClock{})
	if err != nil {
		return nil, err
	}
	a.dispatcher = d
	return d, nil
}

func (a *App) snapshotProvider() (snapshot.Provider, error) {
	if a.Params.SnapshotPath == "" {
		return nil, errors.New("a resource snapshot file is required")
	}
	return snapshot.NewFileProvider(a.Params.SnapshotPath), nil
}
