package configuration

import (
	"time"

	"github.com/G-Research/engine-dispatch/internal/dispatcher/domain"
)

type DispatcherConfiguration struct {
	Metrics     MetricsConfiguration
	ClientCache ClientCacheConfiguration
	Deployment  DeploymentConfiguration
	// Built-in execution clients and the properties they are initialised with
	Plugins []PluginConfiguration
	// Execution clients loaded from Go plugin artifacts (*.so)
	SharedObjects SharedObjectConfiguration
}

type MetricsConfiguration struct {
	Port uint16
}

type ClientCacheConfiguration struct {
	// Maximum number of cached clients
	MaxEntries int
	// Clients not accessed for this long are evicted
	IdleTimeout time.Duration
	// How often idle clients are swept; zero disables the sweep and relies on lazy expiry
	SweepInterval time.Duration
	// Artifact paths containing any of these are cached; all other paths are loaded on every request
	StablePathMarkers []string
}

type DeploymentConfiguration struct {
	// Used for engine types with no entry in Modes
	DefaultMode domain.DeployMode
	// Engine type to deploy mode, e.g. flink: standalone
	Modes map[string]domain.DeployMode
	// How long resolved deploy modes are remembered; zero disables caching
	CacheTTL time.Duration
}

type PluginConfiguration struct {
	// Type id jobs refer to, e.g. flink-rest
	TypeId string
	// Built-in client implementation: rest or fake
	Client     string
	Properties map[string]string
}

type SharedObjectConfiguration struct {
	Enabled bool
	// Passed to Init of every client loaded from a shared object
	Properties map[string]string
}

// DefaultClientCacheConfiguration matches the limits the scheduler has always run with.
func DefaultClientCacheConfiguration() ClientCacheConfiguration {
	return ClientCacheConfiguration{
		MaxEntries:        1000,
		IdleTimeout:       10 * time.Minute,
		SweepInterval:     time.Minute,
		StablePathMarkers: []string{"/normal"},
	}
}
