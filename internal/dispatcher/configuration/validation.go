package configuration

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/G-Research/engine-dispatch/internal/dispatcher/domain"
)

func ValidateDispatcherConfiguration(config DispatcherConfiguration) error {
	var result *multierror.Error

	cache := config.ClientCache
	if cache.MaxEntries <= 0 {
		result = multierror.Append(result, errors.New("clientCache.maxEntries must be greater than zero"))
	}
	if cache.IdleTimeout <= 0 {
		result = multierror.Append(result, errors.New("clientCache.idleTimeout must be greater than zero"))
	}
	if cache.SweepInterval < 0 {
		result = multierror.Append(result, errors.New("clientCache.sweepInterval must not be negative"))
	}
	for _, marker := range cache.StablePathMarkers {
		if marker == "" {
			result = multierror.Append(result, errors.New("clientCache.stablePathMarkers must not contain empty markers"))
		}
	}

	if config.Deployment.CacheTTL < 0 {
		result = multierror.Append(result, errors.New("deployment.cacheTTL must not be negative"))
	}
	for engineType, mode := range config.Deployment.Modes {
		if mode == domain.DeployModeUnknown {
			result = multierror.Append(result, fmt.Errorf("deployment.modes has no valid mode for engine type %q", engineType))
		}
	}

	seen := map[string]bool{}
	for _, plugin := range config.Plugins {
		if plugin.TypeId == "" {
			result = multierror.Append(result, errors.New("plugins must have a typeId"))
			continue
		}
		if plugin.Client == "" {
			result = multierror.Append(result, fmt.Errorf("plugin %q must name a client", plugin.TypeId))
		}
		if seen[plugin.TypeId] {
			result = multierror.Append(result, fmt.Errorf("plugin %q is configured more than once", plugin.TypeId))
		}
		seen[plugin.TypeId] = true
	}

	return result.ErrorOrNil()
}
