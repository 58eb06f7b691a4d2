package deploy

import (
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"

	"github.com/G-Research/engine-dispatch/internal/dispatcher/configuration"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/domain"
)

// Resolver determines how the cluster backing an engine type is deployed.
type Resolver interface {
	DeployModeOf(engineType string) (domain.DeployMode, error)
}

// StaticResolver resolves deploy modes from configuration.
// Engine types are looked up case-insensitively; if there's no exact entry, an entry for
// another engine type of the same family is used before falling back to the default mode.
type StaticResolver struct {
	defaultMode domain.DeployMode
	modes       map[string]domain.DeployMode
}

func NewStaticResolver(config configuration.DeploymentConfiguration) *StaticResolver {
	modes := make(map[string]domain.DeployMode, len(config.Modes))
	for engineType, mode := range config.Modes {
		modes[strings.ToLower(strings.TrimSpace(engineType))] = mode
	}
	return &StaticResolver{
		defaultMode: config.DefaultMode,
		modes:       modes,
	}
}

func (r *StaticResolver) DeployModeOf(engineType string) (domain.DeployMode, error) {
	name := strings.ToLower(strings.TrimSpace(engineType))
	if mode, ok := r.modes[name]; ok {
		return mode, nil
	}
	family := domain.FamilyOf(name)
	if family != domain.FamilyUnknown {
		keys := maps.Keys(r.modes)
		sort.Strings(keys)
		for _, key := range keys {
			if domain.FamilyOf(key) == family {
				return r.modes[key], nil
			}
		}
	}
	return r.defaultMode, nil
}

// CachingResolver remembers the answers of another Resolver for a fixed time.
// Errors aren't remembered.
type CachingResolver struct {
	delegate Resolver
	cache    *cache.Cache
	ttl      time.Duration
}

func NewCachingResolver(delegate Resolver, ttl time.Duration) *CachingResolver {
	return &CachingResolver{
		delegate: delegate,
		cache:    cache.New(ttl, 2*ttl),
		ttl:      ttl,
	}
}

func (r *CachingResolver) DeployModeOf(engineType string) (domain.DeployMode, error) {
	if cached, found := r.cache.Get(engineType); found {
		if mode, ok := cached.(domain.DeployMode); ok {
			return mode, nil
		}
	}
	mode, err := r.delegate.DeployModeOf(engineType)
	if err != nil {
		return domain.DeployModeUnknown, err
	}
	r.cache.Set(engineType, mode, r.ttl)
	log.WithField("engineType", engineType).Debugf("resolved deploy mode %s", mode)
	return mode, nil
}

// NewResolver builds the resolver described by config.
func NewResolver(config configuration.DeploymentConfiguration) Resolver {
	var resolver Resolver = NewStaticResolver(config)
	if config.CacheTTL > 0 {
		resolver = NewCachingResolver(resolver, config.CacheTTL)
	}
	return resolver
}
