package plugin

import (
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/G-Research/engine-dispatch/internal/common/dispatcherrors"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/domain"
)

// Loader turns an artifact and a type identifier into a ready-to-use execution client.
// Every call produces a new instance; sharing instances is the job of clientcache.Cache.
type Loader interface {
	Load(artifactPath string, typeId string) (domain.ExecutionClient, error)
}

// Factory creates an uninitialised execution client.
type Factory func() domain.ExecutionClient

type registration struct {
	factory    Factory
	properties map[string]string
}

// Registry loads execution clients compiled into the binary.
// The artifact path only identifies the instance for caching; the type id selects the factory.
type Registry struct {
	mu            sync.RWMutex
	registrations map[string]registration
}

func NewRegistry() *Registry {
	return &Registry{registrations: map[string]registration{}}
}

// Register makes typeId loadable. Clients are initialised with properties when loaded.
func (r *Registry) Register(typeId string, factory Factory, properties map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registrations[typeId] = registration{factory: factory, properties: copyProperties(properties)}
}

func (r *Registry) Load(artifactPath string, typeId string) (domain.ExecutionClient, error) {
	r.mu.RLock()
	reg, ok := r.registrations[typeId]
	r.mu.RUnlock()
	if !ok {
		return nil, &dispatcherrors.ErrLoad{
			ArtifactPath: artifactPath,
			TypeId:       typeId,
			Message:      "type is not registered",
		}
	}
	return initialise(artifactPath, typeId, reg.factory(), reg.properties)
}

func initialise(artifactPath string, typeId string, client domain.ExecutionClient, properties map[string]string) (domain.ExecutionClient, error) {
	if client == nil {
		return nil, &dispatcherrors.ErrLoad{
			ArtifactPath: artifactPath,
			TypeId:       typeId,
			Message:      "factory returned no client",
		}
	}
	if err := client.Init(copyProperties(properties)); err != nil {
		return nil, &dispatcherrors.ErrLoad{
			ArtifactPath: artifactPath,
			TypeId:       typeId,
			Message:      "client initialisation failed",
			Err:          errors.WithStack(err),
		}
	}
	log.WithField("artifact", artifactPath).Infof("loaded execution client %s", typeId)
	return client, nil
}

func copyProperties(properties map[string]string) map[string]string {
	result := make(map[string]string, len(properties))
	for k, v := range properties {
		result[k] = v
	}
	return result
}
