package plugin

import (
	"os"
	goplugin "plugin"

	"github.com/G-Research/engine-dispatch/internal/common/dispatcherrors"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/domain"
)

// SharedObjectLoader loads execution clients from Go plugins (.so files built with -buildmode=plugin).
// The type id names an exported symbol of type func() domain.ExecutionClient.
//
// The Go runtime never unloads a plugin, so reloading a changed file at the same path returns
// the code that was first opened there. Volatile artifacts should be uploaded to fresh paths.
type SharedObjectLoader struct {
	properties map[string]string
	open       func(path string) (symbolLookup, error)
}

type symbolLookup interface {
	Lookup(symName string) (goplugin.Symbol, error)
}

func NewSharedObjectLoader(properties map[string]string) *SharedObjectLoader {
	return &SharedObjectLoader{
		properties: properties,
		open: func(path string) (symbolLookup, error) {
			return goplugin.Open(path)
		},
	}
}

func (l *SharedObjectLoader) Load(artifactPath string, typeId string) (domain.ExecutionClient, error) {
	if _, err := os.Stat(artifactPath); err != nil {
		return nil, &dispatcherrors.ErrLoad{ArtifactPath: artifactPath, TypeId: typeId, Message: "artifact not found", Err: err}
	}
	p, err := l.open(artifactPath)
	if err != nil {
		return nil, &dispatcherrors.ErrLoad{ArtifactPath: artifactPath, TypeId: typeId, Message: "can't open plugin", Err: err}
	}
	sym, err := p.Lookup(typeId)
	if err != nil {
		return nil, &dispatcherrors.ErrLoad{ArtifactPath: artifactPath, TypeId: typeId, Message: "type not found", Err: err}
	}

	var factory Factory
	switch f := sym.(type) {
	case func() domain.ExecutionClient:
		factory = f
	case *func() domain.ExecutionClient:
		factory = *f
	case *Factory:
		factory = *f
	default:
		return nil, &dispatcherrors.ErrLoad{
			ArtifactPath: artifactPath,
			TypeId:       typeId,
			Message:      "symbol is not a func() ExecutionClient",
		}
	}
	return initialise(artifactPath, typeId, factory(), l.properties)
}
