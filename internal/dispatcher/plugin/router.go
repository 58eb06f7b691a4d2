package plugin

import (
	"strings"

	"github.com/G-Research/engine-dispatch/internal/common/dispatcherrors"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/domain"
)

const SharedObjectSuffix = ".so"

// Router sends artifacts built as Go plugins to SharedObjects and every other artifact to Builtin.
// A nil SharedObjects rejects plugin artifacts.
type Router struct {
	Builtin       Loader
	SharedObjects Loader
}

func (r Router) Load(artifactPath string, typeId string) (domain.ExecutionClient, error) {
	if !strings.HasSuffix(artifactPath, SharedObjectSuffix) {
		return r.Builtin.Load(artifactPath, typeId)
	}
	if r.SharedObjects == nil {
		return nil, &dispatcherrors.ErrLoad{
			ArtifactPath: artifactPath,
			TypeId:       typeId,
			Message:      "loading shared objects is disabled",
		}
	}
	return r.SharedObjects.Load(artifactPath, typeId)
}
