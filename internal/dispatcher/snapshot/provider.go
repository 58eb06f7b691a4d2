package snapshot

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/G-Research/engine-dispatch/internal/dispatcher/domain"
)

// Provider returns the latest known free resources of the target cluster.
type Provider interface {
	Snapshot(ctx context.Context) (domain.ResourceSnapshot, error)
}

// Static always returns the same snapshot.
type Static domain.ResourceSnapshot

func (s Static) Snapshot(_ context.Context) (domain.ResourceSnapshot, error) {
	return domain.ResourceSnapshot(s), nil
}

// FileProvider reads the snapshot from a YAML (or JSON) file on every call, so the file can be
// rewritten by an external poller between calls. The file has the shape
//
//	flink:
//	  worker-1:
//	    freeSlots: 4
//	spark:
//	  worker-1:
//	    memoryfree: 4096
//	    coresfree: 8
type FileProvider struct {
	path string
}

func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

func (p *FileProvider) Snapshot(ctx context.Context) (domain.ResourceSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading resource snapshot")
	}
	return Parse(data)
}

// Parse decodes a snapshot document. An empty document is an empty snapshot.
func Parse(data []byte) (domain.ResourceSnapshot, error) {
	snapshot := domain.ResourceSnapshot{}
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return nil, errors.Wrapf(err, "decoding resource snapshot")
	}
	return snapshot, nil
}
