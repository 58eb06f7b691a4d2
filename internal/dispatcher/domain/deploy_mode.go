package domain

import (
	"strings"

	"github.com/pkg/errors"
)

// DeployMode is how an engine cluster is deployed.
// Only standalone clusters are resource-managed by the dispatcher itself.
type DeployMode int

const (
	DeployModeUnknown DeployMode = iota
	DeployModeStandalone
	DeployModeYarn
	DeployModeKubernetes
	DeployModeLocal
)

var deployModeNames = map[DeployMode]string{
	DeployModeUnknown:    "unknown",
	DeployModeStandalone: "standalone",
	DeployModeYarn:       "yarn",
	DeployModeKubernetes: "kubernetes",
	DeployModeLocal:      "local",
}

func (m DeployMode) String() string {
	if name, ok := deployModeNames[m]; ok {
		return name
	}
	return deployModeNames[DeployModeUnknown]
}

// ParseDeployMode parses a case-insensitive deploy mode name.
func ParseDeployMode(s string) (DeployMode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for mode, modeName := range deployModeNames {
		if mode != DeployModeUnknown && modeName == name {
			return mode, nil
		}
	}
	return DeployModeUnknown, errors.Errorf("unknown deploy mode: %s", s)
}
