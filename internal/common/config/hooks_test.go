package config

import (
	"testing"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G-Research/engine-dispatch/internal/dispatcher/domain"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/units"
)

func decode(t *testing.T, hook mapstructure.DecodeHookFunc, input map[string]interface{}, output interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: hook,
		Result:     output,
	})
	require.NoError(t, err)
	return decoder.Decode(input)
}

func TestMegabytesDecodeHook(t *testing.T) {
	var out struct {
		Driver   units.Megabytes
		Executor units.Megabytes
		Broken   units.Megabytes
	}
	err := decode(t, MegabytesDecodeHook(), map[string]interface{}{
		"driver":   "2g",
		"executor": 1024,
		"broken":   "lots",
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, units.Megabytes(2048), out.Driver)
	assert.Equal(t, units.Megabytes(units.DefaultMegabytes), out.Executor)
	assert.Equal(t, units.Megabytes(units.DefaultMegabytes), out.Broken)
}

func TestDeployModeDecodeHook(t *testing.T) {
	var out struct {
		Modes   map[string]domain.DeployMode
		Timeout time.Duration
	}
	hook := mapstructure.ComposeDecodeHookFunc(mapstructure.StringToTimeDurationHookFunc(), DeployModeDecodeHook())
	err := decode(t, hook, map[string]interface{}{
		"modes":   map[string]interface{}{"flink": "Standalone", "spark": "yarn"},
		"timeout": "10m",
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.DeployMode{"flink": domain.DeployModeStandalone, "spark": domain.DeployModeYarn}, out.Modes)
	assert.Equal(t, 10*time.Minute, out.Timeout)
}

func TestDeployModeDecodeHook_UnknownMode(t *testing.T) {
	var out struct {
		Mode domain.DeployMode
	}
	err := decode(t, DeployModeDecodeHook(), map[string]interface{}{"mode": "mesos"}, &out)
	assert.Error(t, err)
}
