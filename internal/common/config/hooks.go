package config

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/G-Research/engine-dispatch/internal/dispatcher/domain"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/units"
)

var CustomHooks = []viper.DecoderConfigOption{
	viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		DeployModeDecodeHook(),
	)),
}

// MegabytesDecodeHook converts capacity strings such as "2g" into units.Megabytes.
// Unparseable values decode to units.DefaultMegabytes rather than failing.
func MegabytesDecodeHook() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if t != reflect.TypeOf(units.Megabytes(0)) {
			return data, nil
		}
		return units.Megabytes(units.ToMegabytes(fmt.Sprintf("%v", data))), nil
	}
}

func DeployModeDecodeHook() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(domain.DeployModeUnknown) {
			return data, nil
		}
		return domain.ParseDeployMode(data.(string))
	}
}
