// Package config loads the frame-aggregator and NeXus writer configs from a
// YAML file and environment variables, using a single spf13/viper-backed
// loader per service.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ChunkSizes are the HDF5 chunk lengths for each resizable dataset family.
type ChunkSizes struct {
	EventList int `yaml:"event_list" mapstructure:"event_list"`
	FrameList int `yaml:"frame_list" mapstructure:"frame_list"`
	RunLog    int `yaml:"run_log" mapstructure:"run_log"`
	SELog     int `yaml:"se_log" mapstructure:"se_log"`
	AlarmLog  int `yaml:"alarm_log" mapstructure:"alarm_log"`
}

func defaultChunkSizes() ChunkSizes {
	return ChunkSizes{EventList: 1024, FrameList: 256, RunLog: 64, SELog: 64, AlarmLog: 32}
}

func newViper(envPrefix string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func readFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}
