package config

import "time"

// WriterConfig holds the NeXus run writer's options.
type WriterConfig struct {
	FilePathRoot   string     `yaml:"file_path_root" mapstructure:"file_path_root"`
	FlushDelayMs   int64      `yaml:"flush_delay_ms" mapstructure:"flush_delay_ms"`
	ChunkSizes     ChunkSizes `yaml:"chunk_sizes" mapstructure:"chunk_sizes"`
	RunControlTop  string     `yaml:"run_control_topic" mapstructure:"run_control_topic"`
	FrameTopic     string     `yaml:"frame_topic" mapstructure:"frame_topic"`
	RunLogTopic    string     `yaml:"runlog_topic" mapstructure:"runlog_topic"`
	SELogTopic     string     `yaml:"selog_topic" mapstructure:"selog_topic"`
	AlarmTopic     string     `yaml:"alarm_topic" mapstructure:"alarm_topic"`
	Brokers        []string   `yaml:"brokers" mapstructure:"brokers"`
	GroupID        string     `yaml:"group_id" mapstructure:"group_id"`
	RunRegistryDSN string     `yaml:"run_registry_dsn" mapstructure:"run_registry_dsn"`
	LogLevel       string     `yaml:"log_level" mapstructure:"log_level"`
	LogFile        string     `yaml:"log_file" mapstructure:"log_file"`
}

// FlushDelay is the close-after-last-activity grace period.
func (c WriterConfig) FlushDelay() time.Duration {
	return time.Duration(c.FlushDelayMs) * time.Millisecond
}

func defaultWriterConfig() WriterConfig {
	return WriterConfig{
		FilePathRoot:   "./runs",
		FlushDelayMs:   30_000,
		ChunkSizes:     defaultChunkSizes(),
		RunControlTop:  "run-control",
		FrameTopic:     "frame-events",
		RunLogTopic:    "runlog",
		SELogTopic:     "selog",
		AlarmTopic:     "alarms",
		GroupID:        "nexus-writer",
		RunRegistryDSN: "./runs/registry.db",
		LogLevel:       "info",
	}
}

// LoadWriterConfig reads a YAML file (if path is non-empty), then layers
// NEXUS_WRITER_* environment variables over it. An environment variable
// overrides only a key the YAML file sets; keys absent from the file keep
// their defaults whatever the environment holds.
func LoadWriterConfig(path string) (WriterConfig, error) {
	cfg := defaultWriterConfig()
	v := newViper("NEXUS_WRITER")
	if err := readFile(v, path); err != nil {
		return cfg, err
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	if cfg.FilePathRoot == "" {
		return cfg, configError("file_path_root must not be empty")
	}
	return cfg, nil
}
