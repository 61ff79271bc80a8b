package config

import "time"

// AggregatorConfig holds the frame-aggregator's options. The TTL and poll
// fields are stored in milliseconds to match their on-disk/env key names.
type AggregatorConfig struct {
	DigitiserIDs []uint8  `yaml:"digitiser_ids" mapstructure:"digitiser_ids"`
	FrameTTLMs   int64    `yaml:"frame_ttl_ms" mapstructure:"frame_ttl_ms"`
	CachePollMs  int64    `yaml:"cache_poll_ms" mapstructure:"cache_poll_ms"`
	InputTopic   string   `yaml:"input_topic" mapstructure:"input_topic"`
	OutputTopic  string   `yaml:"output_topic" mapstructure:"output_topic"`
	Brokers      []string `yaml:"brokers" mapstructure:"brokers"`
	GroupID      string   `yaml:"group_id" mapstructure:"group_id"`
	LogLevel     string   `yaml:"log_level" mapstructure:"log_level"`
	LogFile      string   `yaml:"log_file" mapstructure:"log_file"`
}

// FrameTTL is the TTL for partial frames.
func (c AggregatorConfig) FrameTTL() time.Duration {
	return time.Duration(c.FrameTTLMs) * time.Millisecond
}

// CachePoll is the eviction tick interval.
func (c AggregatorConfig) CachePoll() time.Duration {
	return time.Duration(c.CachePollMs) * time.Millisecond
}

func defaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		FrameTTLMs:  500,
		CachePollMs: 500,
		InputTopic:  "digitiser-events",
		OutputTopic: "frame-events",
		GroupID:     "frame-aggregator",
		LogLevel:    "info",
	}
}

// LoadAggregatorConfig reads a YAML file (if path is non-empty), then layers
// FRAME_AGGREGATOR_* environment variables over it. An environment variable
// overrides only a key the YAML file sets; keys absent from the file keep
// their defaults whatever the environment holds.
func LoadAggregatorConfig(path string) (AggregatorConfig, error) {
	cfg := defaultAggregatorConfig()
	v := newViper("FRAME_AGGREGATOR")
	if err := readFile(v, path); err != nil {
		return cfg, err
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	if len(cfg.DigitiserIDs) == 0 {
		return cfg, errNoDigitisers
	}
	return cfg, nil
}

var errNoDigitisers = configError("digitiser_ids must not be empty")

type configError string

func (e configError) Error() string { return string(e) }
