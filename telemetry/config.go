package telemetry

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// Config holds operator-defined instrumentation settings loaded from YAML.
type Config struct {
	// Disabled turns span correlation off without code changes.
	Disabled bool `yaml:"disabled"`

	// TraceName overrides the root span name.
	TraceName string `yaml:"trace_name"`

	// Tags become the Langfuse trace tags of every run.
	Tags []string `yaml:"trace_tags"`

	// Static is attached to the root span of every run.
	Static map[string]any `yaml:"static_attributes"`
}

// LoadConfig loads instrumentation settings from the given path. If path is
// empty the NOKK_TELEMETRY_CONFIG environment variable is consulted. A
// missing file is not an error: LoadConfig returns a nil Config and callers
// proceed with defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("NOKK_TELEMETRY_CONFIG")
	}
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "read telemetry config", goerr.V("path", path))
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, goerr.Wrap(err, "parse telemetry config", goerr.V("path", path))
	}
	return &cfg, nil
}

// Options converts the configuration to Instrument options. A nil Config
// yields none.
func (c *Config) Options() []Option {
	if c == nil {
		return nil
	}
	var opts []Option
	if c.TraceName != "" {
		opts = append(opts, WithTraceName(c.TraceName))
	}
	if len(c.Tags) > 0 {
		opts = append(opts, WithTraceTags(c.Tags...))
	}
	if len(c.Static) > 0 {
		opts = append(opts, WithStaticAttributes(c.Static))
	}
	return opts
}
