package config

// Config represents the complete fcg configuration.
// It can be loaded from .fcg/config.yml with environment variable overrides.
type Config struct {
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	CallGraph CallGraphConfig `yaml:"callgraph" mapstructure:"callgraph"`
	Source    SourceConfig    `yaml:"source" mapstructure:"source"`
	Watch     WatchConfig     `yaml:"watch" mapstructure:"watch"`
}

// OutputConfig controls where call graphs are written.
type OutputConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`       // directory for <project>_call_graph.json
	SQLite string `yaml:"sqlite" mapstructure:"sqlite"` // optional SQLite export path, empty disables it
}

// CallGraphConfig tunes trace parsing.
type CallGraphConfig struct {
	Ignore []string `yaml:"ignore" mapstructure:"ignore"` // glob patterns; edges touching matching files are dropped
}

// SourceConfig tunes symbol report parsing.
type SourceConfig struct {
	Root             string `yaml:"root" mapstructure:"root"`                           // base for relative source paths
	LocationFallback string `yaml:"location_fallback" mapstructure:"location_fallback"` // "snippet" or "header"
}

// WatchConfig controls trace watching.
type WatchConfig struct {
	DebounceMs int `yaml:"debounce_ms" mapstructure:"debounce_ms"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Dir:    "output",
			SQLite: "",
		},
		CallGraph: CallGraphConfig{
			Ignore: []string{},
		},
		Source: SourceConfig{
			Root:             "",
			LocationFallback: "snippet",
		},
		Watch: WatchConfig{
			DebounceMs: 500,
		},
	}
}
