package logging

import "time"

// Config selects sinks and tunes the router.
type Config struct {
	EnabledSinks     []string       `yaml:"sinks"`
	BufferSize       int            `yaml:"buffer_size"`
	MinimumSeverity  string         `yaml:"min_severity"`
	Fields           map[string]any `yaml:"fields"`
	JSON             JSONConfig     `yaml:"json"`
	DropWarnInterval time.Duration  `yaml:"drop_warn_interval"`
	// SinkSeverity raises the minimum severity for individual sinks.
	SinkSeverity map[string]string `yaml:"sink_severity"`
	// Mute drops events whose type starts with any of these prefixes.
	Mute []string `yaml:"mute"`
}

// JSONConfig configures the newline-delimited JSON sink.
type JSONConfig struct {
	FilePath      string        `yaml:"file_path"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// DefaultConfig routes info and above to the console.
func DefaultConfig() Config {
	return Config{
		EnabledSinks:     []string{"console"},
		BufferSize:       512,
		MinimumSeverity:  "info",
		DropWarnInterval: 5 * time.Second,
		JSON: JSONConfig{
			FlushInterval: 2 * time.Second,
		},
	}
}

// HasSink reports whether the named sink is enabled.
func (c Config) HasSink(name string) bool {
	for _, s := range c.EnabledSinks {
		if s == name {
			return true
		}
	}
	return false
}

// Severity resolves the configured minimum severity.
func (c Config) Severity() Severity {
	sev, _ := ParseSeverity(c.MinimumSeverity)
	return sev
}

// SinkMinimum resolves the minimum severity for the named sink, never lower
// than the router-wide minimum.
func (c Config) SinkMinimum(name string) Severity {
	base := c.Severity()
	raw, ok := c.SinkSeverity[name]
	if !ok {
		return base
	}
	if sev, ok := ParseSeverity(raw); ok && sev > base {
		return sev
	}
	return base
}

// CloneFields copies the static fields attached to every event.
func (c Config) CloneFields() map[string]any {
	if len(c.Fields) == 0 {
		return nil
	}
	cloned := make(map[string]any, len(c.Fields))
	for k, v := range c.Fields {
		cloned[k] = v
	}
	return cloned
}
