package config

import "strings"

// MetricsConfig controls emission of metrics to external sinks such as StatsD.
type MetricsConfig struct {
	Enabled       bool   `env:"METRICS_ENABLED"        envDefault:"false"`
	StatsdAddress string `env:"METRICS_STATSD_ADDRESS" envDefault:"127.0.0.1:8125"`
}

// Sanitize normalises derived fields and enforces safe defaults.
func (c *MetricsConfig) Sanitize() {
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	if c.StatsdAddress == "" {
		c.Enabled = false
	}
}

// IsEnabled returns true when metrics emission is active after sanitisation.
func (c *MetricsConfig) IsEnabled() bool {
	return c.Enabled && c.StatsdAddress != ""
}
