package config

/* --------------------------------- Metrics Config Defaults -------------------------------- */

const (
	// defaultPrometheusAddr is the default address for the Prometheus metrics server
	defaultPrometheusAddr = ":9090"

	// defaultPprofAddr is the default address for the pprof server
	// NOTE: This address was selected based on the example here:
	// https://pkg.go.dev/net/http/pprof
	defaultPprofAddr = ":6060"
)

/* --------------------------------- Metrics Config Struct -------------------------------- */

// MetricsConfig contains configuration for metrics and profiling servers.
type MetricsConfig struct {
	// PrometheusAddr is the address at which the Prometheus metrics server will listen
	// Default: ":9090"
	PrometheusAddr string `yaml:"prometheus_addr"`

	// PprofAddr is the address at which the pprof server will listen
	// Default: ":6060"
	PprofAddr string `yaml:"pprof_addr"`
}

/* --------------------------------- Metrics Config Private Helpers -------------------------------- */

// hydrateMetricsDefaults assigns default values to MetricsConfig fields if they are not set.
func (c *MetricsConfig) hydrateMetricsDefaults() {
	if c.PrometheusAddr == "" {
		c.PrometheusAddr = defaultPrometheusAddr
	}
	if c.PprofAddr == "" {
		c.PprofAddr = defaultPprofAddr
	}
}
