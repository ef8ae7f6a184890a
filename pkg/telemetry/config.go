package telemetry

import (
	"os"
	"strings"
)

// DefaultServiceName is used when OTEL_SERVICE_NAME is unset.
const DefaultServiceName = "graph-analytics"

// Config holds OpenTelemetry settings.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string

	// Endpoint is the OTLP collector address, with or without scheme.
	Endpoint string
	// Protocol is grpc or http/protobuf.
	Protocol string
	Headers  map[string]string
	Insecure bool

	// Sampler is one of always_on, always_off, traceidratio,
	// parentbased_always_on, parentbased_always_off, parentbased_traceidratio.
	Sampler    string
	SamplerArg string

	ResourceAttrs map[string]string
}

// Overrides are settings from the application config file. Zero values
// keep the environment's setting.
type Overrides struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	Protocol    string
	SampleRatio float64
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	return &Config{
		Enabled:        strings.EqualFold(os.Getenv("OTEL_ENABLED"), "true"),
		ServiceName:    getEnvOrDefault("OTEL_SERVICE_NAME", DefaultServiceName),
		ServiceVersion: getEnvOrDefault("OTEL_SERVICE_VERSION", "unknown"),
		Endpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Protocol:       getEnvOrDefault("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
		Headers:        parseKeyValuePairs(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		Insecure:       strings.EqualFold(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE"), "true"),
		Sampler:        os.Getenv("OTEL_TRACES_SAMPLER"),
		SamplerArg:     os.Getenv("OTEL_TRACES_SAMPLER_ARG"),
		ResourceAttrs:  parseKeyValuePairs(os.Getenv("OTEL_RESOURCE_ATTRIBUTES")),
	}
}

// WithOverrides returns a copy of c with o applied.
func (c *Config) WithOverrides(o Overrides) *Config {
	out := *c
	if o.Enabled {
		out.Enabled = true
	}
	if o.ServiceName != "" {
		out.ServiceName = o.ServiceName
	}
	if o.Endpoint != "" {
		out.Endpoint = o.Endpoint
	}
	if o.Protocol != "" {
		out.Protocol = o.Protocol
	}
	if o.SampleRatio > 0 && o.SampleRatio < 1 {
		out.Sampler = "parentbased_traceidratio"
		out.SamplerArg = formatRatio(o.SampleRatio)
	}
	return &out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseKeyValuePairs parses "k1=v1,k2=v2". Values may contain '='.
func parseKeyValuePairs(s string) map[string]string {
	result := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		result[key] = strings.TrimSpace(value)
	}
	return result
}
