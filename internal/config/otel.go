package config

import "fmt"

type OtelExporter string

const (
	OtelExporterOTLP   OtelExporter = "otlp"
	OtelExporterStdout OtelExporter = "stdout"
	OtelExporterNone   OtelExporter = "none"
)

type Otel struct {
	// Exporter picks where spans go; stdout is meant for local debugging.
	Exporter      OtelExporter `env:"OTEL_EXPORTER" envDefault:"otlp"`
	ServiceName   string       `env:"OTEL_SERVICE_NAME" envDefault:"stock-cart"`
	Environment   string       `env:"OTEL_ENVIRONMENT"`
	CollectorURL  string       `env:"OTEL_COLLECTOR_URL"`
	Insecure      bool         `env:"OTEL_INSECURE"`
	TraceIDRatio  float64      `env:"OTEL_TRACE_ID_RATIO" envDefault:"0.1"`
	CollectorAuth string       `env:"OTEL_COLLECTOR_AUTH"`

	K8sPodName   string `env:"K8S_POD_NAME"`
	K8sNamespace string `env:"K8S_NAMESPACE"`
}

func (o *Otel) Validate() error {
	switch o.Exporter {
	case OtelExporterOTLP, OtelExporterStdout, OtelExporterNone:
	default:
		return fmt.Errorf("unknown exporter %q", o.Exporter)
	}
	if o.TraceIDRatio < 0 || o.TraceIDRatio > 1 {
		return fmt.Errorf("trace id ratio %v out of range [0, 1]", o.TraceIDRatio)
	}
	return nil
}
