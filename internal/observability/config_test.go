package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/dadosbr/agregador/internal/types"
)

func TestInitExportsToOTLPHTTP(t *testing.T) {
	var traceRequests atomic.Int32
	var metricRequests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/traces":
			traceRequests.Add(1)
		case "/v1/metrics":
			metricRequests.Add(1)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(server.Close)

	cfg := &types.Config{
		OTelEnabled:              true,
		OTelServiceName:          "agregador-test",
		OTelExporterOTLPEndpoint: server.URL,
		OTelExporterOTLPProtocol: "http/protobuf",
		OTelResourceAttributes:   "service.namespace=agregador-test,environment=test",
		OTelTracesSampler:        "always_on",
		OTelTracesSamplerArg:     1.0,
	}

	shutdown, err := Init(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	_, span := otel.Tracer("agregador/test").Start(ctx, "integration-span")
	span.End()

	meter := otel.Meter("agregador/test")
	counter, err := meter.Int64Counter("agregador.test.counter", metric.WithDescription("test counter"))
	require.NoError(t, err)
	counter.Add(ctx, 1)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, shutdown(shutdownCtx))

	require.GreaterOrEqual(t, traceRequests.Load(), int32(1), "no trace export received")
	require.GreaterOrEqual(t, metricRequests.Load(), int32(1), "no metric export received")
}

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := Init(&types.Config{OTelEnabled: false})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestValidateRequiresEndpointWhenEnabled(t *testing.T) {
	cfg := &Config{Enabled: true}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsBadSamplerArg(t *testing.T) {
	cfg := &Config{
		Enabled:          true,
		ExporterEndpoint: "http://localhost:4318",
		TracesSampler:    "traceidratio",
		TracesSamplerArg: 2.0,
	}
	require.Error(t, cfg.Validate())
}

func TestLoadConfigParsesResourceAttributes(t *testing.T) {
	cfg, err := LoadConfig(&types.Config{
		OTelResourceAttributes: "team=plataforma, environment=prod",
	})
	require.NoError(t, err)
	require.Equal(t, "plataforma", cfg.ResourceAttributes["team"])
	require.Equal(t, "prod", cfg.ResourceAttributes["environment"])
	require.Equal(t, defaultServiceName, cfg.ResourceAttributes[resourceServiceNameKey])
}
