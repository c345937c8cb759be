package observability

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// Metric attribute keys
var (
	AttrHTTPMethod     = attribute.Key("http.method")
	AttrHTTPRoute      = attribute.Key("http.route")
	AttrHTTPStatusCode = attribute.Key("http.status_code")
	AttrResult         = attribute.Key("result")
	AttrRestart        = attribute.Key("restart_required")
)

// MetricsProvider manages OpenTelemetry metrics exported through
// Prometheus. It also implements reconcile.Recorder for the session.
type MetricsProvider struct {
	serviceName   string
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	logger        *zap.Logger
	registry      *prometheus.Registry
	handler       http.Handler

	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Session metrics
	installsStarted  metric.Int64Counter
	installsFinished metric.Int64Counter
	appliesTotal     metric.Int64Counter
	restartPending   metric.Int64UpDownCounter

	mu             sync.Mutex
	pendingRestart bool
}

// NewMetricsProvider creates a new metrics provider. When disabled, all
// recording methods are no-ops and Handler serves 404.
func NewMetricsProvider(serviceName string, enabled bool, logger *zap.Logger) (*MetricsProvider, error) {
	if !enabled {
		return &MetricsProvider{
			serviceName: serviceName,
			meter:       otel.Meter(serviceName),
			logger:      logger,
		}, nil
	}

	registry := prometheus.NewRegistry()
	exporter, err := otelprometheus.New(
		otelprometheus.WithRegisterer(registry),
	)
	if err != nil {
		return nil, err
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	mp := &MetricsProvider{
		serviceName:   serviceName,
		meterProvider: meterProvider,
		meter:         meterProvider.Meter(serviceName),
		logger:        logger,
		registry:      registry,
		handler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}

	if err := mp.initMetrics(); err != nil {
		return nil, err
	}

	logger.Info("metrics initialized", zap.String("service", serviceName))
	return mp, nil
}

func (mp *MetricsProvider) initMetrics() error {
	var err error

	mp.httpRequestsTotal, err = mp.meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return err
	}

	mp.httpRequestDuration, err = mp.meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	mp.installsStarted, err = mp.meter.Int64Counter(
		"plugin_installs_started_total",
		metric.WithDescription("Total number of plugin installs started"),
	)
	if err != nil {
		return err
	}

	mp.installsFinished, err = mp.meter.Int64Counter(
		"plugin_installs_finished_total",
		metric.WithDescription("Total number of plugin installs finished"),
	)
	if err != nil {
		return err
	}

	mp.appliesTotal, err = mp.meter.Int64Counter(
		"session_applies_total",
		metric.WithDescription("Total number of session apply operations"),
	)
	if err != nil {
		return err
	}

	mp.restartPending, err = mp.meter.Int64UpDownCounter(
		"restart_pending",
		metric.WithDescription("Whether a restart is pending (0 or 1)"),
	)
	if err != nil {
		return err
	}

	return nil
}

// RecordHTTPRequest records an HTTP request metric
func (mp *MetricsProvider) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if mp.httpRequestsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		AttrHTTPMethod.String(method),
		AttrHTTPRoute.String(path),
		AttrHTTPStatusCode.Int(statusCode),
	)

	mp.httpRequestsTotal.Add(ctx, 1, attrs)
	mp.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// InstallStarted implements reconcile.Recorder
func (mp *MetricsProvider) InstallStarted() {
	if mp.installsStarted == nil {
		return
	}
	mp.installsStarted.Add(context.Background(), 1)
}

// InstallFinished implements reconcile.Recorder
func (mp *MetricsProvider) InstallFinished(success, cancelled, restartRequired bool) {
	if mp.installsFinished == nil {
		return
	}

	result := "success"
	switch {
	case cancelled:
		result = "cancelled"
	case !success:
		result = "failed"
	}

	mp.installsFinished.Add(context.Background(), 1, metric.WithAttributes(
		AttrResult.String(result),
		AttrRestart.Bool(restartRequired),
	))
}

// ApplyFinished implements reconcile.Recorder
func (mp *MetricsProvider) ApplyFinished(withoutRestart bool) {
	if mp.appliesTotal == nil {
		return
	}
	mp.appliesTotal.Add(context.Background(), 1, metric.WithAttributes(
		AttrRestart.Bool(!withoutRestart),
	))
}

// RestartPending implements reconcile.Recorder. The gauge only moves on a
// state change so repeated signals do not accumulate.
func (mp *MetricsProvider) RestartPending(pending bool) {
	if mp.restartPending == nil {
		return
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()
	if pending == mp.pendingRestart {
		return
	}
	mp.pendingRestart = pending

	delta := int64(1)
	if !pending {
		delta = -1
	}
	mp.restartPending.Add(context.Background(), delta)
}

// Handler returns an HTTP handler for Prometheus metrics
func (mp *MetricsProvider) Handler() http.Handler {
	if mp.handler != nil {
		return mp.handler
	}
	return http.NotFoundHandler()
}

// Meter returns the meter for creating custom metrics
func (mp *MetricsProvider) Meter() metric.Meter {
	return mp.meter
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}
