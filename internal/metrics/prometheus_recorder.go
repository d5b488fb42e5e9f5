package metrics

import (
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "testrunner"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry        *prom.Registry
	testDirectories *prom.CounterVec
	uploadDuration  *prom.HistogramVec
	uploadFiles     *prom.CounterVec
	uploadResults   *prom.CounterVec
	compressSeconds prom.Histogram
	archiveBytes    prom.Gauge
	compressResults *prom.CounterVec
	testResults     *prom.CounterVec
	testDuration    prom.Histogram
}

// NewPrometheusRecorder constructs and registers the run metrics on reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		registry: reg,
		testDirectories: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "test_directory_visits_total",
			Help:      "Test directory opens, split by whether the directory was created",
		}, []string{"created"}),
		uploadDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "Duration of log area upload calls",
			Buckets:   prom.DefBuckets,
		}, []string{"kind"}),
		uploadFiles: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_files_total",
			Help:      "Files handed to the log area",
		}, []string{"kind"}),
		uploadResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "upload_results_total",
			Help:      "Upload calls by kind and result",
		}, []string{"kind", "result"}),
		compressSeconds: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "compress_duration_seconds",
			Help:      "Duration of workspace compression",
			Buckets:   prom.DefBuckets,
		}),
		archiveBytes: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "archive_size_bytes",
			Help:      "Size of the compressed workspace archive",
		}),
		compressResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "compress_results_total",
			Help:      "Workspace compression results",
		}, []string{"result"}),
		testResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "test_results_total",
			Help:      "Executed tests by result",
		}, []string{"result"}),
		testDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "test_duration_seconds",
			Help:      "Wall-clock duration of executed tests",
			Buckets:   prom.ExponentialBuckets(0.1, 4, 8),
		}),
	}
	reg.MustRegister(pr.testDirectories, pr.uploadDuration, pr.uploadFiles, pr.uploadResults,
		pr.compressSeconds, pr.archiveBytes, pr.compressResults, pr.testResults, pr.testDuration)
	return pr
}

// Registry returns the registry the collectors are registered on.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.registry }

func (p *PrometheusRecorder) IncTestDirectory(created bool) {
	if p == nil {
		return
	}
	p.testDirectories.WithLabelValues(fmt.Sprint(created)).Inc()
}

func (p *PrometheusRecorder) ObserveUpload(kind string, files int, d time.Duration, success bool) {
	if p == nil {
		return
	}
	p.uploadDuration.WithLabelValues(kind).Observe(d.Seconds())
	p.uploadFiles.WithLabelValues(kind).Add(float64(files))
	p.uploadResults.WithLabelValues(kind, result(success)).Inc()
}

func (p *PrometheusRecorder) ObserveCompress(d time.Duration, size int64, success bool) {
	if p == nil {
		return
	}
	p.compressSeconds.Observe(d.Seconds())
	p.compressResults.WithLabelValues(result(success)).Inc()
	if success {
		p.archiveBytes.Set(float64(size))
	}
}

func (p *PrometheusRecorder) IncTestResult(r ResultLabel) {
	if p == nil {
		return
	}
	p.testResults.WithLabelValues(string(r)).Inc()
}

func (p *PrometheusRecorder) ObserveTestDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.testDuration.Observe(d.Seconds())
}

// WriteTextfile writes the current state of the registry in the text
// exposition format.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := prom.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}
