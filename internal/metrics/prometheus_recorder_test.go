package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.IncTestDirectory(true)
	pr.IncTestDirectory(false)
	pr.IncTestDirectory(false)
	pr.ObserveUpload(KindLogs, 3, 150*time.Millisecond, true)
	pr.ObserveUpload(KindArtifacts, 1, 10*time.Millisecond, false)
	pr.ObserveCompress(time.Second, 2048, true)
	pr.IncTestResult(ResultPassed)
	pr.ObserveTestDuration(2 * time.Second)

	require.Equal(t, 1.0, testutil.ToFloat64(pr.testDirectories.WithLabelValues("true")))
	require.Equal(t, 2.0, testutil.ToFloat64(pr.testDirectories.WithLabelValues("false")))
	require.Equal(t, 3.0, testutil.ToFloat64(pr.uploadFiles.WithLabelValues(KindLogs)))
	require.Equal(t, 1.0, testutil.ToFloat64(pr.uploadResults.WithLabelValues(KindArtifacts, "failed")))
	require.Equal(t, 2048.0, testutil.ToFloat64(pr.archiveBytes))
	require.Equal(t, 1.0, testutil.ToFloat64(pr.testResults.WithLabelValues(string(ResultPassed))))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)
}

func TestPrometheusRecorderFailedCompressKeepsSize(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.ObserveCompress(time.Second, 100, true)
	pr.ObserveCompress(time.Second, 0, false)

	require.Equal(t, 100.0, testutil.ToFloat64(pr.archiveBytes))
	require.Equal(t, 1.0, testutil.ToFloat64(pr.compressResults.WithLabelValues("failed")))
}

func TestWriteTextfile(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncTestResult(ResultFailed)

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, pr.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), `testrunner_test_results_total{result="failed"} 1`), string(data))
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncTestDirectory(true)
	pr.ObserveUpload(KindLogs, 1, time.Second, true)
	pr.ObserveCompress(time.Second, 1, true)
	pr.IncTestResult(ResultError)
	pr.ObserveTestDuration(time.Second)
}

var _ Recorder = NoopRecorder{}
var _ Recorder = (*PrometheusRecorder)(nil)
