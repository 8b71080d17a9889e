package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/officeloom/internal/apperrors"
)

func TestRunFinishedLabels(t *testing.T) {
	r := New()
	r.RunFinished("data", nil)
	r.RunFinished("data", nil)
	r.RunFinished("document", &apperrors.ExtractionError{Source: "x.pdf", Reason: "no text"})
	r.RunFinished("tasks", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.runs.WithLabelValues("data", StatusCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("document", StatusFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.failures.WithLabelValues("document", apperrors.CodeExtraction)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.failures.WithLabelValues("tasks", apperrors.CodeInternal)))
}

func TestCountersIgnoreEmptyInput(t *testing.T) {
	r := New()
	r.RowsProcessed(0)
	r.RowsProcessed(-3)
	r.RowsProcessed(45)
	r.KeypointStrategy("")
	r.KeypointStrategy("frequency")

	assert.Equal(t, 45.0, testutil.ToFloat64(r.rows))
	assert.Equal(t, 1, testutil.CollectAndCount(r.strategy))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.RunFinished("data", nil)
		r.ObserveStage("clean", time.Second)
		r.KeypointStrategy("all")
		r.RowsProcessed(10)
	})
	assert.Nil(t, r.Registry())
	assert.NoError(t, r.WriteTextfile(filepath.Join(t.TempDir(), "never.prom")))
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.RunFinished("data", nil)
	r.ObserveStage("analyze", 20*time.Millisecond)

	path := filepath.Join(t.TempDir(), "officeloom.prom")
	require.NoError(t, r.WriteTextfile(path))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(b)
	assert.Contains(t, out, `officeloom_runs_total{kind="data",status="completed"} 1`)
	assert.Contains(t, out, `officeloom_stage_duration_seconds_count{stage="analyze"} 1`)
}
