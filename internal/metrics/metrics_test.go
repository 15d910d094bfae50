// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

// histogramSnapshot reads the sample count and sum of a histogram.
func histogramSnapshot(t *testing.T, h prometheus.Histogram) (uint64, float64) {
	t.Helper()
	var m io_prometheus_client.Metric
	if err := h.Write(&m); err != nil {
		t.Fatalf("write histogram: %v", err)
	}
	return m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum()
}

func TestRecordSnapshotRefresh(t *testing.T) {
	captured := time.Date(2026, 3, 1, 0, 0, 5, 0, time.UTC)

	beforeOK := testutil.ToFloat64(SnapshotRefreshes.WithLabelValues("metrics-test", "success"))
	beforeErr := testutil.ToFloat64(SnapshotRefreshes.WithLabelValues("metrics-test", "error"))

	RecordSnapshotRefresh("metrics-test", 20*time.Millisecond, captured, nil)
	RecordSnapshotRefresh("metrics-test", time.Second, time.Time{}, errors.New("store down"))

	if got := testutil.ToFloat64(SnapshotRefreshes.WithLabelValues("metrics-test", "success")); got != beforeOK+1 {
		t.Errorf("success count = %v, want %v", got, beforeOK+1)
	}
	if got := testutil.ToFloat64(SnapshotRefreshes.WithLabelValues("metrics-test", "error")); got != beforeErr+1 {
		t.Errorf("error count = %v, want %v", got, beforeErr+1)
	}
	if got := testutil.ToFloat64(SnapshotCapturedAt.WithLabelValues("metrics-test")); got != float64(captured.Unix()) {
		t.Errorf("captured gauge = %v, want %v (failed refresh must not move it)", got, captured.Unix())
	}
}

func TestRecordSnapshotGet(t *testing.T) {
	tests := []string{"fresh", "refreshed", "coalesced", "stale"}
	for _, outcome := range tests {
		t.Run(outcome, func(t *testing.T) {
			before := testutil.ToFloat64(SnapshotGets.WithLabelValues("metrics-test", outcome))
			RecordSnapshotGet("metrics-test", outcome)
			if got := testutil.ToFloat64(SnapshotGets.WithLabelValues("metrics-test", outcome)); got != before+1 {
				t.Errorf("count = %v, want %v", got, before+1)
			}
		})
	}
}

func TestRecordRatingOperation(t *testing.T) {
	before := testutil.ToFloat64(RatingOperations.WithLabelValues("create", "error"))
	RecordRatingOperation("create", errors.New("conflict"))
	if got := testutil.ToFloat64(RatingOperations.WithLabelValues("create", "error")); got != before+1 {
		t.Errorf("count = %v, want %v", got, before+1)
	}
}

func TestRecordBreakerTransition(t *testing.T) {
	RecordBreakerTransition("metrics-test", "closed", "open", 2)
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("metrics-test")); got != 2 {
		t.Errorf("state gauge = %v, want 2", got)
	}
	if got := testutil.ToFloat64(CircuitBreakerTransitions.WithLabelValues("metrics-test", "closed", "open")); got < 1 {
		t.Errorf("transition count = %v, want >= 1", got)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("active = %v, want %v", got, before+1)
	}
}

func TestRecordTxn(t *testing.T) {
	before := testutil.ToFloat64(TxnTotal.WithLabelValues("conflict"))
	countBefore, sumBefore := histogramSnapshot(t, TxnAttempts)
	RecordTxn("conflict", 10)
	if got := testutil.ToFloat64(TxnTotal.WithLabelValues("conflict")); got != before+1 {
		t.Errorf("conflict count = %v, want %v", got, before+1)
	}
	if n := testutil.CollectAndCount(TxnAttempts); n != 1 {
		t.Errorf("attempt histogram series = %d, want 1", n)
	}
	count, sum := histogramSnapshot(t, TxnAttempts)
	if count != countBefore+1 || sum != sumBefore+10 {
		t.Errorf("attempts histogram = %d samples sum %v, want %d samples sum %v", count, sum, countBefore+1, sumBefore+10)
	}
}
