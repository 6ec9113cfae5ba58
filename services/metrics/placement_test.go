package metricsvc

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core/placement"
)

func TestPlacementRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPlacementRecorder(reg)

	rec.PlacementsStaged(3)
	rec.EnrollmentsCommitted(2)
	rec.PlacementSkipped(placement.CodeAlreadyEnrolled)
	rec.PlacementSkipped(placement.CodeAlreadyEnrolled)
	rec.PlacementSkipped(placement.CodeYearLocked)
	rec.CommitFailed()
	rec.CommitDuration(20 * time.Millisecond)

	assert.Equal(t, 3.0, testutil.ToFloat64(rec.staged))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.committed))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.skipped.WithLabelValues("ALREADY_ENROLLED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.skipped.WithLabelValues("YEAR_LOCKED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.commitFailures))
	assert.Equal(t, 1, testutil.CollectAndCount(rec.commitDuration))
}
