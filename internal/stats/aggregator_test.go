package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseguard/pulseguard/internal/domain/result"
)

func res(at time.Time, up bool, rt time.Duration) *result.CheckResult {
	return &result.CheckResult{Up: up, ResponseTime: rt, CreatedAt: at}
}

func TestParseInterval(t *testing.T) {
	assert.Equal(t, time.Minute, ParseInterval("1m"))
	assert.Equal(t, 6*time.Hour, ParseInterval("6h"))
	assert.Equal(t, 24*time.Hour, ParseInterval("1d"))
	assert.Equal(t, DefaultInterval, ParseInterval(""))
	assert.Equal(t, DefaultInterval, ParseInterval("2w"))
}

func TestAggregateResults_BucketCount(t *testing.T) {
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// 90 minutes over 1h intervals still produces two buckets.
	agg := AggregateResults(nil, from, from.Add(90*time.Minute), time.Hour)
	require.Len(t, agg.Buckets, 2)
	assert.Equal(t, from, agg.Buckets[0].Start)
	assert.Equal(t, from.Add(time.Hour), agg.Buckets[0].End)
	assert.Equal(t, from.Add(90*time.Minute), agg.Buckets[1].End, "last bucket is clamped to the range")

	agg = AggregateResults(nil, from, from, time.Hour)
	assert.Empty(t, agg.Buckets, "empty range has no buckets")
}

func TestAggregateResults_EmptyBucketsAreNil(t *testing.T) {
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := []*result.CheckResult{
		res(from.Add(10*time.Minute), true, 100*time.Millisecond),
	}

	agg := AggregateResults(rows, from, from.Add(2*time.Hour), time.Hour)
	require.Len(t, agg.Buckets, 2)

	require.NotNil(t, agg.Buckets[0].Uptime)
	assert.Equal(t, 100.0, *agg.Buckets[0].Uptime)
	assert.Equal(t, 1, agg.Buckets[0].TotalChecks)

	assert.Nil(t, agg.Buckets[1].Uptime, "an empty bucket reports nil, not zero")
	assert.Nil(t, agg.Buckets[1].AvgResponseTime)
	assert.Zero(t, agg.Buckets[1].TotalChecks)
}

func TestAggregateResults_Summary(t *testing.T) {
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := []*result.CheckResult{
		res(from.Add(1*time.Minute), true, 100*time.Millisecond),
		res(from.Add(2*time.Minute), true, 200*time.Millisecond),
		res(from.Add(3*time.Minute), false, 300*time.Millisecond),
		res(from.Add(4*time.Minute), true, 400*time.Millisecond),
	}

	agg := AggregateResults(rows, from, from.Add(time.Hour), time.Hour)
	require.NotNil(t, agg.Summary.Uptime)
	assert.Equal(t, 75.0, *agg.Summary.Uptime)
	assert.Equal(t, 4, agg.Summary.TotalChecks)
	assert.Equal(t, 1, agg.Summary.Errors)
	require.NotNil(t, agg.Summary.AvgResponseTime)
	assert.Equal(t, 250*time.Millisecond, *agg.Summary.AvgResponseTime)
}

func TestAggregateResults_IgnoresOutOfRange(t *testing.T) {
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)
	rows := []*result.CheckResult{
		res(from.Add(-time.Minute), false, time.Second),
		res(to, false, time.Second), // end is exclusive
		res(from, true, time.Second),
	}

	agg := AggregateResults(rows, from, to, time.Hour)
	assert.Equal(t, 1, agg.Summary.TotalChecks)
	assert.Zero(t, agg.Summary.Errors)
}

func TestPercentile_NearestRank(t *testing.T) {
	var samples []time.Duration
	for ms := 100; ms <= 1000; ms += 100 {
		samples = append(samples, time.Duration(ms)*time.Millisecond)
	}

	// nearest rank over 10 samples: ceil(9.5) = 10, so the last value
	assert.Equal(t, 1000*time.Millisecond, Percentile(samples, 0.95))
	assert.Equal(t, 500*time.Millisecond, Percentile(samples, 0.5))
	assert.Equal(t, time.Duration(0), Percentile(nil, 0.95))
	assert.Equal(t, 42*time.Millisecond, Percentile([]time.Duration{42 * time.Millisecond}, 0.95))
}
