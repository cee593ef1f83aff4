package stats

import (
	"math"
	"sort"
	"time"

	"github.com/pulseguard/pulseguard/internal/domain/result"
)

// Interval strings accepted for aggregation queries. Anything else falls back
// to one hour.
var intervals = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"1h":  time.Hour,
	"6h":  6 * time.Hour,
	"1d":  24 * time.Hour,
}

const DefaultInterval = time.Hour

func ParseInterval(s string) time.Duration {
	if d, ok := intervals[s]; ok {
		return d
	}
	return DefaultInterval
}

// Bucket is one fixed-width slice of the query range. Uptime and
// AvgResponseTime are nil for a bucket with no checks: an empty hour is not
// the same thing as an hour of 100% downtime.
type Bucket struct {
	Start           time.Time      `json:"start"`
	End             time.Time      `json:"end"`
	Uptime          *float64       `json:"uptime"`
	AvgResponseTime *time.Duration `json:"avg_response_time"`
	P95ResponseTime *time.Duration `json:"p95_response_time"`
	TotalChecks     int            `json:"total_checks"`
	Errors          int            `json:"errors"`
}

// Summary aggregates the whole range without bucketing.
type Summary struct {
	Uptime          *float64       `json:"uptime"`
	AvgResponseTime *time.Duration `json:"avg_response_time"`
	P95ResponseTime *time.Duration `json:"p95_response_time"`
	TotalChecks     int            `json:"total_checks"`
	Errors          int            `json:"errors"`
}

type Aggregate struct {
	Buckets []Bucket `json:"buckets"`
	Summary Summary  `json:"summary"`
}

// AggregateResults buckets the results over [from, to) in chronological order,
// covering the entire range even where no checks landed. Results outside the
// range are ignored.
func AggregateResults(results []*result.CheckResult, from, to time.Time, interval time.Duration) Aggregate {
	if interval <= 0 {
		interval = DefaultInterval
	}

	n := 0
	if to.After(from) {
		n = int(math.Ceil(float64(to.Sub(from)) / float64(interval)))
	}

	buckets := make([]Bucket, n)
	grouped := make([][]*result.CheckResult, n)
	var inRange []*result.CheckResult

	for i := range buckets {
		start := from.Add(time.Duration(i) * interval)
		end := start.Add(interval)
		if end.After(to) {
			end = to
		}
		buckets[i] = Bucket{Start: start, End: end}
	}

	for _, r := range results {
		if r.CreatedAt.Before(from) || !r.CreatedAt.Before(to) {
			continue
		}
		i := int(r.CreatedAt.Sub(from) / interval)
		if i < 0 || i >= n {
			continue
		}
		grouped[i] = append(grouped[i], r)
		inRange = append(inRange, r)
	}

	for i := range buckets {
		fillStats(&buckets[i].Uptime, &buckets[i].AvgResponseTime, &buckets[i].P95ResponseTime,
			&buckets[i].TotalChecks, &buckets[i].Errors, grouped[i])
	}

	var sum Summary
	fillStats(&sum.Uptime, &sum.AvgResponseTime, &sum.P95ResponseTime, &sum.TotalChecks, &sum.Errors, inRange)

	return Aggregate{Buckets: buckets, Summary: sum}
}

func fillStats(uptime **float64, avg, p95 **time.Duration, total, errs *int, results []*result.CheckResult) {
	*total = len(results)
	if len(results) == 0 {
		return
	}

	upCount := 0
	var sum time.Duration
	latencies := make([]time.Duration, 0, len(results))
	for _, r := range results {
		if r.Up {
			upCount++
		} else {
			*errs++
		}
		sum += r.ResponseTime
		latencies = append(latencies, r.ResponseTime)
	}

	u := 100 * float64(upCount) / float64(len(results))
	*uptime = &u

	a := sum / time.Duration(len(results))
	*avg = &a

	p := Percentile(latencies, 0.95)
	*p95 = &p
}

// Percentile computes the nearest-rank percentile over the samples:
// index = ceil(p*n) - 1 on the ascending-sorted slice.
func Percentile(samples []time.Duration, p float64) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
