package watch

import (
	"testing"
	"time"
)

var statBase = time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

func sample(offset time.Duration, metric string, value float64) WatchData {
	return WatchData{
		CreatedAt: statBase.Add(offset),
		Data:      map[string]MetricDatum{metric: {Value: value}},
	}
}

func statRule(statistic Statistic, op ComparisonOperator, threshold float64) Rule {
	return Rule{
		MetricName:         "CPUUtilization",
		Statistic:          statistic,
		ComparisonOperator: op,
		Threshold:          threshold,
		Period:             60,
	}
}

func TestMaximum_AlarmAndNormal(t *testing.T) {
	samples := []WatchData{
		sample(10*time.Second, "CPUUtilization", 50),
		sample(20*time.Second, "CPUUtilization", 95),
	}

	rule := statRule(StatisticMaximum, CompareGreaterThan, 90)
	if got := doMaximum(rule, samples, statBase); got != StateAlarm {
		t.Errorf("expected ALARM, got %s", got)
	}

	rule.Threshold = 95
	if got := doMaximum(rule, samples, statBase); got != StateNormal {
		t.Errorf("expected NORMAL, got %s", got)
	}
}

func TestMinimum_PicksSmallestSample(t *testing.T) {
	samples := []WatchData{
		sample(10*time.Second, "CPUUtilization", 50),
		sample(20*time.Second, "CPUUtilization", 5),
	}

	rule := statRule(StatisticMinimum, CompareLessThan, 10)
	if got := doMinimum(rule, samples, statBase); got != StateAlarm {
		t.Errorf("expected ALARM, got %s", got)
	}
}

func TestAverage_ComputesMean(t *testing.T) {
	samples := []WatchData{
		sample(10*time.Second, "CPUUtilization", 40),
		sample(20*time.Second, "CPUUtilization", 60),
	}

	rule := statRule(StatisticAverage, CompareGreaterThanOrEqual, 50)
	if got := doAverage(rule, samples, statBase); got != StateAlarm {
		t.Errorf("expected ALARM for mean 50 >= 50, got %s", got)
	}
}

func TestSum_AccumulatesWindow(t *testing.T) {
	samples := []WatchData{
		sample(10*time.Second, "CPUUtilization", 30),
		sample(20*time.Second, "CPUUtilization", 30),
	}

	rule := statRule(StatisticSum, CompareGreaterThan, 50)
	if got := doSum(rule, samples, statBase); got != StateAlarm {
		t.Errorf("expected ALARM, got %s", got)
	}
}

func TestSampleCount_CountsAllSamplesInWindow(t *testing.T) {
	// The count is over samples, not over occurrences of the configured
	// metric: a sample carrying a different metric still counts.
	samples := []WatchData{
		sample(10*time.Second, "CPUUtilization", 1),
		sample(20*time.Second, "DiskIO", 1),
	}

	rule := statRule(StatisticSampleCount, CompareGreaterThanOrEqual, 2)
	if got := doSampleCount(rule, samples, statBase); got != StateAlarm {
		t.Errorf("expected ALARM for 2 samples, got %s", got)
	}
}

func TestEmptyWindow_NoDataAsymmetry(t *testing.T) {
	// Maximum, Minimum and Average report NODATA on an empty window; Sum
	// and SampleCount compare a zero instead.
	rule := statRule(StatisticMaximum, CompareLessThan, 10)
	var none []WatchData

	if got := doMaximum(rule, none, statBase); got != StateNoData {
		t.Errorf("Maximum: expected NODATA, got %s", got)
	}
	if got := doMinimum(rule, none, statBase); got != StateNoData {
		t.Errorf("Minimum: expected NODATA, got %s", got)
	}
	if got := doAverage(rule, none, statBase); got != StateNoData {
		t.Errorf("Average: expected NODATA, got %s", got)
	}
	if got := doSum(rule, none, statBase); got != StateAlarm {
		t.Errorf("Sum: expected zero to compare (0 < 10 => ALARM), got %s", got)
	}
	if got := doSampleCount(rule, none, statBase); got != StateAlarm {
		t.Errorf("SampleCount: expected zero to compare (0 < 10 => ALARM), got %s", got)
	}
}

func TestWindowBoundaryInclusive(t *testing.T) {
	onBoundary := []WatchData{sample(0, "CPUUtilization", 99)}
	justBefore := []WatchData{sample(-time.Nanosecond, "CPUUtilization", 99)}

	rule := statRule(StatisticMaximum, CompareGreaterThan, 90)
	if got := doMaximum(rule, onBoundary, statBase); got != StateAlarm {
		t.Errorf("expected a boundary sample to count, got %s", got)
	}
	if got := doMaximum(rule, justBefore, statBase); got != StateNoData {
		t.Errorf("expected an older sample to be excluded, got %s", got)
	}
}

func TestSamplesMissingMetricAreSkipped(t *testing.T) {
	samples := []WatchData{
		sample(10*time.Second, "DiskIO", 99),
	}

	rule := statRule(StatisticMaximum, CompareGreaterThan, 10)
	if got := doMaximum(rule, samples, statBase); got != StateNoData {
		t.Errorf("expected NODATA when no sample carries the metric, got %s", got)
	}
}

func TestCompare_UnknownOperatorNeverAlarms(t *testing.T) {
	if compare("NotAnOperator", 100, 1) {
		t.Error("an unrecognized operator must compare false")
	}

	samples := []WatchData{sample(10*time.Second, "CPUUtilization", 100)}
	rule := statRule(StatisticMaximum, "NotAnOperator", 1)
	if got := doMaximum(rule, samples, statBase); got != StateNormal {
		t.Errorf("expected NORMAL for unknown operator, got %s", got)
	}
}

func TestCompare_Operators(t *testing.T) {
	cases := []struct {
		op        ComparisonOperator
		data      float64
		threshold float64
		want      bool
	}{
		{CompareGreaterThan, 2, 1, true},
		{CompareGreaterThan, 1, 1, false},
		{CompareGreaterThanOrEqual, 1, 1, true},
		{CompareLessThan, 0, 1, true},
		{CompareLessThan, 1, 1, false},
		{CompareLessThanOrEqual, 1, 1, true},
	}

	for _, tc := range cases {
		if got := compare(tc.op, tc.data, tc.threshold); got != tc.want {
			t.Errorf("compare(%s, %v, %v) = %v, want %v", tc.op, tc.data, tc.threshold, got, tc.want)
		}
	}
}
