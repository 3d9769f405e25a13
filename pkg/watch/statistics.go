package watch

import "time"

// statisticFunc computes the alarm state for one statistic over the
// samples inside the evaluation window starting at windowStart.
type statisticFunc func(rule Rule, samples []WatchData, windowStart time.Time) State

// statisticFuncs is the fixed dispatch table for the supported statistics.
var statisticFuncs = map[Statistic]statisticFunc{
	StatisticMaximum:     doMaximum,
	StatisticMinimum:     doMinimum,
	StatisticSampleCount: doSampleCount,
	StatisticAverage:     doAverage,
	StatisticSum:         doSum,
}

// inWindow reports whether a sample falls inside the evaluation window.
// Samples exactly at the window start are included; strictly older ones
// are not.
func inWindow(sample WatchData, windowStart time.Time) bool {
	return !sample.CreatedAt.Before(windowStart)
}

// compare applies the rule's comparison operator. An unrecognized operator
// compares false, so the rule never alarms on it.
func compare(op ComparisonOperator, data, threshold float64) bool {
	switch op {
	case CompareGreaterThan:
		return data > threshold
	case CompareGreaterThanOrEqual:
		return data >= threshold
	case CompareLessThan:
		return data < threshold
	case CompareLessThanOrEqual:
		return data <= threshold
	default:
		return false
	}
}

// thresholdState maps the comparison outcome to an alarm state.
func thresholdState(rule Rule, data float64) State {
	if compare(rule.ComparisonOperator, data, rule.Threshold) {
		return StateAlarm
	}
	return StateNormal
}

func doMaximum(rule Rule, samples []WatchData, windowStart time.Time) State {
	var data float64
	haveData := false
	for _, sample := range samples {
		if !inWindow(sample, windowStart) {
			continue
		}
		datum, ok := sample.Data[rule.MetricName]
		if !ok {
			continue
		}
		if !haveData || datum.Value > data {
			data = datum.Value
			haveData = true
		}
	}

	if !haveData {
		return StateNoData
	}
	return thresholdState(rule, data)
}

func doMinimum(rule Rule, samples []WatchData, windowStart time.Time) State {
	var data float64
	haveData := false
	for _, sample := range samples {
		if !inWindow(sample, windowStart) {
			continue
		}
		datum, ok := sample.Data[rule.MetricName]
		if !ok {
			continue
		}
		if !haveData || datum.Value < data {
			data = datum.Value
			haveData = true
		}
	}

	if !haveData {
		return StateNoData
	}
	return thresholdState(rule, data)
}

// doSampleCount counts all in-window samples, independent of the metric
// values they carry, and compares the count against the threshold. An
// empty window compares a count of zero rather than reporting NODATA.
func doSampleCount(rule Rule, samples []WatchData, windowStart time.Time) State {
	count := 0
	for _, sample := range samples {
		if inWindow(sample, windowStart) {
			count++
		}
	}
	return thresholdState(rule, float64(count))
}

func doAverage(rule Rule, samples []WatchData, windowStart time.Time) State {
	var sum float64
	count := 0
	for _, sample := range samples {
		if !inWindow(sample, windowStart) {
			continue
		}
		datum, ok := sample.Data[rule.MetricName]
		if !ok {
			continue
		}
		sum += datum.Value
		count++
	}

	if count == 0 {
		return StateNoData
	}
	return thresholdState(rule, sum/float64(count))
}

// doSum compares the running total against the threshold even when the
// window is empty: a sum of zero is a real value here, unlike
// Maximum/Minimum/Average which report NODATA. Inherited asymmetry, kept
// for behavioral compatibility.
func doSum(rule Rule, samples []WatchData, windowStart time.Time) State {
	var sum float64
	for _, sample := range samples {
		if !inWindow(sample, windowStart) {
			continue
		}
		datum, ok := sample.Data[rule.MetricName]
		if !ok {
			continue
		}
		sum += datum.Value
	}
	return thresholdState(rule, sum)
}
