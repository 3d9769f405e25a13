package watch

import (
	"context"
	"time"
)

// State is the alarm state of a watch rule.
type State string

const (
	// StateAlarm indicates the threshold comparison held at the last
	// evaluation.
	StateAlarm State = "ALARM"

	// StateNormal indicates the threshold comparison did not hold.
	StateNormal State = "NORMAL"

	// StateNoData indicates the evaluation window held no samples.
	StateNoData State = "NODATA"

	// StateSuspended disables evaluation and ingestion until the state is
	// explicitly set again.
	StateSuspended State = "SUSPENDED"
)

// Valid reports whether s is a recognized watch state.
func (s State) Valid() bool {
	switch s {
	case StateAlarm, StateNormal, StateNoData, StateSuspended:
		return true
	}
	return false
}

// Statistic is the aggregation applied to in-window samples.
type Statistic string

const (
	StatisticMaximum     Statistic = "Maximum"
	StatisticMinimum     Statistic = "Minimum"
	StatisticSampleCount Statistic = "SampleCount"
	StatisticAverage     Statistic = "Average"
	StatisticSum         Statistic = "Sum"
)

// ComparisonOperator relates the computed statistic to the threshold.
type ComparisonOperator string

const (
	CompareGreaterThan        ComparisonOperator = "GreaterThanThreshold"
	CompareGreaterThanOrEqual ComparisonOperator = "GreaterThanOrEqualToThreshold"
	CompareLessThan           ComparisonOperator = "LessThanThreshold"
	CompareLessThanOrEqual    ComparisonOperator = "LessThanOrEqualToThreshold"
)

// Rule is a resolved alarm specification. Period is in seconds; the rule's
// evaluation window is derived from it once, at construction.
type Rule struct {
	MetricName         string             `json:"MetricName" yaml:"MetricName" validate:"required"`
	Statistic          Statistic          `json:"Statistic" yaml:"Statistic" validate:"required"`
	ComparisonOperator ComparisonOperator `json:"ComparisonOperator" yaml:"ComparisonOperator" validate:"required"`
	Threshold          float64            `json:"Threshold" yaml:"Threshold"`
	Period             int                `json:"Period" yaml:"Period" validate:"required,min=1"`

	AlarmActions            []string `json:"AlarmActions,omitempty" yaml:"AlarmActions,omitempty"`
	OKActions               []string `json:"OKActions,omitempty" yaml:"OKActions,omitempty"`
	InsufficientDataActions []string `json:"InsufficientDataActions,omitempty" yaml:"InsufficientDataActions,omitempty"`
}

// actionsFor returns the action references registered for a state.
// StateSuspended has no action key and always yields none.
func (r Rule) actionsFor(state State) []string {
	switch state {
	case StateAlarm:
		return r.AlarmActions
	case StateNormal:
		return r.OKActions
	case StateNoData:
		return r.InsufficientDataActions
	}
	return nil
}

// MetricDatum is a single metric observation within a sample.
type MetricDatum struct {
	Value float64 `json:"Value" yaml:"Value"`
	Unit  string  `json:"Unit,omitempty" yaml:"Unit,omitempty"`
}

// WatchData is one buffered sample: a set of metric observations taken at
// one instant. Samples are append-only and never mutated after creation.
type WatchData struct {
	CreatedAt time.Time              `json:"created_at"`
	Data      map[string]MetricDatum `json:"data"`
}

// Action is a callable side effect produced by evaluation, resolved from a
// resource signal. The caller (scheduler) invokes returned actions.
type Action func(ctx context.Context) error
