// Package watch implements watch rules: CloudWatch-style alarms evaluated
// periodically over a sliding time window of buffered metric samples.
// Evaluation computes a statistic over the window, compares it against the
// rule's threshold, transitions the alarm state, and returns the actions
// registered for the new state.
package watch
