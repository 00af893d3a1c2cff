package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteVerdictMetric records one oracle assessment.
//
// This is the highest-frequency metric, written once per poll cycle.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - sessionID: Supervision session identifier
//   - classification: Verdict value (healthy, hung, crashed, errored, unknown)
//   - latencyMS: Oracle round-trip time in milliseconds
//
// Example:
//
//	client.WriteVerdictMetric("ses-4f21", "healthy", 1840)
func (c *Client) WriteVerdictMetric(sessionID string, classification string, latencyMS int64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"verdicts",
		map[string]string{
			"session_id":     sessionID,
			"classification": classification,
		},
		map[string]interface{}{
			"latency_ms": latencyMS,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteRestartMetric records a restart decision.
//
// Used for tracking restart frequency and backoff behaviour over time.
//
// Parameters:
//   - sessionID: Supervision session identifier
//   - reason: What triggered the restart (verdict, exit, manual)
//   - attempt: Consecutive failure count at the time of the restart
//   - delayMS: Backoff delay applied before the relaunch, in milliseconds
func (c *Client) WriteRestartMetric(sessionID string, reason string, attempt int, delayMS int64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"restarts",
		map[string]string{
			"session_id": sessionID,
			"reason":     reason,
		},
		map[string]interface{}{
			"attempt":  attempt,
			"delay_ms": delayMS,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteRunMetric records a completed child process run.
//
// Written once per run when the child exits or is replaced, so run
// lifetimes and exit codes can be charted.
//
// Parameters:
//   - sessionID: Supervision session identifier
//   - endReason: Why the run ended (clean_exit, crashed, verdict_restart, manual_restart, shutdown)
//   - uptimeSeconds: How long the child ran
//   - exitCode: Exit code, or -1 when the child was killed before reporting one
func (c *Client) WriteRunMetric(sessionID string, endReason string, uptimeSeconds float64, exitCode int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"runs",
		map[string]string{
			"session_id": sessionID,
			"end_reason": endReason,
		},
		map[string]interface{}{
			"uptime_seconds": uptimeSeconds,
			"exit_code":      exitCode,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("buffer_stats",
//	    map[string]string{"session_id": "ses-4f21"},
//	    map[string]interface{}{"lines": 100, "dropped": 12})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., replayed history).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
