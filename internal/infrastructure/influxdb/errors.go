package influxdb

import "errors"

// Sentinel errors for the metrics backend. Callers match with
// errors.Is; in particular ErrDisabled from Connect means metrics are
// off on purpose and supervision proceeds without them.
var (
	// ErrNotConnected means a write or flush was attempted before
	// Connect succeeded.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed means the startup ping got no healthy answer.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled means the configuration turned InfluxDB off.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
