// Package api implements the HTTP status API and WebSocket server for coverseer.
//
// This package provides:
//   - REST endpoints for supervisor status, buffered child output, and run history
//   - A restart endpoint for operator-requested child replacement
//   - WebSocket hub broadcasting supervision events and output lines in real time
//   - Middleware stack (request ID, logging, recovery, body size limit)
//
// # Architecture
//
// The API server sits beside the supervision loop and exposes read-only
// views of its state plus a single control operation (restart). It never
// touches the child process directly: restart requests are queued with the
// supervisor, which applies them on its own decision loop. Supervision
// events reach WebSocket clients through a sink adapter wired into the
// event fan-out, so the API observes the same stream as every other sink.
//
// # Graceful Degradation
//
// The server operates without run history. Status, output, and WebSocket
// connections work; only the /runs endpoints return 503. This keeps the
// API useful when persistence is disabled.
//
// The API is unauthenticated and intended for loopback use; bind it to
// 127.0.0.1 unless the network is trusted.
package api
