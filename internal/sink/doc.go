// Package sink delivers captured output lines and supervision events to
// append-only destinations.
//
// Sinks are best-effort collaborators: a failing sink never interrupts
// supervision. The Multi fanout absorbs individual sink errors after a
// debug log, so the supervision loop can always treat delivery as
// fire-and-forget.
//
// Implementations:
//   - LogSink echoes child output lines through the structured logger,
//     keeping the terminal experience of watching the child live.
//   - FileSink appends NDJSON records to a rotating file.
//   - The MQTT publisher in internal/infrastructure/mqtt satisfies the
//     same interface for off-host consumers.
package sink
