package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/demensdeum/coverseer/internal/output"
	"github.com/demensdeum/coverseer/internal/supervisor"
)

// maxRestartReasonLen bounds the operator-supplied restart reason.
const maxRestartReasonLen = 256

// restartRequest is the optional body for POST /restart.
type restartRequest struct {
	Reason string `json:"reason"`
}

// handleStatus returns a point-in-time snapshot of the supervision loop.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.supervisor.Stats())
}

// handleOutput returns buffered child output, oldest first.
//
// Query parameters:
//   - n: return only the most recent n lines (default: all buffered)
//   - stream: "stdout" or "stderr" to filter by pipe (default: both)
func (s *Server) handleOutput(w http.ResponseWriter, r *http.Request) {
	lines, err := s.selectOutputLines(r.URL.Query().Get("n"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	stream, err := parseStreamParam(r.URL.Query().Get("stream"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if stream != "" {
		filtered := lines[:0]
		for _, line := range lines {
			if line.Stream == stream {
				filtered = append(filtered, line)
			}
		}
		lines = filtered
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"lines":      lines,
		"count":      len(lines),
		"generation": s.ring.Generation(),
	})
}

// handleRestart queues a restart with the supervisor. The restart is
// applied asynchronously by the decision loop, so success means accepted,
// not completed.
func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	var req restartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Reason) > maxRestartReasonLen {
		writeBadRequest(w, "reason exceeds maximum length")
		return
	}

	if err := s.supervisor.RequestRestart(req.Reason); err != nil {
		switch {
		case errors.Is(err, supervisor.ErrNotRunning):
			writeConflict(w, "supervisor is not running")
		case errors.Is(err, supervisor.ErrRestartPending):
			writeConflict(w, "a restart is already pending")
		default:
			writeInternalError(w, "failed to queue restart")
		}
		return
	}

	s.logger.Info("restart requested via API", "reason", req.Reason)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "restart requested",
		"reason": req.Reason,
	})
}

// selectOutputLines reads the ring, honouring the optional n parameter.
func (s *Server) selectOutputLines(raw string) ([]output.Line, error) {
	if raw == "" {
		return s.ring.Snapshot(), nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return nil, errors.New("invalid n")
	}

	return s.ring.Tail(n), nil
}

// parseStreamParam validates the stream filter parameter.
func parseStreamParam(raw string) (output.Stream, error) {
	switch raw {
	case "":
		return "", nil
	case string(output.StreamStdout):
		return output.StreamStdout, nil
	case string(output.StreamStderr):
		return output.StreamStderr, nil
	default:
		return "", errors.New("stream must be stdout or stderr")
	}
}
