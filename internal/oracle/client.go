package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/demensdeum/coverseer/internal/infrastructure/config"
	"github.com/demensdeum/coverseer/internal/infrastructure/logging"
	"github.com/demensdeum/coverseer/internal/output"
)

const (
	// defaultTimeout bounds an assessment when the config carries none.
	defaultTimeout = 30 * time.Second

	// maxReplyBytes caps how much of the endpoint's reply is read.
	maxReplyBytes = 1 << 20
)

const promptInstruction = `Analyze the following process output and decide whether the process is healthy, hung, crashed, or in an error state that requires a restart. Respond ONLY with a JSON object with a "classification" of "healthy", "hung", "crashed" or "errored", and a short "reason".`

// responseFormat is the JSON schema sent with every request. Ollama
// constrains the model's reply to match it, which keeps parsing down to
// one token lookup plus a free-text reason.
var responseFormat = json.RawMessage(`{
	"type": "object",
	"properties": {
		"classification": {
			"type": "string",
			"enum": ["healthy", "hung", "crashed", "errored"]
		},
		"reason": {
			"type": "string"
		}
	},
	"required": ["classification", "reason"]
}`)

type generateRequest struct {
	Model  string          `json:"model"`
	Prompt string          `json:"prompt"`
	Stream bool            `json:"stream"`
	Format json.RawMessage `json:"format"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type judgment struct {
	Classification string `json:"classification"`
	Reason         string `json:"reason"`
}

// Client assesses process health through an Ollama-compatible endpoint.
//
// Thread Safety: safe for concurrent use; the supervisor nevertheless
// serialises assessments so at most one is in flight.
type Client struct {
	endpoint   string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	logger     *logging.Logger
}

// New creates an oracle client from configuration.
//
// Parameters:
//   - cfg: endpoint, model name and per-request timeout
//   - logger: structured logger for assessment failures
func New(cfg config.OracleConfig, logger *logging.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		model:      cfg.Model,
		timeout:    timeout,
		httpClient: &http.Client{},
		logger:     logger.With("component", "oracle"),
	}
}

// Model returns the model name assessments are sent to.
func (c *Client) Model() string {
	return c.model
}

// Assess asks the oracle to judge the given output snapshot.
//
// The returned verdict is tagged with generation so callers can discard
// it if the process has since been restarted. Assess never returns an
// error: timeouts, transport failures and unparseable replies all
// degrade to an Unknown verdict carrying the cause in its rationale.
func (c *Client) Assess(ctx context.Context, lines []output.Line, generation uint64) Verdict {
	start := time.Now()

	j, err := c.generate(ctx, promptInstruction+"\n\nOutput:\n"+output.Render(lines))
	if err == nil {
		if cls, ok := parseClassification(j.Classification); ok {
			return Verdict{
				Classification: cls,
				Rationale:      j.Reason,
				Generation:     generation,
				Latency:        time.Since(start),
			}
		}
		err = fmt.Errorf("%w: classification %q", ErrBadReply, j.Classification)
	}

	c.logger.Warn("health assessment degraded",
		"generation", generation,
		"model", c.model,
		"error", err)

	return Verdict{
		Classification: Unknown,
		Rationale:      err.Error(),
		Generation:     generation,
		Latency:        time.Since(start),
	}
}

// generate performs one structured-output completion round trip.
func (c *Client) generate(ctx context.Context, prompt string) (judgment, error) {
	payload, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Format: responseFormat,
	})
	if err != nil {
		return judgment{}, fmt.Errorf("oracle: encode request: %w", err)
	}

	tctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(tctx, http.MethodPost,
		c.endpoint+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return judgment{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return judgment{}, c.transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return judgment{}, c.transportError(err)
	}

	if resp.StatusCode != http.StatusOK {
		return judgment{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var gr generateResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return judgment{}, fmt.Errorf("%w: %v", ErrBadReply, err)
	}
	if gr.Response == "" {
		return judgment{}, fmt.Errorf("%w: empty completion", ErrBadReply)
	}

	var j judgment
	if err := json.Unmarshal([]byte(gr.Response), &j); err != nil {
		return judgment{}, fmt.Errorf("%w: %v", ErrBadReply, err)
	}
	return j, nil
}

// transportError folds a request failure into the error taxonomy,
// distinguishing deadline expiry from everything else.
func (c *Client) transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
