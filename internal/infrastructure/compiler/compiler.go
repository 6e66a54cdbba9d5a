package compiler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/hilthontt/collaby/internal/domain"
	"github.com/hilthontt/collaby/internal/infrastructure/logging"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxResponseBytes = 4 << 20 // 4MB

// Client talks to the code-execution service: POST {code, language} and get
// {output} back, or {error} with a non-2xx status.
type Client struct {
	url        string
	httpClient *http.Client
	logger     logging.Logger
}

func NewClient(url string, timeout time.Duration, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

func (c *Client) Compile(ctx context.Context, req domain.CompileRequest) (*domain.CompileResult, error) {
	if !req.Language.IsValid() {
		return nil, errors.Wrapf(domain.ErrUnsupportedLanguage, "language %q", req.Language)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "encode compile request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build compile request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error(logging.Compiler, logging.ExternalService, "compile service unreachable", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
		return nil, errors.Wrap(err, "call compile service")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read compile response")
	}

	c.logger.Debug(logging.Compiler, logging.ExternalService, "compile finished", map[logging.ExtraKey]any{
		logging.StatusCode: resp.StatusCode,
		logging.Latency:    time.Since(start).Milliseconds(),
		"language":         req.Language.String(),
	})

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &domain.CompileError{
			StatusCode: resp.StatusCode,
			Message:    gjson.GetBytes(raw, "error").String(),
		}
	}

	return &domain.CompileResult{Output: parseOutput(raw)}, nil
}

// parseOutput shows the whole body when the service answered without an
// output field, so nothing the service said is hidden.
func parseOutput(raw []byte) string {
	output := gjson.GetBytes(raw, "output")
	if !output.Exists() {
		return string(bytes.TrimSpace(raw))
	}
	if output.Type == gjson.String {
		return output.String()
	}
	return output.Raw
}
