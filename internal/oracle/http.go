package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"difendimi.live/intake/common/logger"
	"difendimi.live/intake/internal/model"
)

const maxResponseBytes = 1 << 20

// HTTPOracle calls a remote service that speaks the oracle JSON contract:
// it POSTs a Request and expects a Response body.
type HTTPOracle struct {
	url    string
	client *http.Client
}

// NewHTTPOracle uses an otelhttp-instrumented client when client is nil.
// Deadlines come from the caller's context.
func NewHTTPOracle(url string, client *http.Client) *HTTPOracle {
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &HTTPOracle{url: url, client: client}
}

func (o *HTTPOracle) Assess(ctx context.Context, req Request) (model.OracleAssessment, error) {
	sc := logger.StartSpan(ctx, "oracle.http.assess")
	defer sc.End()
	ctx = sc.Context()

	if req.PreviousContext == nil {
		req.PreviousContext = []ContextMessage{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return model.OracleAssessment{}, fmt.Errorf("encoding oracle request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return model.OracleAssessment{}, fmt.Errorf("building oracle request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrUnreachable, err)
		sc.RecordError(err)
		return model.OracleAssessment{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		err = fmt.Errorf("%w: reading body: %w", ErrUnreachable, err)
		sc.RecordError(err)
		return model.OracleAssessment{}, err
	}

	if err := classifyStatus(resp.StatusCode, data); err != nil {
		sc.RecordError(err)
		return model.OracleAssessment{}, err
	}

	assessment, err := Decode(data)
	if err != nil {
		sc.RecordError(err)
		return model.OracleAssessment{}, err
	}
	return assessment, nil
}

// classifyStatus treats overload and server faults as transient and any other
// non-2xx as a broken contract.
func classifyStatus(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status >= 500, status == http.StatusTooManyRequests, status == http.StatusRequestTimeout:
		return fmt.Errorf("%w: status %d: %s", ErrUnreachable, status, logger.Truncate(string(body), 200))
	default:
		return fmt.Errorf("%w: status %d: %s", ErrMalformed, status, logger.Truncate(string(body), 200))
	}
}
