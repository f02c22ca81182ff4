package decision

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-resty/resty/v2"

	"autoswap/internal/model"
)

// ServiceError reports a failed or malformed analyst response. It is always
// recovered by falling back to the rule-based path.
type ServiceError struct {
	Reason string
	Err    error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decision service: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decision service: %s", e.Reason)
}

func (e *ServiceError) Unwrap() error { return e.Err }

type recommendation struct {
	Action     string   `json:"action"`
	Confidence float64  `json:"confidence"`
	Reasoning  []string `json:"reasoning"`
}

// AnalystClient asks an external recommendation endpoint for a decision.
type AnalystClient struct {
	client *resty.Client
	url    string
}

func NewAnalystClient(url string, timeout time.Duration) *AnalystClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := resty.New()
	client.SetTimeout(timeout)
	return &AnalystClient{client: client, url: url}
}

// Recommend posts the decision context and validates the response shape.
func (c *AnalystClient) Recommend(ctx context.Context, dctx Context) (model.TradingDecision, error) {
	var rec recommendation
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(dctx).
		SetResult(&rec).
		Post(c.url)
	if err != nil {
		return model.TradingDecision{}, &ServiceError{Reason: "request failed", Err: err}
	}
	if resp.IsError() {
		return model.TradingDecision{}, &ServiceError{Reason: fmt.Sprintf("status %d", resp.StatusCode())}
	}

	if !model.ValidAction(rec.Action) {
		return model.TradingDecision{}, &ServiceError{Reason: fmt.Sprintf("invalid action %q", rec.Action)}
	}
	if math.IsNaN(rec.Confidence) || math.IsInf(rec.Confidence, 0) {
		return model.TradingDecision{}, &ServiceError{Reason: "confidence is not a number"}
	}
	if rec.Reasoning == nil {
		return model.TradingDecision{}, &ServiceError{Reason: "reasoning list missing"}
	}

	confidence := rec.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return model.TradingDecision{
		Action:      model.Action(rec.Action),
		Confidence:  confidence,
		Amount:      dctx.TradeAmount,
		Reasoning:   rec.Reasoning,
		SlippagePct: defaultSlippagePct,
	}, nil
}
