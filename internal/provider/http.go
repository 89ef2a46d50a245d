package provider

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"goquant/internal/errors"
	"goquant/internal/risk"
	"goquant/pkg/utils"
)

// HTTPConfig holds configuration for an HTTP provider.
type HTTPConfig struct {
	Name     string
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// HTTPProvider adapts a REST calculation service to the Provider
// contract. Batches are POSTed to /v1/calculate; pending batch-mode
// results are collected from /v1/results.
type HTTPProvider struct {
	cfg    HTTPConfig
	client *resty.Client
}

// NewHTTPProvider creates an HTTP provider.
func NewHTTPProvider(cfg HTTPConfig) *HTTPProvider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &HTTPProvider{cfg: cfg, client: client}
}

func (p *HTTPProvider) Name() string { return p.cfg.Name }

type calculatePayload struct {
	Requests []BatchRequest `json:"requests"`
}

type resultsPayload struct {
	Results []batchResultDTO `json:"results"`
}

type batchResultDTO struct {
	RequestID string     `json:"requestId"`
	Pending   bool       `json:"pending"`
	Points    []pointDTO `json:"points,omitempty"`
}

type pointDTO struct {
	Position    int      `json:"position"`
	Measure     int      `json:"measure"`
	DateMarket  int      `json:"dateMarket"`
	Value       *float64 `json:"value,omitempty"`
	StringValue string   `json:"stringValue,omitempty"`
	Error       string   `json:"error,omitempty"`
}

func (d batchResultDTO) toBatchResult() BatchResult {
	res := BatchResult{
		RequestID: d.RequestID,
		Pending:   d.Pending,
		Points:    make(map[ResultCoord]risk.Result, len(d.Points)),
	}
	for _, pt := range d.Points {
		coord := ResultCoord{Position: pt.Position, Measure: pt.Measure, DateMarket: pt.DateMarket}
		switch {
		case pt.Error != "":
			res.Points[coord] = risk.ErrorResult{Message: pt.Error}
		case pt.Value != nil:
			res.Points[coord] = risk.ScalarResult(*pt.Value)
		default:
			res.Points[coord] = risk.StringResult(pt.StringValue)
		}
	}
	return res
}

// CalcMulti submits the batches to the calculation service.
func (p *HTTPProvider) CalcMulti(ctx context.Context, reqs []BatchRequest) ([]BatchResult, error) {
	var payload resultsPayload
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(calculatePayload{Requests: reqs}).
		SetResult(&payload).
		Post("/v1/calculate")
	if err != nil {
		return nil, errors.Wrapf(err, "calc_multi [%s]", p.cfg.Name)
	}
	if resp.IsError() {
		return nil, errors.NewProviderError(p.cfg.Name, resp.Status(), strings.TrimSpace(resp.String()), nil)
	}

	results := make([]BatchResult, 0, len(payload.Results))
	for _, dto := range payload.Results {
		results = append(results, dto.toBatchResult())
	}
	return results, nil
}

// GetResults collects completed batch-mode results by request ID. The
// collection call is idempotent, so transient transport errors are
// retried with backoff before surfacing to the poll loop.
func (p *HTTPProvider) GetResults(ctx context.Context, pending map[string]BatchRequest) (map[string]BatchResult, error) {
	ids := make([]string, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}

	var payload resultsPayload
	var resp *resty.Response
	err := utils.Retry(ctx, utils.DefaultRetryConfig(), func() error {
		var reqErr error
		resp, reqErr = p.client.R().
			SetContext(ctx).
			SetQueryParam("ids", strings.Join(ids, ",")).
			SetResult(&payload).
			Get("/v1/results")
		return reqErr
	})
	if err != nil {
		return nil, errors.Wrapf(err, "get_results [%s]", p.cfg.Name)
	}
	if resp.IsError() {
		return nil, errors.NewProviderError(p.cfg.Name, resp.Status(), strings.TrimSpace(resp.String()), nil)
	}

	out := make(map[string]BatchResult, len(payload.Results))
	for _, dto := range payload.Results {
		if dto.Pending {
			continue
		}
		out[dto.RequestID] = dto.toBatchResult()
	}
	return out, nil
}
