package api

import (
	"context"
	"net/url"
	"strings"

	"github.com/dreamware/shardrisk/internal/risk"
)

// Client talks to a riskd service.
type Client struct {
	BaseURL string
}

// NewClient returns a client for the service at baseURL, e.g. "http://localhost:8090".
func NewClient(baseURL string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/")}
}

// Estimate evaluates p remotely; the returned report carries its stored ID.
func (c *Client) Estimate(ctx context.Context, p risk.Params) (risk.Report, error) {
	var report risk.Report
	err := PostJSON(ctx, c.BaseURL+"/estimate", p, &report)
	return report, err
}

func (c *Client) Aggregate(ctx context.Context, req AggregateRequest) (AggregateResponse, error) {
	var resp AggregateResponse
	err := PostJSON(ctx, c.BaseURL+"/aggregate", req, &resp)
	return resp, err
}

func (c *Client) Sweep(ctx context.Context, req SweepRequest) (SweepResponse, error) {
	var resp SweepResponse
	err := PostJSON(ctx, c.BaseURL+"/sweep", req, &resp)
	return resp, err
}

// Reports lists every report the service has stored, oldest first.
func (c *Client) Reports(ctx context.Context) (ReportsResponse, error) {
	var resp ReportsResponse
	err := GetJSON(ctx, c.BaseURL+"/reports", &resp)
	return resp, err
}

func (c *Client) Report(ctx context.Context, id string) (risk.Report, error) {
	var report risk.Report
	err := GetJSON(ctx, c.BaseURL+"/reports/"+url.PathEscape(id), &report)
	return report, err
}

// Delete removes a stored report. Deleting an unknown id is not an error.
func (c *Client) Delete(ctx context.Context, id string) error {
	return Delete(ctx, c.BaseURL+"/reports/"+url.PathEscape(id))
}
