package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dreamware/shardrisk/internal/risk"
	"github.com/dreamware/shardrisk/internal/storage"
	"github.com/dreamware/shardrisk/internal/sweep"
)

// AggregateRequest asks for the system estimate of a known shard probability.
type AggregateRequest struct {
	Probability float64 `json:"probability"`
	Shards      int     `json:"shards"`
}

type AggregateResponse struct {
	Exact            float64 `json:"exact"`
	Approx           float64 `json:"approx"`
	ApproxExceedsOne bool    `json:"approx_exceeds_one"`
}

// SweepRequest evaluates a grid. A positive Budget also selects the largest
// shard count whose exact system probability stays within it.
type SweepRequest struct {
	Grid   sweep.Grid `json:"grid"`
	Budget float64    `json:"budget,omitempty"`
}

type SweepResponse struct {
	Reports []risk.Report `json:"reports"`
	Best    *risk.Report  `json:"best,omitempty"`
}

type ReportsResponse struct {
	Reports []risk.Report      `json:"reports"`
	Stats   storage.StoreStats `json:"stats"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusError is returned by the helpers for any non-2xx response.
type StatusError struct {
	URL     string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %s: %d", e.URL, e.Code)
	}
	return fmt.Sprintf("http %s: %d: %s", e.URL, e.Code, e.Message)
}

var httpClient = &http.Client{Timeout: 5 * time.Second}

func PostJSON(ctx context.Context, url string, body any, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return do(req, out)
}

func GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return do(req, out)
}

// Delete issues a DELETE to url. Any 2xx response is success.
func Delete(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	return do(req, nil)
}

func do(req *http.Request, out any) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		statusErr := &StatusError{URL: req.URL.String(), Code: resp.StatusCode}
		var body ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&body) == nil {
			statusErr.Message = body.Error
		}
		return statusErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
