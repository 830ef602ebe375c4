// Package httpsolver implements the scheduler's stochastic-mode external
// solver boundary: a POST with the candidate job's setup distribution and
// a response picking which setup to commit to. It is an optional
// boundary hook; the scheduler's non-stochastic paths never call it.
package httpsolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Request is the body posted to the external solver: s are candidate
// setups' expected execution times, p their occurrence probabilities, d
// the job's deadline, e its elapsed/already-run time, max_e its max
// exec time bound, and distribution names the probability family the
// solver should assume (e.g. "lognormal").
type Request struct {
	S            []float64 `json:"s"`
	P            []float64 `json:"p"`
	D            float64   `json:"d"`
	E            float64   `json:"e"`
	MaxE         float64   `json:"max_e"`
	Distribution string    `json:"distribution"`
}

// Response is the solver's choice: Obj is its objective value, TC the
// expected tardiness cost under that choice, and X the index into
// Request.S it selected.
type Response struct {
	Obj float64 `json:"obj"`
	TC  float64 `json:"tc"`
	X   int     `json:"x"`
}

// Client posts stochastic-mode scheduling decisions to a configured URL.
type Client struct {
	url        string
	httpClient *http.Client
}

// New builds a Client. timeout bounds each request; zero selects 5s.
func New(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{url: url, httpClient: &http.Client{Timeout: timeout}}
}

// Solve posts req and decodes the solver's Response.
func (c *Client) Solve(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding solver request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building solver request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling external solver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("external solver returned status %d", resp.StatusCode)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding solver response: %w", err)
	}
	return &out, nil
}

// Stub is a deterministic in-process Solve that always picks the
// candidate with the lowest expected execution time, for tests and
// non-stochastic inputs that pass through the stochastic code path.
func Stub(req Request) *Response {
	if len(req.S) == 0 {
		return &Response{X: -1}
	}
	best := 0
	for i, s := range req.S {
		if s < req.S[best] {
			best = i
		}
	}
	return &Response{Obj: req.S[best], TC: 0, X: best}
}
