// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package lumen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/knowledge-engine/pkg/types"
)

const (
	defaultBaseURL = "https://open-wrapper.codenlighten.org"
	defaultModel   = "gpt-5-nano"
	defaultTimeout = 60 * time.Second
	queryPath      = "/api/query"
)

// Client talks to the Lumen gateway over HTTP. All calls for one engine
// run share the client's throttle, so concurrency never exceeds the
// gateway's pacing budget.
type Client struct {
	baseURL     string
	token       string
	model       string
	temperature float64
	http        *http.Client
	throttle    *Throttle
}

// NewClient builds a gateway client from config. Zero-valued fields fall
// back to defaults; the token is required for every call and is normally
// loaded from .secrets/lumen-token.
func NewClient(cfg types.QueryConfig) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	interval := cfg.CallInterval
	if interval == 0 {
		interval = DefaultCallInterval
	}

	return &Client{
		baseURL:     baseURL,
		token:       cfg.Token,
		model:       model,
		temperature: cfg.Temperature,
		http:        &http.Client{Timeout: timeout},
		throttle:    NewThrottle(interval),
	}
}

// envelope is the gateway's response wrapper: {data: {...}, usage: {...}}.
type envelope struct {
	Data struct {
		Response       string   `json:"response"`
		MissingContext []string `json:"missingContext"`
	} `json:"data"`
	Usage Usage  `json:"usage"`
	Error string `json:"error"`
}

// Query issues one gateway call. It waits on the shared throttle first, so
// callers may invoke it from any number of workers. Failures are classified
// into the APIError taxonomy; there is no automatic retry.
func (c *Client) Query(ctx context.Context, req Request) (*Result, error) {
	if err := c.throttle.Wait(ctx); err != nil {
		return nil, &APIError{Kind: KindTransport, Message: "cancelled before call", Err: err}
	}

	if req.Model == "" {
		req.Model = c.model
	}
	if req.Temperature == 0 {
		req.Temperature = c.temperature
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &APIError{Kind: KindValidation, Message: "encoding request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+queryPath, bytes.NewReader(body))
	if err != nil {
		return nil, &APIError{Kind: KindTransport, Message: "building request", Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &APIError{Kind: KindTransport, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Kind: KindTransport, Status: resp.StatusCode, Message: "reading response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, raw)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &APIError{Kind: KindValidation, Status: resp.StatusCode, Message: "decoding response envelope", Err: err}
	}
	if env.Error != "" {
		return nil, &APIError{Kind: KindValidation, Status: resp.StatusCode, Message: env.Error}
	}

	return &Result{
		Response:       env.Data.Response,
		MissingContext: env.Data.MissingContext,
		Usage:          env.Usage,
		Raw:            json.RawMessage(raw),
	}, nil
}

// classifyStatus maps HTTP failures onto the error taxonomy.
func classifyStatus(status int, body []byte) *APIError {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &APIError{Kind: KindAuth, Status: status, Message: msg}
	case status == http.StatusTooManyRequests:
		return &APIError{Kind: KindRateLimit, Status: status, Message: msg}
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return &APIError{Kind: KindValidation, Status: status, Message: msg}
	default:
		return &APIError{Kind: KindTransport, Status: status, Message: fmt.Sprintf("unexpected status: %s", msg)}
	}
}
