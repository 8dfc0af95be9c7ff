// Package grafana exposes Prometheus usage queries through the Grafana
// datasource proxy API. All requests pass through a circuit breaker so a
// flapping monitoring backend degrades into tool errors instead of stalling
// sessions.
package grafana

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sretools/remedian/internal/resilience"
)

// Config carries the connection settings for a Grafana instance.
type Config struct {
	// BaseURL is the Grafana root, e.g. "https://grafana.example.com/".
	BaseURL string
	// Token is a service-account token sent as a bearer credential.
	Token string
	// Datasource selects the Prometheus datasource by uid or name. Empty
	// picks the first datasource of type "prometheus".
	Datasource string
}

// Client talks to the Grafana HTTP API.
type Client struct {
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	cfg        Config

	mu           sync.Mutex
	datasourceID int
	resolved     bool
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCircuitBreaker replaces the default breaker.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

// NewClient builds a Grafana client for the given instance.
func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		breaker:    resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "grafana"}),
		cfg:        cfg,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping verifies the instance is reachable and a Prometheus datasource exists.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.datasource(ctx)
	return err
}

type datasourceInfo struct {
	ID   int    `json:"id"`
	UID  string `json:"uid"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// datasource resolves and caches the numeric id of the configured Prometheus
// datasource. The lookup runs outside the lock so concurrent first calls do
// not serialize behind one network round trip; losers of the race just store
// the same id again.
func (c *Client) datasource(ctx context.Context) (int, error) {
	c.mu.Lock()
	if c.resolved {
		id := c.datasourceID
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	var body []byte
	err := c.breaker.Execute(func() error {
		var err error
		body, err = c.get(ctx, "api/datasources")
		return err
	})
	if err != nil {
		return 0, err
	}

	var datasources []datasourceInfo
	if err := json.Unmarshal(body, &datasources); err != nil {
		return 0, fmt.Errorf("decoding datasource list: %w", err)
	}
	id, found := pickDatasource(datasources, c.cfg.Datasource)
	if !found {
		return 0, fmt.Errorf("no matching Prometheus datasource in Grafana (wanted %q)", c.cfg.Datasource)
	}

	c.mu.Lock()
	c.datasourceID = id
	c.resolved = true
	c.mu.Unlock()
	return id, nil
}

// pickDatasource matches by uid or name, or falls back to the first
// Prometheus datasource when no selector is configured.
func pickDatasource(datasources []datasourceInfo, selector string) (int, bool) {
	for _, ds := range datasources {
		if selector != "" {
			if ds.UID == selector || ds.Name == selector {
				return ds.ID, true
			}
			continue
		}
		if ds.Type == "prometheus" {
			return ds.ID, true
		}
	}
	return 0, false
}

// series is a single Prometheus time series from a range query.
type series struct {
	Metric map[string]string `json:"metric"`
	Values []datapoint       `json:"values"`
}

// datapoint is one [timestamp, value] pair. Prometheus encodes the value as a
// string.
type datapoint struct {
	Timestamp int64
	Value     float64
}

func (d *datapoint) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var ts float64
	if err := json.Unmarshal(raw[0], &ts); err != nil {
		return fmt.Errorf("datapoint timestamp: %w", err)
	}
	d.Timestamp = int64(ts)
	var value string
	if err := json.Unmarshal(raw[1], &value); err != nil {
		return fmt.Errorf("datapoint value: %w", err)
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("datapoint value: %w", err)
	}
	d.Value = v
	return nil
}

type rangeResponse struct {
	Status string `json:"status"`
	Data   struct {
		ResultType string   `json:"resultType"`
		Result     []series `json:"result"`
	} `json:"data"`
}

// queryRange runs a PromQL range query through the datasource proxy.
func (c *Client) queryRange(ctx context.Context, promql string, from, to, step int64) ([]series, error) {
	id, err := c.datasource(ctx)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("api/datasources/proxy/%d/api/v1/query_range?query=%s&start=%d&end=%d&step=%d",
		id, url.QueryEscape(promql), from, to, step)

	var body []byte
	err = c.breaker.Execute(func() error {
		var err error
		body, err = c.get(ctx, path)
		return err
	})
	if err != nil {
		return nil, err
	}

	var resp rangeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding range query response: %w", err)
	}
	if resp.Status != "success" {
		return nil, fmt.Errorf("range query returned status %q", resp.Status)
	}
	return resp.Data.Result, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	target := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/" + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query failed: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
