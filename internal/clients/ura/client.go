package ura

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ljtan/propertypulse/internal/modules/ingest"
)

// Data service identifiers
const (
	ServiceTransaction  = "PMI_Resi_Transaction"
	ServiceRentalMedian = "PMI_Resi_Rental"
)

// NumTransactionBatches is how many batches the transaction service splits
// the full project set into.
const NumTransactionBatches = 4

// tokenValidity is how long a daily token is trusted before requesting a
// fresh one. The provider issues day-scoped tokens; 23h keeps a safety
// margin.
const tokenValidity = 23 * time.Hour

// Client talks to the property data provider: daily access token exchange
// plus the batched transaction and rental data services. Responses are
// cached (when a cache is attached) so repeated rebuilds inside the TTL do
// not re-fetch.
type Client struct {
	baseURL   string
	accessKey string
	client    *http.Client
	cache     *Cache // optional
	log       zerolog.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a new data-service client. cache may be nil.
func NewClient(baseURL, accessKey string, cache *Cache, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		accessKey: accessKey,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		cache: cache,
		log:   log.With().Str("client", "ura").Logger(),
	}
}

// envelope is the provider's standard response wrapper.
type envelope struct {
	Status  string          `json:"Status"`
	Message string          `json:"Message"`
	Result  json.RawMessage `json:"Result"`
}

// FetchTransactionBatch returns the raw project objects of one transaction
// batch (1-based). Batches are independent: a caller may ingest whichever
// subset it managed to fetch.
func (c *Client) FetchTransactionBatch(ctx context.Context, batch int) ([]ingest.RawProject, error) {
	if batch < 1 || batch > NumTransactionBatches {
		return nil, fmt.Errorf("batch %d out of range 1..%d", batch, NumTransactionBatches)
	}

	raw, err := c.invoke(ctx, ServiceTransaction, "batch", fmt.Sprintf("%d", batch))
	if err != nil {
		return nil, err
	}

	var projects []ingest.RawProject
	if err := json.Unmarshal(raw, &projects); err != nil {
		return nil, fmt.Errorf("transaction batch %d: result is not a project array: %w", batch, err)
	}
	return projects, nil
}

// FetchRentals returns the raw rental project objects for one reference
// period (YYqN, e.g. "24q2").
func (c *Client) FetchRentals(ctx context.Context, refPeriod string) ([]ingest.RawRentalProject, error) {
	raw, err := c.invoke(ctx, ServiceRentalMedian, "refPeriod", refPeriod)
	if err != nil {
		return nil, err
	}

	var projects []ingest.RawRentalProject
	if err := json.Unmarshal(raw, &projects); err != nil {
		return nil, fmt.Errorf("rentals %s: result is not a project array: %w", refPeriod, err)
	}
	return projects, nil
}

// invoke runs one data-service call through the cache.
func (c *Client) invoke(ctx context.Context, service, paramKey, paramValue string) (json.RawMessage, error) {
	cacheRef := paramValue
	if c.cache != nil {
		if payload, ok := c.cache.Get(service, cacheRef); ok {
			c.log.Debug().Str("service", service).Str("ref", cacheRef).Msg("Cache hit")
			return payload, nil
		}
	}

	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/invokeUraDS?%s", c.baseURL, url.Values{
		"service":  []string{service},
		paramKey:   []string{paramValue},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("AccessKey", c.accessKey)
	req.Header.Set("Token", token)

	env, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s=%s: %w", service, paramKey, paramValue, err)
	}

	if c.cache != nil {
		c.cache.Put(service, cacheRef, env.Result)
	}
	return env.Result, nil
}

// ensureToken returns a valid daily token, requesting a new one when the
// cached token has expired.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/insertNewToken", nil)
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("AccessKey", c.accessKey)

	env, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}

	var token string
	if err := json.Unmarshal(env.Result, &token); err != nil || token == "" {
		return "", fmt.Errorf("token exchange: malformed token result")
	}

	c.token = token
	c.tokenExpiry = time.Now().Add(tokenValidity)
	c.log.Info().Msg("Obtained new access token")
	return token, nil
}

// do executes a request and validates the provider envelope. A non-Success
// status or a structurally invalid body fails fast with a descriptive
// error; partial aggregation of a broken response is never attempted.
func (c *Client) do(req *http.Request) (*envelope, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("malformed response envelope: %w", err)
	}
	if env.Status != "Success" {
		return nil, fmt.Errorf("service returned status %q: %s", env.Status, env.Message)
	}
	return &env, nil
}

// RecentRefPeriods returns the provider-format reference periods ("24q2")
// for the n most recent completed quarters, newest first.
func RecentRefPeriods(now time.Time, n int) []string {
	year, quarter := now.Year(), (int(now.Month())-1)/3+1
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		quarter--
		if quarter == 0 {
			quarter = 4
			year--
		}
		out = append(out, fmt.Sprintf("%02dq%d", year%100, quarter))
	}
	return out
}
