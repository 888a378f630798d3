package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dmaier/catalog-crawler/internal/catalog"
)

// ClientConfig controls the extraction-service client.
type ClientConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	Retry    FixedRetryPolicy
}

// Client implements Extractor against the hosted page-extraction API. The
// service fetches the page (optionally rendering its scripts) and returns
// the text and HTML of every element matching the requested selectors.
type Client struct {
	cfg    ClientConfig
	http   *http.Client
	logger *zap.Logger
}

// NewClient builds a service-backed Extractor.
func NewClient(cfg ClientConfig, logger *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("extractor endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("extractor api key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = NewFixedRetryPolicy(0, 0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// Wire types for the extraction-service request/response contract.
type element struct {
	Type     string `json:"type"`
	Selector string `json:"selector"`
	HTML     bool   `json:"html"`
}

type extractRequest struct {
	APIKey       string    `json:"api_key"`
	URL          string    `json:"url"`
	Elements     []element `json:"elements"`
	JSONResponse bool      `json:"json_response"`
	RenderJS     bool      `json:"render_js"`
}

type extractResult struct {
	Text string `json:"text"`
	HTML string `json:"html"`
}

type extractSelection struct {
	Results []extractResult `json:"results"`
}

type extractResponse struct {
	Data []extractSelection `json:"data"`
}

// fragments flattens the per-selector result sets. A missing or empty data
// array means nothing on the page matched; that is not an error.
func (r extractResponse) fragments() []catalog.Fragment {
	var out []catalog.Fragment
	for _, sel := range r.Data {
		for _, res := range sel.Results {
			out = append(out, catalog.Fragment{Text: res.Text, HTML: res.HTML})
		}
	}
	return out
}

// Extract posts the extraction request, retrying transient failures under
// the fixed policy. Exhausting the policy yields a *FetchError carrying the
// attempt count.
func (c *Client) Extract(ctx context.Context, pageURL string, selectors []string, render bool) ([]catalog.Fragment, error) {
	if len(selectors) == 0 {
		return nil, fmt.Errorf("at least one selector is required")
	}
	elements := make([]element, 0, len(selectors))
	for _, sel := range selectors {
		elements = append(elements, element{Type: "css", Selector: sel, HTML: true})
	}
	body, err := json.Marshal(extractRequest{
		APIKey:       c.cfg.APIKey,
		URL:          pageURL,
		Elements:     elements,
		JSONResponse: true,
		RenderJS:     render,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal extract request: %w", err)
	}

	attempts := 0
	var lastErr error
	for {
		attempts++
		fragments, err := c.post(ctx, body)
		if err == nil {
			return fragments, nil
		}
		lastErr = err
		c.logger.Warn("extract attempt failed",
			zap.String("url", pageURL),
			zap.Int("attempt", attempts),
			zap.Error(err),
		)
		if !c.cfg.Retry.ShouldRetry(err, attempts) {
			break
		}
		if waitErr := c.cfg.Retry.Wait(ctx); waitErr != nil {
			lastErr = waitErr
			break
		}
	}
	return nil, &FetchError{URL: pageURL, Attempts: attempts, Err: lastErr}
}

func (c *Client) post(ctx context.Context, body []byte) ([]catalog.Fragment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build extract request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post extract request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction service returned status %d", resp.StatusCode)
	}

	var decoded extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode extract response: %w", err)
	}
	return decoded.fragments(), nil
}
