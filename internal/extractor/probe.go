package extractor

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/dmaier/catalog-crawler/internal/catalog"
)

// LocalConfig tunes the in-process extraction backends.
type LocalConfig struct {
	UserAgent         string
	Timeout           time.Duration
	RenderMaxParallel int
}

// ProbeExtractor fetches a page without executing JavaScript and matches
// selectors locally. It is the fast path for pages that render server-side.
type ProbeExtractor struct {
	cfg       LocalConfig
	transport http.RoundTripper
}

// NewProbeExtractor builds the non-rendering local backend.
func NewProbeExtractor(cfg LocalConfig) *ProbeExtractor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &ProbeExtractor{
		cfg:       cfg,
		transport: newHTTPTransport(),
	}
}

// Extract fetches the page and returns the fragments matching the selectors.
func (p *ProbeExtractor) Extract(ctx context.Context, pageURL string, selectors []string, _ bool) ([]catalog.Fragment, error) {
	fragments, _, err := p.extract(ctx, pageURL, selectors)
	return fragments, err
}

// extract also returns the raw body so a caller can decide whether the page
// needs script execution.
func (p *ProbeExtractor) extract(ctx context.Context, pageURL string, selectors []string) ([]catalog.Fragment, []byte, error) {
	var (
		body     []byte
		fetchErr error
	)

	collector := colly.NewCollector()
	if p.cfg.UserAgent != "" {
		collector.UserAgent = p.cfg.UserAgent
	}
	collector.SetRequestTimeout(p.cfg.Timeout)
	collector.WithTransport(p.transport)

	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := p.visit(ctx, collector, pageURL); err != nil {
		return nil, nil, err
	}
	if fetchErr != nil {
		return nil, nil, fmt.Errorf("probe fetch %s: %w", pageURL, fetchErr)
	}

	fragments, err := matchFragments(string(body), selectors)
	if err != nil {
		return nil, nil, err
	}
	return fragments, body, nil
}

func (p *ProbeExtractor) visit(ctx context.Context, collector *colly.Collector, pageURL string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(pageURL)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("probe fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("probe visit %s: %w", pageURL, err)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
