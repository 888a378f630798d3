package extractor

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"github.com/dmaier/catalog-crawler/internal/catalog"
)

// RenderExtractor executes the page's scripts in headless Chrome before
// matching selectors against the settled DOM.
type RenderExtractor struct {
	cfg         LocalConfig
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewRenderExtractor starts a Chrome allocator shared by all renders.
func NewRenderExtractor(cfg LocalConfig) *RenderExtractor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	var limiter chan struct{}
	if cfg.RenderMaxParallel > 0 {
		limiter = make(chan struct{}, cfg.RenderMaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &RenderExtractor{
		cfg:         cfg,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}
}

// Close shuts the browser allocator down.
func (r *RenderExtractor) Close() {
	r.allocCancel()
}

// Extract navigates with a headless browser, waits for the document to be
// ready, and matches selectors against the rendered DOM.
func (r *RenderExtractor) Extract(ctx context.Context, pageURL string, selectors []string, _ bool) ([]catalog.Fragment, error) {
	if err := r.acquire(ctx); err != nil {
		return nil, err
	}
	defer r.release()

	taskCtx, taskCancel := chromedp.NewContext(r.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, r.cfg.Timeout)
	defer cancel()

	tasks := chromedp.Tasks{}
	if r.cfg.UserAgent != "" {
		tasks = append(tasks, emulation.SetUserAgentOverride(r.cfg.UserAgent))
	}
	var pageHTML string
	tasks = append(tasks,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &pageHTML),
	)
	if err := chromedp.Run(taskCtx, tasks); err != nil {
		return nil, fmt.Errorf("render %s: %w", pageURL, err)
	}

	return matchFragments(pageHTML, selectors)
}

func (r *RenderExtractor) acquire(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	select {
	case r.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("render slot wait canceled: %w", ctx.Err())
	}
}

func (r *RenderExtractor) release() {
	if r.limiter == nil {
		return
	}
	<-r.limiter
}
