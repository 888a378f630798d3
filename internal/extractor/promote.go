package extractor

import (
	"context"

	"go.uber.org/zap"

	"github.com/dmaier/catalog-crawler/internal/catalog"
)

// PromotingExtractor is the local counterpart of the extraction service: it
// probes without JavaScript first and escalates to the headless renderer
// when the caller requested rendering, or when the probe came back empty on
// a page that looks script-driven.
type PromotingExtractor struct {
	probe    *ProbeExtractor
	renderer *RenderExtractor
	detector *Detector
	logger   *zap.Logger
}

// NewPromotingExtractor wires the probe/render pair. renderer may be nil, in
// which case every request is served by the probe alone.
func NewPromotingExtractor(probe *ProbeExtractor, renderer *RenderExtractor, detector *Detector, logger *zap.Logger) *PromotingExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromotingExtractor{
		probe:    probe,
		renderer: renderer,
		detector: detector,
		logger:   logger,
	}
}

// Extract satisfies Extractor.
func (p *PromotingExtractor) Extract(ctx context.Context, pageURL string, selectors []string, render bool) ([]catalog.Fragment, error) {
	if render && p.renderer != nil {
		return p.renderer.Extract(ctx, pageURL, selectors, render)
	}

	fragments, body, err := p.probe.extract(ctx, pageURL, selectors)
	if err != nil {
		return nil, err
	}
	if len(fragments) == 0 && p.renderer != nil && p.detector.NeedsRender(body) {
		p.logger.Info("probe found nothing on a script-driven page, rendering",
			zap.String("url", pageURL),
		)
		return p.renderer.Extract(ctx, pageURL, selectors, true)
	}
	return fragments, nil
}

// Close releases the renderer's browser resources.
func (p *PromotingExtractor) Close() {
	if p.renderer != nil {
		p.renderer.Close()
	}
}
