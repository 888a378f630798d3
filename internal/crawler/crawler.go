// Package crawler walks a site's bestseller category hierarchy and ingests
// the product listings under its leaves.
package crawler

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dmaier/catalog-crawler/internal/catalog"
	"github.com/dmaier/catalog-crawler/internal/extractor"
	"github.com/dmaier/catalog-crawler/internal/progress"
	"github.com/dmaier/catalog-crawler/internal/segment"
)

// DefaultMaxDepth is the category-tree depth cutoff. The bestseller
// hierarchy carries three meaningful levels; anything deeper is pagination
// noise.
const DefaultMaxDepth = 3

// CatalogStore is the persistence surface the crawler drives.
type CatalogStore interface {
	InsertCategory(ctx context.Context, name, url string, parentID *int64) (*int64, error)
	InsertProduct(ctx context.Context, title string, rating, price *string, categoryID int64) error
	GetCategory(ctx context.Context, id int64) (catalog.Category, error)
	DeleteProducts(ctx context.Context, categoryID int64) (int64, error)
}

// Config holds the settings for a crawl session, decoupled from Viper so
// the crawler stays testable on its own.
type Config struct {
	BaseURL         string
	StartPath       string
	SectionSelector string
	ProductSelector string
	MaxDepth        int
}

// Crawler expands the category tree depth-first and persists every node the
// moment it is discovered, so progress survives a failure partway through.
type Crawler struct {
	cfg       Config
	extractor extractor.Extractor
	store     CatalogStore
	logger    *zap.Logger
	sinks     []progress.Sink
}

// New builds a Crawler.
func New(cfg Config, ex extractor.Extractor, store CatalogStore, logger *zap.Logger, sinks ...progress.Sink) (*Crawler, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if cfg.SectionSelector == "" {
		return nil, fmt.Errorf("section selector is required")
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{
		cfg:       cfg,
		extractor: ex,
		store:     store,
		logger:    logger,
		sinks:     sinks,
	}, nil
}

// StartURL is the root page the tree walk begins from.
func (c *Crawler) StartURL() string {
	return strings.TrimSuffix(c.cfg.BaseURL, "/") + "/" + strings.TrimPrefix(c.cfg.StartPath, "/")
}

// Run crawls the whole category tree and returns the tracker holding the
// final per-depth counts. Categories persisted before a failure stay in the
// store; the error unwinds the entire walk.
func (c *Crawler) Run(ctx context.Context) (*progress.Tracker, error) {
	runID := uuid.New()
	tracker := progress.NewTracker(runID, c.logger, c.sinks...)
	startURL := c.StartURL()

	c.logger.Info("starting catalog crawl",
		zap.String("run_id", runID.String()),
		zap.String("url", startURL),
		zap.Int("max_depth", c.cfg.MaxDepth),
	)
	tracker.RunStarted(ctx, startURL)

	err := c.crawl(ctx, tracker, startURL, 1, nil)
	tracker.RunFinished(ctx, err)
	if err != nil {
		return tracker, fmt.Errorf("crawl %s: %w", startURL, err)
	}
	return tracker, nil
}

// crawl expands one category page. depth counts from 1 at the root; the
// walk is depth-first so a subtree completes before its next sibling
// starts.
func (c *Crawler) crawl(ctx context.Context, tracker *progress.Tracker, pageURL string, depth int, parentID *int64) error {
	if depth > c.cfg.MaxDepth {
		return nil
	}

	c.logger.Debug("expanding category page",
		zap.String("url", pageURL),
		zap.Int("depth", depth),
	)

	// Subcategory lists are script-rendered on the source site.
	fragments, err := c.extractor.Extract(ctx, pageURL, []string{c.cfg.SectionSelector}, true)
	if err != nil {
		return err
	}
	if len(fragments) == 0 {
		// Nothing matched: a leaf page, not an error.
		return nil
	}

	for _, frag := range fragments {
		name := strings.TrimSpace(frag.Text)
		childURL := ResolveAnchor(frag.HTML, c.cfg.BaseURL)
		if childURL == "" {
			// Non-link entries show up in section lists; skip them.
			continue
		}
		if normalized, err := NormalizeURL(childURL); err == nil {
			childURL = normalized
		}

		counts := tracker.NodeFound(ctx, depth, name, childURL)
		c.logger.Info("category discovered",
			zap.String("name", name),
			zap.String("url", childURL),
			zap.Int("depth", depth),
			zap.Int("current", counts.Current),
		)

		id, err := c.store.InsertCategory(ctx, name, childURL, parentID)
		if err != nil {
			return fmt.Errorf("persist category %q: %w", name, err)
		}
		if id == nil {
			// URL already stored: the subtree hangs off the earlier row, so
			// recursing here would attach children to nothing.
			c.logger.Info("category already known, skipping subtree",
				zap.String("url", childURL),
			)
			continue
		}

		if err := c.crawl(ctx, tracker, childURL, depth+1, id); err != nil {
			return err
		}
	}
	return nil
}

// IngestProducts re-scrapes the product listings for one category,
// replacing whatever was stored for it before. It returns the number of
// records inserted.
func (c *Crawler) IngestProducts(ctx context.Context, categoryID int64) (int, error) {
	cat, err := c.store.GetCategory(ctx, categoryID)
	if err != nil {
		return 0, fmt.Errorf("look up category %d: %w", categoryID, err)
	}

	removed, err := c.store.DeleteProducts(ctx, categoryID)
	if err != nil {
		return 0, fmt.Errorf("clear products for category %d: %w", categoryID, err)
	}
	if removed > 0 {
		c.logger.Info("replaced previous ingestion",
			zap.Int64("category_id", categoryID),
			zap.Int64("removed", removed),
		)
	}

	fragments, err := c.extractor.Extract(ctx, cat.URL, []string{c.cfg.ProductSelector}, false)
	if err != nil {
		return 0, err
	}

	records := segment.Products(fragments)
	for _, rec := range records {
		if err := c.store.InsertProduct(ctx, rec.Title, rec.Rating, rec.Price, categoryID); err != nil {
			return 0, fmt.Errorf("persist product %q: %w", rec.Title, err)
		}
	}

	c.logger.Info("products ingested",
		zap.Int64("category_id", categoryID),
		zap.String("category", cat.Name),
		zap.Int("count", len(records)),
	)
	return len(records), nil
}
