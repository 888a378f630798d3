// Package cmd wires the catalog-crawler CLI.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dmaier/catalog-crawler/internal/config"
	"github.com/dmaier/catalog-crawler/internal/crawler"
	"github.com/dmaier/catalog-crawler/internal/extractor"
	"github.com/dmaier/catalog-crawler/internal/logging"
	"github.com/dmaier/catalog-crawler/internal/store"
)

var cfgFile string

type servicesKeyType string

const servicesKey servicesKeyType = "services"

// services bundles everything a subcommand needs. It is built once in
// PersistentPreRunE and torn down in PersistentPostRun.
type services struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *store.Store
	extractor extractor.Extractor
	cleanup   []func()
}

func (s *services) close() {
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
	if s.store != nil {
		s.store.Close()
	}
	if s.logger != nil {
		_ = s.logger.Sync()
	}
}

// newServices is a variable so tests can swap in a fake bundle.
var newServices = func(ctx context.Context) (*services, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	st, err := store.NewStore(ctx, store.Config{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		logger.Error("failed to connect to the catalog store", zap.Error(err))
		return nil, err
	}

	svc := &services{cfg: cfg, logger: logger, store: st}
	if svc.extractor, err = buildExtractor(cfg, logger, svc); err != nil {
		svc.close()
		return nil, err
	}
	return svc, nil
}

func buildExtractor(cfg config.Config, logger *zap.Logger, svc *services) (extractor.Extractor, error) {
	switch cfg.Extractor.Backend {
	case "service":
		return extractor.NewClient(extractor.ClientConfig{
			Endpoint: cfg.Extractor.Endpoint,
			APIKey:   cfg.Extractor.APIKey,
			Timeout:  cfg.ExtractorTimeout(),
			Retry:    extractor.NewFixedRetryPolicy(cfg.Extractor.MaxRetries, cfg.RetryDelay()),
		}, logger)
	case "local":
		local := extractor.LocalConfig{
			UserAgent:         cfg.Extractor.UserAgent,
			Timeout:           cfg.ExtractorTimeout(),
			RenderMaxParallel: cfg.Extractor.RenderMaxParallel,
		}
		probe := extractor.NewProbeExtractor(local)
		renderer := extractor.NewRenderExtractor(local)
		promoting := extractor.NewPromotingExtractor(probe, renderer, extractor.NewDetector(0, nil), logger)
		svc.cleanup = append(svc.cleanup, promoting.Close)
		return promoting, nil
	default:
		return nil, fmt.Errorf("unknown extractor backend %q", cfg.Extractor.Backend)
	}
}

func servicesFrom(cmd *cobra.Command) (*services, error) {
	svc, ok := cmd.Context().Value(servicesKey).(*services)
	if !ok || svc == nil {
		return nil, fmt.Errorf("application services are not initialized")
	}
	return svc, nil
}

func (s *services) newCrawler() (*crawler.Crawler, error) {
	return crawler.New(crawler.Config{
		BaseURL:         s.cfg.Crawler.BaseURL,
		StartPath:       s.cfg.Crawler.StartPath,
		SectionSelector: s.cfg.Crawler.SectionSelector,
		ProductSelector: s.cfg.Crawler.ProductSelector,
		MaxDepth:        s.cfg.Crawler.MaxDepth,
	}, s.extractor, s.store, s.logger)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog-crawler",
		Short: "Crawls a bestseller category tree and ingests its product listings.",
		Long: `catalog-crawler walks a retailer's bestseller hierarchy, persists the
category tree to Postgres, and ingests the product listings beneath each
category on demand.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newServices(cmd.Context())
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), servicesKey, svc))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if svc, ok := cmd.Context().Value(servicesKey).(*services); ok && svc != nil {
				svc.close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default reads CATALOG_* environment variables)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// Execute runs the CLI.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
