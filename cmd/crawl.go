package cmd

import (
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dmaier/catalog-crawler/internal/crawler"
	"github.com/dmaier/catalog-crawler/internal/progress"
	"github.com/dmaier/catalog-crawler/internal/progress/sinks"
)

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Walk the bestseller category tree and persist every category found.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := servicesFrom(cmd)
			if err != nil {
				return err
			}

			if err := svc.store.EnsureSchema(cmd.Context()); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}

			promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
			if err != nil {
				return fmt.Errorf("register crawl metrics: %w", err)
			}
			trackerSinks := []progress.Sink{
				sinks.NewLogSink(svc.logger),
				promSink,
			}

			c, err := crawler.New(crawler.Config{
				BaseURL:         svc.cfg.Crawler.BaseURL,
				StartPath:       svc.cfg.Crawler.StartPath,
				SectionSelector: svc.cfg.Crawler.SectionSelector,
				ProductSelector: svc.cfg.Crawler.ProductSelector,
				MaxDepth:        svc.cfg.Crawler.MaxDepth,
			}, svc.extractor, svc.store, svc.logger, trackerSinks...)
			if err != nil {
				return err
			}

			tracker, runErr := c.Run(cmd.Context())
			tracker.Close(cmd.Context())

			printSnapshot(cmd, tracker)
			if runErr != nil {
				svc.logger.Error("crawl did not complete", zap.Error(runErr))
				return runErr
			}
			return nil
		},
	}
}

func printSnapshot(cmd *cobra.Command, tracker *progress.Tracker) {
	snap := tracker.Snapshot()
	if len(snap) == 0 {
		cmd.Println("no categories discovered")
		return
	}

	depths := make([]int, 0, len(snap))
	for depth := range snap {
		depths = append(depths, depth)
	}
	sort.Ints(depths)

	cmd.Printf("run %s\n", tracker.RunID())
	for _, depth := range depths {
		cmd.Printf("  depth %d: %d categories\n", depth, snap[depth].Total)
	}
}
