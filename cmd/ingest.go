package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newIngestCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "ingest <category-id>",
		Short: "Scrape and store the product listings for one category.",
		Long: `ingest fetches the product listings under the given category and stores
them. Any products previously stored for the category are replaced; when
some already exist, the replacement must be confirmed with --yes or
interactively.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := servicesFrom(cmd)
			if err != nil {
				return err
			}

			categoryID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("category id must be an integer: %w", err)
			}

			existing, err := svc.store.CountProducts(cmd.Context(), categoryID)
			if err != nil {
				return fmt.Errorf("count products: %w", err)
			}
			if existing > 0 && !yes {
				cmd.Printf("category %d already has %d products; replace them? [y/N] ", categoryID, existing)
				var answer string
				_, _ = fmt.Fscanln(cmd.InOrStdin(), &answer)
				if answer != "y" && answer != "Y" {
					cmd.Println("aborted")
					return nil
				}
			}

			c, err := svc.newCrawler()
			if err != nil {
				return err
			}

			count, err := c.IngestProducts(cmd.Context(), categoryID)
			if err != nil {
				return err
			}
			cmd.Printf("stored %d products for category %d\n", count, categoryID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "replace existing products without prompting")
	return cmd
}
