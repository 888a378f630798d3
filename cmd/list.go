package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Inspect the stored catalog.",
	}
	cmd.AddCommand(newListCategoriesCmd())
	cmd.AddCommand(newListChildrenCmd())
	cmd.AddCommand(newListProductsCmd())
	return cmd
}

func newListCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List every stored category with its parent.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := servicesFrom(cmd)
			if err != nil {
				return err
			}
			cats, err := svc.store.ListCategories(cmd.Context())
			if err != nil {
				return err
			}
			for _, cat := range cats {
				parent := "-"
				if cat.ParentName != nil {
					parent = *cat.ParentName
				}
				cmd.Printf("%d\t%s\t(parent: %s)\t%s\n", cat.ID, cat.Name, parent, cat.URL)
			}
			return nil
		},
	}
}

func newListChildrenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "children [parent-id]",
		Short: "List the direct children of a category, or the roots when no id is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := servicesFrom(cmd)
			if err != nil {
				return err
			}

			var parentID *int64
			if len(args) == 1 {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("parent id must be an integer: %w", err)
				}
				parentID = &id
			}

			cats, err := svc.store.ListChildren(cmd.Context(), parentID)
			if err != nil {
				return err
			}
			for _, cat := range cats {
				cmd.Printf("%d\t%s\t%s\n", cat.ID, cat.Name, cat.URL)
			}
			return nil
		},
	}
}

func newListProductsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "products <category-id>",
		Short: "List the stored products for a category.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := servicesFrom(cmd)
			if err != nil {
				return err
			}

			categoryID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("category id must be an integer: %w", err)
			}

			products, err := svc.store.ListProducts(cmd.Context(), categoryID)
			if err != nil {
				return err
			}
			for _, p := range products {
				rating, price := "-", "-"
				if p.Rating != nil {
					rating = *p.Rating
				}
				if p.Price != nil {
					price = *p.Price
				}
				cmd.Printf("%d\t%s\t%s\t%s\n", p.ID, p.Title, rating, price)
			}
			return nil
		},
	}
}
