// Package catalog defines the domain types shared across the crawler,
// parser, and store.
package catalog

// Category is one node in the site's product-grouping hierarchy. Categories
// form a forest: top-level nodes carry a nil ParentID.
type Category struct {
	ID       int64
	Name     string
	URL      string
	ParentID *int64
}

// CategorySummary is a Category joined with its parent's display name.
type CategorySummary struct {
	Category
	ParentName *string
}

// Product is a single catalog listing tied to exactly one category. Rating
// and Price are pointers because the source page may omit either field.
type Product struct {
	ID         int64
	Title      string
	Rating     *string
	Price      *string
	CategoryID int64
}

// Fragment is one scraped snippet matched by a selector on a page.
type Fragment struct {
	Text string
	HTML string
}
