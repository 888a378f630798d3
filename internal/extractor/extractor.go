// Package extractor fetches HTML/text fragments matching CSS selectors,
// either through a hosted page-extraction service or with local backends.
package extractor

import (
	"context"
	"fmt"

	"github.com/dmaier/catalog-crawler/internal/catalog"
)

// Extractor returns the fragments matching the given selectors on a page.
// A nil slice with a nil error means nothing matched; render asks the
// backend to execute the page's scripts before selecting.
type Extractor interface {
	Extract(ctx context.Context, pageURL string, selectors []string, render bool) ([]catalog.Fragment, error)
}

// FetchError is the terminal failure returned once every retry attempt for
// a page has been exhausted.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
