package extractor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dmaier/catalog-crawler/internal/catalog"
)

// matchFragments mirrors the service contract locally: every element
// matching a selector becomes one fragment carrying its trimmed text and
// outer HTML. Selectors are applied in order, so fragment order follows
// selector order then document order.
func matchFragments(pageHTML string, selectors []string) ([]catalog.Fragment, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}
	var out []catalog.Fragment
	for _, sel := range selectors {
		if sel == "" {
			continue
		}
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			outer, err := goquery.OuterHtml(s)
			if err != nil {
				return
			}
			out = append(out, catalog.Fragment{
				Text: strings.TrimSpace(s.Text()),
				HTML: outer,
			})
		})
	}
	return out, nil
}
