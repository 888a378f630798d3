// Package segment reconstructs discrete product records from the flat,
// unlabeled fragment stream a product-listing selector produces. The source
// page intermixes title, rating, and price text nodes with no record
// boundary markers, so records are rebuilt from content heuristics alone.
package segment

import (
	"strings"

	"github.com/dmaier/catalog-crawler/internal/catalog"
)

// Record is one product reassembled from consecutive fragments. Rating and
// Price stay nil when the listing omitted them.
type Record struct {
	Title  string
	Rating *string
	Price  *string
}

// Products splits an ordered fragment sequence into product records.
//
// A non-empty fragment containing neither "stars" nor "$" is a title and
// opens a new record, finalizing the one before it. A fragment containing
// "stars" is the open record's rating; one containing "$" is its price.
// The checks run in that order, so a fragment carrying both "stars" and "$"
// lands as a rating; that ambiguity matches the source pages observed so
// far. Fragments ahead of the first title are dropped, and the last open
// record is flushed at end of input: N titles in always yields N records
// out.
func Products(fragments []catalog.Fragment) []Record {
	var records []Record
	var open *Record

	for _, frag := range fragments {
		text := strings.TrimSpace(frag.Text)
		switch {
		case text == "":
			// Whitespace-only nodes carry no signal.
		case !strings.Contains(text, "stars") && !strings.Contains(text, "$"):
			if open != nil {
				records = append(records, *open)
			}
			open = &Record{Title: text}
		case strings.Contains(text, "stars"):
			if open != nil {
				open.Rating = &text
			}
		default:
			if open != nil {
				open.Price = &text
			}
		}
	}

	if open != nil {
		records = append(records, *open)
	}
	return records
}
