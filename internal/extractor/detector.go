package extractor

import (
	"bytes"
	"strings"
)

// Signals commonly left behind by client-side rendering frameworks.
var defaultRenderKeywords = []string{
	"__NEXT_DATA__",
	"data-reactroot",
	"ng-app",
	"window.__APOLLO_STATE__",
}

// Detector decides whether an empty probe result means the page is
// script-rendered and worth escalating to the rendering backend.
type Detector struct {
	minHTMLBytes int
	keywords     [][]byte
}

// NewDetector constructs a Detector. Zero minBytes disables the size check;
// an empty keyword list falls back to the framework-marker defaults.
func NewDetector(minBytes int, keywords []string) *Detector {
	if len(keywords) == 0 {
		keywords = defaultRenderKeywords
	}
	lowered := make([][]byte, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		lowered = append(lowered, bytes.ToLower([]byte(kw)))
	}
	return &Detector{minHTMLBytes: minBytes, keywords: lowered}
}

// NeedsRender inspects the raw body for signs that script execution is
// required to populate the page.
func (d *Detector) NeedsRender(body []byte) bool {
	if d == nil {
		return false
	}
	if d.minHTMLBytes > 0 && len(body) < d.minHTMLBytes {
		return true
	}
	return d.containsKeywords(body)
}

func (d *Detector) containsKeywords(body []byte) bool {
	if len(body) == 0 || len(d.keywords) == 0 {
		return false
	}
	lowerBody := bytes.ToLower(body)
	for _, kw := range d.keywords {
		if bytes.Contains(lowerBody, kw) {
			return true
		}
	}
	return false
}
