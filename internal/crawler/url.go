package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var hrefPattern = regexp.MustCompile(`href="([^"]+)"`)

// ResolveAnchor pulls the first anchor href out of a raw HTML fragment and
// returns it as an absolute URL. Relative targets are resolved against
// base; fragments without an anchor yield "". Only the first href counts:
// section entries carry at most one meaningful link and anything after it
// is decoration.
func ResolveAnchor(htmlFragment, base string) string {
	match := hrefPattern.FindStringSubmatch(htmlFragment)
	if match == nil {
		return ""
	}
	href := match[1]
	if strings.HasPrefix(href, "http") {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(ref).String()
}

// NormalizeURL standardizes a URL so the store's uniqueness constraint
// catches re-discoveries. It lowercases the scheme and host, strips default
// ports and fragments, and sorts query parameters.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Fragment = ""

	q := u.Query()
	u.RawQuery = q.Encode()

	return u.String(), nil
}
