package extractor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const categoryPage = `<html><body>
<div class="section"><a href="/c/books">Books</a></div>
<div class="section"><a href="/c/games">Games</a></div>
<div class="other">ignored</div>
</body></html>`

func TestMatchFragments(t *testing.T) {
	t.Parallel()

	fragments, err := matchFragments(categoryPage, []string{".section"})
	require.NoError(t, err)
	require.Len(t, fragments, 2)
	assert.Equal(t, "Books", fragments[0].Text)
	assert.Contains(t, fragments[0].HTML, `href="/c/books"`)
	assert.Equal(t, "Games", fragments[1].Text)
}

func TestMatchFragmentsNoMatches(t *testing.T) {
	t.Parallel()

	fragments, err := matchFragments(categoryPage, []string{".missing"})
	require.NoError(t, err)
	assert.Empty(t, fragments)
}

func TestProbeExtractorFetchesAndMatches(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(categoryPage))
	}))
	defer server.Close()

	probe := NewProbeExtractor(LocalConfig{UserAgent: "test-agent", Timeout: 5 * time.Second})
	fragments, err := probe.Extract(context.Background(), server.URL, []string{".section"}, false)
	require.NoError(t, err)
	require.Len(t, fragments, 2)
	assert.Equal(t, "Books", fragments[0].Text)
}

func TestProbeExtractorReportsHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	probe := NewProbeExtractor(LocalConfig{Timeout: 5 * time.Second})
	_, err := probe.Extract(context.Background(), server.URL, []string{".section"}, false)
	require.Error(t, err)
}

func TestDetectorNeedsRender(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		minBytes int
		body     string
		want     bool
	}{
		{"tiny shell page", 200, "<html></html>", true},
		{"framework marker", 0, `<div id="root" data-reactroot></div>` + categoryPage, true},
		{"plain server-rendered page", 10, categoryPage, false},
		{"empty body below threshold", 1, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d := NewDetector(tc.minBytes, nil)
			assert.Equal(t, tc.want, d.NeedsRender([]byte(tc.body)))
		})
	}
}

func TestPromotingExtractorServesProbeResults(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(categoryPage))
	}))
	defer server.Close()

	probe := NewProbeExtractor(LocalConfig{Timeout: 5 * time.Second})
	// No renderer configured: probe output is final.
	promoting := NewPromotingExtractor(probe, nil, NewDetector(0, nil), nil)

	fragments, err := promoting.Extract(context.Background(), server.URL, []string{".section"}, false)
	require.NoError(t, err)
	assert.Len(t, fragments, 2)

	fragments, err = promoting.Extract(context.Background(), server.URL, []string{".missing"}, false)
	require.NoError(t, err)
	assert.Empty(t, fragments)
}
