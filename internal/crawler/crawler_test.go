package crawler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dmaier/catalog-crawler/internal/catalog"
	"github.com/dmaier/catalog-crawler/internal/store"
)

type fakeExtractor struct {
	pages     map[string][]catalog.Fragment
	errs      map[string]error
	requested []string
}

func (f *fakeExtractor) Extract(_ context.Context, pageURL string, _ []string, _ bool) ([]catalog.Fragment, error) {
	f.requested = append(f.requested, pageURL)
	if err, ok := f.errs[pageURL]; ok {
		return nil, err
	}
	return f.pages[pageURL], nil
}

type fakeStore struct {
	nextID   int64
	byURL    map[string]int64
	cats     map[int64]catalog.Category
	products map[int64][]catalog.Product
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byURL:    make(map[string]int64),
		cats:     make(map[int64]catalog.Category),
		products: make(map[int64][]catalog.Product),
	}
}

func (f *fakeStore) InsertCategory(_ context.Context, name, url string, parentID *int64) (*int64, error) {
	if _, ok := f.byURL[url]; ok {
		return nil, nil
	}
	f.nextID++
	id := f.nextID
	f.byURL[url] = id
	f.cats[id] = catalog.Category{ID: id, Name: name, URL: url, ParentID: parentID}
	return &id, nil
}

func (f *fakeStore) InsertProduct(_ context.Context, title string, rating, price *string, categoryID int64) error {
	f.products[categoryID] = append(f.products[categoryID], catalog.Product{
		Title:      title,
		Rating:     rating,
		Price:      price,
		CategoryID: categoryID,
	})
	return nil
}

func (f *fakeStore) GetCategory(_ context.Context, id int64) (catalog.Category, error) {
	cat, ok := f.cats[id]
	if !ok {
		return catalog.Category{}, store.ErrNotFound
	}
	return cat, nil
}

func (f *fakeStore) DeleteProducts(_ context.Context, categoryID int64) (int64, error) {
	n := int64(len(f.products[categoryID]))
	delete(f.products, categoryID)
	return n, nil
}

func sectionFragment(name, href string) catalog.Fragment {
	return catalog.Fragment{
		Text: name,
		HTML: fmt.Sprintf(`<div><a href="%s">%s</a></div>`, href, name),
	}
}

func newTestCrawler(t *testing.T, ex *fakeExtractor, st *fakeStore, maxDepth int) *Crawler {
	t.Helper()
	c, err := New(Config{
		BaseURL:         "https://example.com",
		StartPath:       "gp/bestsellers/",
		SectionSelector: "div.section",
		ProductSelector: "div.product span",
		MaxDepth:        maxDepth,
	}, ex, st, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestRunPersistsCategoryTree(t *testing.T) {
	ex := &fakeExtractor{pages: map[string][]catalog.Fragment{
		"https://example.com/gp/bestsellers/": {
			sectionFragment("Books", "/best/books"),
			sectionFragment("Toys", "/best/toys"),
		},
		"https://example.com/best/books": {
			sectionFragment("Fiction", "/best/books/fiction"),
		},
	}}
	st := newFakeStore()
	c := newTestCrawler(t, ex, st, 3)

	tracker, err := c.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, st.cats, 3)

	books := st.cats[st.byURL["https://example.com/best/books"]]
	assert.Equal(t, "Books", books.Name)
	assert.Nil(t, books.ParentID)

	fiction := st.cats[st.byURL["https://example.com/best/books/fiction"]]
	assert.Equal(t, "Fiction", fiction.Name)
	require.NotNil(t, fiction.ParentID)
	assert.Equal(t, books.ID, *fiction.ParentID)

	snap := tracker.Snapshot()
	assert.Equal(t, 2, snap[1].Current)
	assert.Equal(t, 2, snap[1].Total)
	assert.Equal(t, 1, snap[2].Current)
}

func TestRunEmptyRootIsNotAnError(t *testing.T) {
	ex := &fakeExtractor{pages: map[string][]catalog.Fragment{}}
	st := newFakeStore()
	c := newTestCrawler(t, ex, st, 3)

	tracker, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, st.cats)
	assert.Empty(t, tracker.Snapshot())
}

func TestRunStopsAtMaxDepth(t *testing.T) {
	ex := &fakeExtractor{pages: map[string][]catalog.Fragment{
		"https://example.com/gp/bestsellers/": {sectionFragment("L1", "/l1")},
		"https://example.com/l1":              {sectionFragment("L2", "/l2")},
		"https://example.com/l2":              {sectionFragment("L3", "/l3")},
		"https://example.com/l3":              {sectionFragment("L4", "/l4")},
	}}
	st := newFakeStore()
	c := newTestCrawler(t, ex, st, 3)

	_, err := c.Run(context.Background())
	require.NoError(t, err)

	// Depth 3 nodes are recorded but their pages are never fetched.
	assert.Contains(t, st.byURL, "https://example.com/l3")
	assert.NotContains(t, st.byURL, "https://example.com/l4")
	assert.NotContains(t, ex.requested, "https://example.com/l3")
}

func TestRunSkipsDuplicateSubtree(t *testing.T) {
	ex := &fakeExtractor{pages: map[string][]catalog.Fragment{
		"https://example.com/gp/bestsellers/": {
			sectionFragment("Books", "/best/books"),
			sectionFragment("Books Again", "/best/books"),
		},
		"https://example.com/best/books": {
			sectionFragment("Fiction", "/best/books/fiction"),
		},
	}}
	st := newFakeStore()
	c := newTestCrawler(t, ex, st, 3)

	tracker, err := c.Run(context.Background())
	require.NoError(t, err)

	// The duplicate URL never triggers a second expansion of its page.
	fetches := 0
	for _, u := range ex.requested {
		if u == "https://example.com/best/books" {
			fetches++
		}
	}
	assert.Equal(t, 1, fetches)
	assert.Len(t, st.cats, 2)

	// The duplicate still counts as a discovered node.
	assert.Equal(t, 2, tracker.Snapshot()[1].Current)
}

func TestRunSkipsFragmentsWithoutAnchor(t *testing.T) {
	ex := &fakeExtractor{pages: map[string][]catalog.Fragment{
		"https://example.com/gp/bestsellers/": {
			{Text: "Decoration", HTML: "<span>Decoration</span>"},
			sectionFragment("Books", "/best/books"),
		},
	}}
	st := newFakeStore()
	c := newTestCrawler(t, ex, st, 3)

	tracker, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, st.cats, 1)
	assert.Equal(t, 1, tracker.Snapshot()[1].Current)
}

func TestRunFetchErrorUnwindsButKeepsEarlierRows(t *testing.T) {
	boom := errors.New("upstream down")
	ex := &fakeExtractor{
		pages: map[string][]catalog.Fragment{
			"https://example.com/gp/bestsellers/": {
				sectionFragment("Books", "/best/books"),
				sectionFragment("Toys", "/best/toys"),
			},
		},
		errs: map[string]error{
			"https://example.com/best/toys": boom,
		},
	}
	st := newFakeStore()
	c := newTestCrawler(t, ex, st, 3)

	_, err := c.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	// Books made it in before the failure; so did the Toys row itself.
	assert.Contains(t, st.byURL, "https://example.com/best/books")
	assert.Contains(t, st.byURL, "https://example.com/best/toys")
}

func TestIngestProducts(t *testing.T) {
	ptr := func(s string) *string { return &s }

	ex := &fakeExtractor{pages: map[string][]catalog.Fragment{
		"https://example.com/best/books": {
			{Text: "Widget A"},
			{Text: "4.5 out of 5 stars"},
			{Text: "$19.99"},
			{Text: "Widget B"},
			{Text: "$5.00"},
		},
	}}
	st := newFakeStore()
	id, err := st.InsertCategory(context.Background(), "Books", "https://example.com/best/books", nil)
	require.NoError(t, err)

	// A stale record from an earlier run.
	require.NoError(t, st.InsertProduct(context.Background(), "Old Widget", nil, ptr("$1.00"), *id))

	c := newTestCrawler(t, ex, st, 3)
	count, err := c.IngestProducts(context.Background(), *id)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got := st.products[*id]
	require.Len(t, got, 2)
	assert.Equal(t, "Widget A", got[0].Title)
	require.NotNil(t, got[0].Rating)
	assert.Equal(t, "4.5 out of 5 stars", *got[0].Rating)
	require.NotNil(t, got[0].Price)
	assert.Equal(t, "$19.99", *got[0].Price)
	assert.Equal(t, "Widget B", got[1].Title)
	assert.Nil(t, got[1].Rating)
}

func TestIngestProductsUnknownCategory(t *testing.T) {
	ex := &fakeExtractor{}
	st := newFakeStore()
	c := newTestCrawler(t, ex, st, 3)

	_, err := c.IngestProducts(context.Background(), 42)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
