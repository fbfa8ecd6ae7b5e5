package crawler

import (
	"os"
	"path/filepath"
	"testing"

	"sjsage522/reviewworker/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSelectors(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "selectors.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadSelectorsDefaults(t *testing.T) {
	set, err := LoadSelectors("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSelectors(), set)
}

func TestLoadSelectorsOverrides(t *testing.T) {
	path := writeSelectors(t, `{
		"listing": {"row": "section.attraction"},
		"review": {"location": "./div//span[@class=\"userLocation\"]/text()"}
	}`)

	set, err := LoadSelectors(path)
	require.NoError(t, err)

	assert.Equal(t, "section.attraction", set.Listing.Row)
	assert.Equal(t, DefaultListingSelectors.Link, set.Listing.Link)
	assert.Equal(t, `./div//span[@class="userLocation"]/text()`, set.Review.Location)
	assert.Equal(t, DefaultReviewSelectors.Username, set.Review.Username)
}

func TestLoadSelectorsErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(t.TempDir(), "absent.json")},
		{"bad json", writeSelectors(t, `{"listing":`)},
		{"bad xpath", writeSelectors(t, `{"review": {"block": "//div["}}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSelectors(tt.path)
			assert.True(t, errors.Is(err, errors.ErrorTypeConfiguration))
		})
	}
}

func TestOverriddenRowSelector(t *testing.T) {
	body := `<html><body><section class="attraction"><div class="listing_title">` +
		`<a href="/Attraction_Review-g1-d1-Reviews-A.html">a</a></div></section></body></html>`
	doc := mustDocument(t, listingURL, body)

	p := NewPlanner(CrawlTarget{})
	assert.Empty(t, p.Activities(doc))

	p.Selectors.Row = "section.attraction"
	assert.Len(t, p.Activities(doc), 1)
}
