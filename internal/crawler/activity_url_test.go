package crawler

import (
	"testing"

	"sjsage522/reviewworker/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityURLPage(t *testing.T) {
	raw := "https://www.tripadvisor.com/Attraction_Review-g60898-d104108-Reviews-Piedmont_Park-Atlanta_Georgia.html"
	u, err := ParseActivityURL(raw)
	require.NoError(t, err)

	assert.Equal(t, raw, u.String())
	assert.Equal(t, raw, u.Page(0))
	assert.Equal(t, "https://www.tripadvisor.com/Attraction_Review-g60898-d104108-Reviews-or190-Piedmont_Park-Atlanta_Georgia.html", u.Page(190))
}

func TestParseActivityURLWithoutMarker(t *testing.T) {
	for _, raw := range []string{
		"https://www.tripadvisor.com/Attraction_Review-g60898-d104108-Piedmont_Park.html",
		"Reviews-at-start.html",
		"",
	} {
		u, err := ParseActivityURL(raw)
		assert.True(t, errors.Is(err, errors.ErrorTypeURLStructure), raw)
		// Only the unmodified URL can be rendered
		assert.Equal(t, raw, u.Page(10))
	}
}
