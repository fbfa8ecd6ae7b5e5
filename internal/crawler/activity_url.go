package crawler

import (
	"strconv"
	"strings"

	"sjsage522/reviewworker/pkg/errors"
)

// ActivityURL is an activity detail URL split around its review marker so that
// review page offsets can be rendered by substitution.
type ActivityURL struct {
	raw    string
	prefix string // up to and including the marker
	suffix string
}

// ParseActivityURL locates the review marker in raw
func ParseActivityURL(raw string) (ActivityURL, error) {
	i := strings.Index(raw, ReviewMarker)
	if i <= 0 {
		return ActivityURL{raw: raw}, errors.NewURLStructure(raw, ReviewMarker)
	}
	cut := i + len(ReviewMarker)
	return ActivityURL{raw: raw, prefix: raw[:cut], suffix: raw[cut:]}, nil
}

// Page renders the URL of the review page at offset. Offset 0 is the
// unmodified activity URL.
func (u ActivityURL) Page(offset int) string {
	if offset == 0 || u.prefix == "" {
		return u.raw
	}
	return u.prefix + "or" + strconv.Itoa(offset) + "-" + u.suffix
}

// String returns the unmodified activity URL
func (u ActivityURL) String() string {
	return u.raw
}
