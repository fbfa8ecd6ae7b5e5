package crawler

import (
	"iter"
	"net/url"
	"strconv"
	"strings"

	"sjsage522/reviewworker/helpers"
	"sjsage522/reviewworker/pkg/errors"

	"github.com/PuerkitoBio/goquery"
)

// Planner turns listing pages into the review pages to fetch
type Planner struct {
	Target    CrawlTarget
	Selectors ListingSelectors
}

// NewPlanner creates a planner with the default listing selectors
func NewPlanner(target CrawlTarget) *Planner {
	return &Planner{
		Target:    target,
		Selectors: DefaultListingSelectors,
	}
}

// Plan lazily yields review page requests for every activity of every listing
// page, in listing order and then offset order. Nil documents are skipped.
func (p *Planner) Plan(listings []*Document) iter.Seq[ReviewPageRequest] {
	return func(yield func(ReviewPageRequest) bool) {
		for _, doc := range listings {
			if doc == nil {
				continue
			}
			for _, ref := range p.Activities(doc) {
				for req := range p.Requests(ref) {
					if !yield(req) {
						return
					}
				}
			}
		}
	}
}

// Activities extracts the activities of one listing page in document order.
// Link and review count are read from the same row.
func (p *Planner) Activities(doc *Document) []ActivityRef {
	var refs []ActivityRef

	doc.Find(p.Selectors.Row).Each(func(_ int, row *goquery.Selection) {
		href, exists := row.Find(p.Selectors.Link).First().Attr("href")
		href = strings.TrimSpace(href)
		if !exists || strings.Index(href, ReviewMarker) <= 0 {
			return
		}

		ref := ActivityRef{DetailURL: resolveURL(doc.URL, href)}
		if n, err := ParseReviewCount(row.Find(p.Selectors.ReviewCount).First().Text()); err == nil {
			ref.ReviewCount = &n
		}
		refs = append(refs, ref)
	})

	return refs
}

// Requests yields the review pages of one activity at offsets 0, 10, 20, ...
// When the activity URL has no review marker only offset 0 is yielded.
func (p *Planner) Requests(ref ActivityRef) iter.Seq[ReviewPageRequest] {
	return func(yield func(ReviewPageRequest) bool) {
		pages := PageCount(ref.ReviewCount, p.Target.ReviewPageCap())
		activityURL, err := ParseActivityURL(ref.DetailURL)

		for i := 0; i < pages; i++ {
			if i > 0 && err != nil {
				return
			}
			offset := i * ReviewPageSize
			req := ReviewPageRequest{
				ActivityURL: ref.DetailURL,
				PageOffset:  offset,
				URL:         activityURL.Page(offset),
			}
			if !yield(req) {
				return
			}
		}
	}
}

// ParseReviewCount reads a displayed count such as "1,234 reviews"
func ParseReviewCount(text string) (int, error) {
	field, err := helpers.GetField(text, 0)
	if err != nil {
		return 0, errors.NewCountParse(text, err)
	}
	n, err := strconv.Atoi(helpers.StripThousands(field))
	if err != nil {
		return 0, errors.NewCountParse(text, err)
	}
	if n < 0 {
		return 0, errors.NewCountParse(text, nil)
	}
	return n, nil
}

// PageCount returns how many review pages to fetch for a review count: the
// count rounded half-to-even to the nearest ten, divided by ten, capped at limit.
// An unknown count fetches the first page only.
func PageCount(reviewCount *int, limit int) int {
	if reviewCount == nil {
		return 1
	}
	n := *reviewCount
	if n < 0 {
		return 0
	}

	pages, rem := n/ReviewPageSize, n%ReviewPageSize
	if rem > ReviewPageSize/2 || (rem == ReviewPageSize/2 && pages%2 == 1) {
		pages++
	}
	return min(limit, pages)
}

// resolveURL resolves href against the page it was found on
func resolveURL(base, href string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}
