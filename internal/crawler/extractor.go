package crawler

import (
	"iter"
	"slices"
	"strings"

	"sjsage522/reviewworker/pkg/errors"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Extractor reads review records from an activity's review page
type Extractor struct {
	Selectors ReviewSelectors
}

// NewExtractor creates an extractor with the default review selectors
func NewExtractor() *Extractor {
	return &Extractor{Selectors: DefaultReviewSelectors}
}

// fieldLookup reads one optional value relative to a node
type fieldLookup func(n *html.Node) (string, error)

// firstValue returns the first non-empty trimmed text of the nodes matched by expr
func firstValue(field, expr string) fieldLookup {
	return func(n *html.Node) (string, error) {
		for _, node := range queryAll(n, expr) {
			if v := strings.TrimSpace(htmlquery.InnerText(node)); v != "" {
				return v, nil
			}
		}
		return "", errors.NewFieldMiss(field, expr)
	}
}

// optional runs lookup and turns a miss into nil
func optional(n *html.Node, lookup fieldLookup) *string {
	v, err := lookup(n)
	if err != nil {
		return nil
	}
	return &v
}

// allValues returns every non-empty trimmed value matched by expr, or nil
func allValues(n *html.Node, expr string) []string {
	var values []string
	for _, node := range queryAll(n, expr) {
		if v := strings.TrimSpace(htmlquery.InnerText(node)); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// pageFields holds the activity-level values shared by every record of a page
type pageFields struct {
	activityName      *string
	starRating        *string
	numReviews        *string
	suggestedDuration *string
	description       *string
	imageLinks        []string
}

func (e *Extractor) readPage(root *html.Node) pageFields {
	s := e.Selectors
	return pageFields{
		activityName:      optional(root, firstValue("activity_name", s.Title)),
		starRating:        optional(root, firstValue("star_rating", s.StarRating)),
		numReviews:        optional(root, firstValue("num_reviews", s.NumReviews)),
		suggestedDuration: optional(root, firstValue("suggested_duration", s.SuggestedDuration)),
		description:       optional(root, firstValue("description", s.Description)),
		imageLinks:        allValues(root, s.ImageLinks),
	}
}

func (e *Extractor) readBlock(block *html.Node, page pageFields, city string) ReviewRecord {
	s := e.Selectors
	return ReviewRecord{
		ActivityName:       page.activityName,
		City:               city,
		ReviewerRating:     optional(block, firstValue("reviewer_rating", s.ReviewerRating)),
		ReviewTitle:        optional(block, firstValue("review_title", s.ReviewTitle)),
		ReviewText:         optional(block, firstValue("review_text", s.ReviewText)),
		ReviewDate:         optional(block, firstValue("review_date", s.ReviewDate)),
		ContributionsCount: optional(block, firstValue("contributions_count", s.ContributionsCount)),
		HelpfulCount:       optional(block, firstValue("helpful_count", s.HelpfulCount)),
		Username:           optional(block, firstValue("username", s.Username)),
		UserID:             optional(block, firstValue("userid", s.UserID)),
		Location:           optional(block, firstValue("location", s.Location)),
		StarRating:         page.starRating,
		NumReviews:         page.numReviews,
		SuggestedDuration:  page.suggestedDuration,
		Description:        page.description,
		ImageLinks:         slices.Clone(page.imageLinks),
	}
}

// Extract lazily yields one record per review block in document order.
// city is written trimmed and lowercased on every record.
func (e *Extractor) Extract(doc *Document, city string) iter.Seq[ReviewRecord] {
	return func(yield func(ReviewRecord) bool) {
		root := doc.Root()
		tag := strings.ToLower(strings.TrimSpace(city))
		page := e.readPage(root)

		for _, block := range queryAll(root, e.Selectors.Block) {
			if !yield(e.readBlock(block, page, tag)) {
				return
			}
		}
	}
}

// ExtractAll collects Extract into a slice
func (e *Extractor) ExtractAll(doc *Document, city string) []ReviewRecord {
	return slices.Collect(e.Extract(doc, city))
}

// MissingFields lists the JSON names of the nullable fields that are nil
func (r ReviewRecord) MissingFields() []string {
	fields := []struct {
		name  string
		value *string
	}{
		{"activity_name", r.ActivityName},
		{"reviewer_rating", r.ReviewerRating},
		{"review_title", r.ReviewTitle},
		{"review_text", r.ReviewText},
		{"review_date", r.ReviewDate},
		{"contributions_count", r.ContributionsCount},
		{"helpful_count", r.HelpfulCount},
		{"username", r.Username},
		{"userid", r.UserID},
		{"location", r.Location},
		{"star_rating", r.StarRating},
		{"num_reviews", r.NumReviews},
		{"suggested_duration", r.SuggestedDuration},
		{"description", r.Description},
	}

	var missing []string
	for _, f := range fields {
		if f.value == nil {
			missing = append(missing, f.name)
		}
	}
	if r.ImageLinks == nil {
		missing = append(missing, "image_links")
	}
	return missing
}
