package crawler

import (
	"encoding/json"
	"os"

	"sjsage522/reviewworker/pkg/errors"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// SelectorSet holds the selectors of both page kinds so a changed site layout
// can be followed without a rebuild
type SelectorSet struct {
	Listing ListingSelectors `json:"listing"`
	Review  ReviewSelectors  `json:"review"`
}

// DefaultSelectors returns the built-in selectors
func DefaultSelectors() SelectorSet {
	return SelectorSet{Listing: DefaultListingSelectors, Review: DefaultReviewSelectors}
}

// LoadSelectors reads a JSON selector file. Keys present in the file replace
// the defaults; absent keys keep them. An empty path returns the defaults.
func LoadSelectors(path string) (SelectorSet, error) {
	set := DefaultSelectors()
	if path == "" {
		return set, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return set, errors.NewConfiguration("cannot read SELECTORS_FILE "+path, err)
	}
	if err := json.Unmarshal(data, &set); err != nil {
		return set, errors.NewConfiguration("SELECTORS_FILE "+path+" is not valid JSON", err)
	}
	if err := set.Review.validate(); err != nil {
		return set, err
	}
	return set, nil
}

// validate compiles every XPath expression
func (s ReviewSelectors) validate() error {
	exprs := map[string]string{
		"block":               s.Block,
		"title":               s.Title,
		"num_reviews":         s.NumReviews,
		"star_rating":         s.StarRating,
		"suggested_duration":  s.SuggestedDuration,
		"description":         s.Description,
		"image_links":         s.ImageLinks,
		"reviewer_rating":     s.ReviewerRating,
		"review_title":        s.ReviewTitle,
		"review_text":         s.ReviewText,
		"review_date":         s.ReviewDate,
		"contributions_count": s.ContributionsCount,
		"helpful_count":       s.HelpfulCount,
		"username":            s.Username,
		"userid":              s.UserID,
		"location":            s.Location,
	}

	empty := &html.Node{Type: html.DocumentNode}
	for name, expr := range exprs {
		if _, err := htmlquery.QueryAll(empty, expr); err != nil {
			return errors.NewConfiguration("invalid review selector "+name+": "+expr, err)
		}
	}
	return nil
}
