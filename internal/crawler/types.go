package crawler

import (
	"context"
	"strconv"
	"strings"
)

// ReviewMarker is the path segment that starts an activity's review identifier
const ReviewMarker = "Reviews-"

const (
	// ListingPageSize is the offset step between listing pages
	ListingPageSize = 30
	// ReviewPageSize is the offset step between review pages of one activity
	ReviewPageSize = 10
	// DefaultMaxReviewPages caps the review pages fetched per activity
	DefaultMaxReviewPages = 20
)

// CrawlTarget identifies what one crawl walks
type CrawlTarget struct {
	City                      string
	ListingURLTemplate        string
	MaxListingOffsetPages     int
	MaxReviewPagesPerActivity int
}

// ActivityRef is one activity found on a listing page
type ActivityRef struct {
	DetailURL   string
	ReviewCount *int
}

// ReviewPageRequest is one review page to fetch for an activity
type ReviewPageRequest struct {
	ActivityURL string
	PageOffset  int
	URL         string
}

// ReviewRecord is one extracted review merged with its activity's page fields
type ReviewRecord struct {
	ActivityName       *string  `json:"activity_name"`
	City               string   `json:"city"`
	ReviewerRating     *string  `json:"reviewer_rating"`
	ReviewTitle        *string  `json:"review_title"`
	ReviewText         *string  `json:"review_text"`
	ReviewDate         *string  `json:"review_date"`
	ContributionsCount *string  `json:"contributions_count"`
	HelpfulCount       *string  `json:"helpful_count"`
	Username           *string  `json:"username"`
	UserID             *string  `json:"userid"`
	Location           *string  `json:"location"`
	StarRating         *string  `json:"star_rating"`
	NumReviews         *string  `json:"num_reviews"`
	SuggestedDuration  *string  `json:"suggested_duration"`
	Description        *string  `json:"description"`
	ImageLinks         []string `json:"image_links"`
}

// Fetcher retrieves and parses one page
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Document, error)
}

// OutputCity returns the city tag written on every record
func (t CrawlTarget) OutputCity() string {
	return strings.ToLower(strings.TrimSpace(t.City))
}

// ReviewPageCap returns the per-activity page cap, defaulting to 20
func (t CrawlTarget) ReviewPageCap() int {
	if t.MaxReviewPagesPerActivity <= 0 {
		return DefaultMaxReviewPages
	}
	return t.MaxReviewPagesPerActivity
}

// ListingURLs returns the listing pages to seed: the first page without an
// offset segment followed by offsets 30, 60, ... MaxListingOffsetPages*30.
// Templates without the oa{offset}- segment get offset 0 on the first page.
func (t CrawlTarget) ListingURLs() []string {
	first := strings.Replace(t.ListingURLTemplate, "oa{offset}-", "", 1)
	urls := []string{strings.Replace(first, "{offset}", "0", 1)}
	for i := 1; i <= t.MaxListingOffsetPages; i++ {
		urls = append(urls, strings.Replace(t.ListingURLTemplate, "{offset}", strconv.Itoa(i*ListingPageSize), 1))
	}
	return urls
}
