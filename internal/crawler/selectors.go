package crawler

// ListingSelectors contains CSS selectors for one listing row
type ListingSelectors struct {
	Row         string `json:"row"`
	Link        string `json:"link"`
	ReviewCount string `json:"review_count"`
}

// ReviewSelectors contains XPath expressions for a review page. Page fields are
// evaluated against the document, block fields relative to each review block.
type ReviewSelectors struct {
	Block string `json:"block"`

	// Page-scoped
	Title             string `json:"title"`
	NumReviews        string `json:"num_reviews"`
	StarRating        string `json:"star_rating"`
	SuggestedDuration string `json:"suggested_duration"`
	Description       string `json:"description"`
	ImageLinks        string `json:"image_links"`

	// Block-scoped
	ReviewerRating     string `json:"reviewer_rating"`
	ReviewTitle        string `json:"review_title"`
	ReviewText         string `json:"review_text"`
	ReviewDate         string `json:"review_date"`
	ContributionsCount string `json:"contributions_count"`
	HelpfulCount       string `json:"helpful_count"`
	Username           string `json:"username"`
	UserID             string `json:"userid"`
	Location           string `json:"location"`
}

// DefaultListingSelectors matches the attraction list of a city page
var DefaultListingSelectors = ListingSelectors{
	Row:         "div.attraction_element",
	Link:        "div.listing_title a",
	ReviewCount: "div.rs.rating > span:nth-of-type(2) a",
}

// DefaultReviewSelectors matches an activity's review page
var DefaultReviewSelectors = ReviewSelectors{
	Block: `//div[@class="review-container"]`,

	Title:             `//h1[@id="HEADING"]/text()`,
	NumReviews:        `//span[@property="v:count"]/text()`,
	StarRating:        `//span[@property="ratingValue"]/@content`,
	SuggestedDuration: `//div[@class="detail_section duration"]/text()`,
	Description:       `//div[@class="prw_rup prw_common_location_description"]//div[@class="text"]/text()`,
	ImageLinks:        `//span[@class="imgWrap "]/img/@data-src`,

	ReviewerRating:     `./div/div/div/div[2]/div/div/div/span[1]/@class`,
	ReviewTitle:        `./div/div/div/div[2]/div/div/div[2]/a/span/text()`,
	ReviewText:         `./div/div/div/div[2]/div/div/div[3]/div/p/text()`,
	ReviewDate:         `./div/div/div/div[2]/div/div/div/span[@class="ratingDate relativeDate"]/@title`,
	ContributionsCount: `./div/div/div/div/div/div/div[2]/div/span[@class="ui_icon pencil-paper"]/following-sibling::span[1]/text()`,
	HelpfulCount:       `./div/div/div/div/div/div/div[2]/div/span[@class="ui_icon thumbs-up-fill"]/following-sibling::span/text()`,
	Username:           `./div/div/div/div/div/div/div/div/span[@class="expand_inline scrname"]/text()`,
	UserID:             `.//div[@class="member_info"]/div/@id`,
	Location:           `./div/div/div/div/div/div/div/div/span[@class="expand_inline userLocation"]/text()`,
}
