package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeCountParse represents an unreadable review count on a listing row
	ErrorTypeCountParse ErrorType = "count_parse"
	// ErrorTypeURLStructure represents an activity URL without the review marker
	ErrorTypeURLStructure ErrorType = "url_structure"
	// ErrorTypeFieldMiss represents a selector that matched nothing
	ErrorTypeFieldMiss ErrorType = "field_miss"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// CrawlerError represents a crawler-specific error
type CrawlerError struct {
	Type     ErrorType
	Provider string
	Message  string
	Err      error
	Time     time.Time
}

// Error implements the error interface
func (e *CrawlerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Provider, e.Message)
}

// Unwrap returns the underlying error
func (e *CrawlerError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *CrawlerError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork:
		return true
	default:
		return false
	}
}

// New creates a new CrawlerError
func New(errType ErrorType, provider, message string, err error) *CrawlerError {
	return &CrawlerError{
		Type:     errType,
		Provider: provider,
		Message:  message,
		Err:      err,
		Time:     time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeNetwork, provider, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeParsing, provider, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(provider string, duration time.Duration) *CrawlerError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, provider, message, nil)
}

// NewCountParse creates a new review count parse error
func NewCountParse(text string, err error) *CrawlerError {
	return New(ErrorTypeCountParse, "", fmt.Sprintf("unreadable review count %q", text), err)
}

// NewURLStructure creates a new URL structure error
func NewURLStructure(url, marker string) *CrawlerError {
	return New(ErrorTypeURLStructure, "", fmt.Sprintf("%s has no %q segment", url, marker), nil)
}

// NewFieldMiss creates a new field miss error
func NewFieldMiss(field, expr string) *CrawlerError {
	return New(ErrorTypeFieldMiss, field, fmt.Sprintf("nothing matched %s", expr), nil)
}

// NewCache creates a new cache error
func NewCache(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeCache, provider, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(provider, message string, err error) *CrawlerError {
	return New(ErrorTypePublisher, provider, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *CrawlerError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// TypeOf returns the ErrorType of the first CrawlerError in err's chain,
// or an empty type when there is none.
func TypeOf(err error) ErrorType {
	var ce *CrawlerError
	if errors.As(err, &ce) {
		return ce.Type
	}
	return ""
}

// Retryable reports whether err carries a CrawlerError worth retrying.
func Retryable(err error) bool {
	var ce *CrawlerError
	return errors.As(err, &ce) && ce.IsRetryable()
}

// Is reports whether err carries a CrawlerError of the given type.
func Is(err error, errType ErrorType) bool {
	return TypeOf(err) == errType
}
