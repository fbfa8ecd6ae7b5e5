package publisher

// Publisher represents a sink for extracted review records
type Publisher interface {
	// Publish writes one JSON encoded record under key (the city tag)
	Publish(key string, message []byte) error

	// TrimStreams bounds the sink after a crawl; sinks without a bound return nil
	TrimStreams() error

	// Close flushes and releases the sink
	Close() error
}
