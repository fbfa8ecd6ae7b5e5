package helpers

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// FailureRecorder records pages that could not be processed
type FailureRecorder interface {
	RecordFailure(component, url string, err error)
}

// FailureLog appends failed URLs to a file so they can be re-crawled later
type FailureLog struct {
	mu        sync.Mutex
	errorFile string
}

// NewFailureLog creates a new failure log writing to errorFile
func NewFailureLog(errorFile string) *FailureLog {
	return &FailureLog{
		errorFile: errorFile,
	}
}

// RecordFailure appends one line with timestamp, component, URL and error
func (l *FailureLog) RecordFailure(component, url string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, fileErr := os.OpenFile(l.errorFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if fileErr != nil {
		fmt.Fprintf(os.Stderr, "failure log open error: %v\n", fileErr)
		return
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(f, "[%s] [%s] %s: %v\n", timestamp, component, url, err)
}
