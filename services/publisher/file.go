package publisher

import (
	"bufio"
	"os"
	"sync"

	"sjsage522/reviewworker/pkg/errors"
)

// FilePublisher appends records to a JSON Lines file, one record per line
type FilePublisher struct {
	mu   sync.Mutex
	path string
	file *os.File
	w    *bufio.Writer
}

// NewFilePublisher opens path for appending, creating it when missing
func NewFilePublisher(path string) (*FilePublisher, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.NewPublisher("file", "open "+path+" failed", err)
	}
	return &FilePublisher{path: path, file: f, w: bufio.NewWriter(f)}, nil
}

// Publish writes message followed by a newline. key is not stored; the
// record carries its own city.
func (p *FilePublisher) Publish(_ string, message []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.w.Write(message); err != nil {
		return errors.NewPublisher("file", "write "+p.path+" failed", err)
	}
	if err := p.w.WriteByte('\n'); err != nil {
		return errors.NewPublisher("file", "write "+p.path+" failed", err)
	}
	return nil
}

// TrimStreams flushes buffered records; a feed file has no length bound
func (p *FilePublisher) TrimStreams() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.w.Flush(); err != nil {
		return errors.NewPublisher("file", "flush "+p.path+" failed", err)
	}
	return nil
}

// Close flushes and closes the file
func (p *FilePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	flushErr := p.w.Flush()
	closeErr := p.file.Close()
	if flushErr != nil {
		return errors.NewPublisher("file", "flush "+p.path+" failed", flushErr)
	}
	if closeErr != nil {
		return errors.NewPublisher("file", "close "+p.path+" failed", closeErr)
	}
	return nil
}
