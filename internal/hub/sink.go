package hub

import (
	"fmt"
	"os"
	"sync"
)

// Sink receives every published event for the analytics feed.
type Sink interface {
	WriteMessage(topic string, msg []byte) error
	Close() error
}

type ConsoleSink struct{}

func (c *ConsoleSink) WriteMessage(topic string, msg []byte) error {
	output := fmt.Sprintf("[%s] %s\n", topic, string(msg))

	_, err := os.Stdout.Write([]byte(output))
	if err != nil {
		return fmt.Errorf("failed to write to stdout: %w", err)
	}

	// Try to sync, but don't return an error if it fails
	_ = os.Stdout.Sync()

	return nil
}

func (c *ConsoleSink) Close() error {
	return nil
}

// FileSink appends JSON-lines to one file per topic under a base directory.
type FileSink struct {
	mu       sync.Mutex
	files    map[string]*os.File
	basePath string
}

func NewFileSink(basePath string) *FileSink {
	return &FileSink{
		files:    make(map[string]*os.File),
		basePath: basePath,
	}
}

func (f *FileSink) WriteMessage(topic string, msg []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, ok := f.files[topic]
	if !ok {
		filename := fmt.Sprintf("%s/%s.jsonl", f.basePath, topic)
		var err error
		file, err = os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to create file for topic %s: %w", topic, err)
		}
		f.files[topic] = file
	}

	if _, err := file.Write(append(msg, '\n')); err != nil {
		return fmt.Errorf("failed to write message to topic %s: %w", topic, err)
	}

	return nil
}

func (f *FileSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var lastErr error
	for _, file := range f.files {
		if err := file.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
