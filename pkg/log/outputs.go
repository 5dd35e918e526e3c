package log

import (
	"io"
	"os"
	"path/filepath"
	"sync"
)

// ConsoleOutput writes log entries to stderr or a custom writer. Logs never
// go to stdout so command output stays pipeable.
type ConsoleOutput struct {
	mu     sync.Mutex
	writer io.Writer
}

// ConsoleOutputOption configures a ConsoleOutput.
type ConsoleOutputOption func(*ConsoleOutput)

// WithCustomWriter configures the ConsoleOutput to use a custom writer.
func WithCustomWriter(w io.Writer) ConsoleOutputOption {
	return func(o *ConsoleOutput) {
		o.writer = w
	}
}

// NewConsoleOutput creates a new ConsoleOutput with the given options.
func NewConsoleOutput(options ...ConsoleOutputOption) *ConsoleOutput {
	o := &ConsoleOutput{writer: os.Stderr}
	for _, option := range options {
		option(o)
	}
	return o
}

// Write writes the formatted entry.
func (o *ConsoleOutput) Write(_ *Entry, formatted []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := o.writer.Write(formatted)
	return err
}

// Close is a no-op for console output.
func (o *ConsoleOutput) Close() error {
	return nil
}

// FileOutput appends log entries to a file, truncating it once it grows past
// maxSize bytes.
type FileOutput struct {
	mu       sync.Mutex
	filename string
	maxSize  int64
	file     *os.File
	size     int64
}

// NewFileOutput creates a FileOutput. maxSize of zero disables truncation.
func NewFileOutput(filename string, maxSize int64) *FileOutput {
	return &FileOutput{filename: filename, maxSize: maxSize}
}

// Write writes the formatted entry to the file, opening it on first use.
func (o *FileOutput) Write(_ *Entry, formatted []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.file == nil {
		if err := o.open(os.O_APPEND); err != nil {
			return err
		}
	}

	if o.maxSize > 0 && o.size+int64(len(formatted)) > o.maxSize {
		o.file.Close()
		if err := o.open(os.O_TRUNC); err != nil {
			return err
		}
	}

	n, err := o.file.Write(formatted)
	o.size += int64(n)
	return err
}

// Close closes the file.
func (o *FileOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.file == nil {
		return nil
	}
	err := o.file.Close()
	o.file = nil
	return err
}

func (o *FileOutput) open(mode int) error {
	if err := os.MkdirAll(filepath.Dir(o.filename), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(o.filename, os.O_CREATE|os.O_WRONLY|mode, 0o600)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	o.file = f
	o.size = info.Size()
	return nil
}

// NullOutput discards everything.
type NullOutput struct{}

// NewNullOutput creates a NullOutput.
func NewNullOutput() *NullOutput { return &NullOutput{} }

// Write discards the entry.
func (*NullOutput) Write(*Entry, []byte) error {
	return nil
}

// Close is a no-op.
func (*NullOutput) Close() error {
	return nil
}
