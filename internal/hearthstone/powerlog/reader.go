package powerlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// maxLineSize bounds a single Power.log line. Descriptor-heavy lines are long
// but nowhere near this.
const maxLineSize = 4 * 1024 * 1024

// LogEntry is one raw line read from Power.log.
type LogEntry struct {
	Raw    string // The line without its trailing newline
	Offset int64  // Byte offset of the line start within the file
}

// Reader reads a Power.log file line by line.
type Reader struct {
	file    *os.File
	scanner *bufio.Scanner
	offset  int64
}

// NewReader opens the log file at path.
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return newReader(file), nil
}

func newReader(file *os.File) *Reader {
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return &Reader{file: file, scanner: scanner}
}

// Close closes the underlying log file.
func (r *Reader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// ReadEntry returns the next line. It returns io.EOF at the end of the file.
func (r *Reader) ReadEntry() (*LogEntry, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return nil, fmt.Errorf("scan log file: %w", err)
		}
		return nil, io.EOF
	}

	line := r.scanner.Text()
	entry := &LogEntry{Raw: trimCR(line), Offset: r.offset}
	r.offset += int64(len(line)) + 1
	return entry, nil
}

// Each calls fn for every remaining line, stopping at the first error fn returns.
func (r *Reader) Each(fn func(*LogEntry) error) error {
	for {
		entry, err := r.ReadEntry()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
}

// ReadAll reads every remaining line.
func (r *Reader) ReadAll() ([]*LogEntry, error) {
	var entries []*LogEntry
	err := r.Each(func(e *LogEntry) error {
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func trimCR(line string) string {
	if n := len(line); n > 0 && line[n-1] == '\r' {
		return line[:n-1]
	}
	return line
}
