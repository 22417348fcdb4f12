package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

const maxLineSize = 16 * 1024 * 1024

// ReaderSource reads records from either a JSON array or JSON lines. The
// format is picked from the first non-space byte of the input.
type ReaderSource struct {
	closer  io.Closer
	reader  *bufio.Reader
	decoder *json.Decoder
	scanner *bufio.Scanner
	started bool
}

func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{reader: bufio.NewReader(r)}
}

// OpenFile opens path as a ReaderSource. Close releases the file.
func OpenFile(path string) (*ReaderSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	source := NewReaderSource(f)
	source.closer = f
	return source, nil
}

func (s *ReaderSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Next returns the next raw record. A malformed JSON line is returned as is
// so the runner records it as one failed item; a malformed array aborts.
func (s *ReaderSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.started {
		if err := s.start(); err != nil {
			return nil, err
		}
	}
	if s.decoder != nil {
		return s.nextElement()
	}
	return s.nextLine()
}

func (s *ReaderSource) start() error {
	s.started = true
	first, err := s.peekNonSpace()
	if errors.Is(err, io.EOF) {
		s.scanner = bufio.NewScanner(s.reader)
		return nil
	}
	if err != nil {
		return err
	}
	if first != '[' {
		s.scanner = bufio.NewScanner(s.reader)
		s.scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		return nil
	}

	s.decoder = json.NewDecoder(s.reader)
	if _, err := s.decoder.Token(); err != nil {
		return fmt.Errorf("read array start: %w", err)
	}
	return nil
}

func (s *ReaderSource) peekNonSpace() (byte, error) {
	for {
		b, err := s.reader.Peek(1)
		if err != nil {
			return 0, err
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			if _, err := s.reader.ReadByte(); err != nil {
				return 0, err
			}
		default:
			return b[0], nil
		}
	}
}

func (s *ReaderSource) nextElement() ([]byte, error) {
	if !s.decoder.More() {
		return nil, io.EOF
	}
	var raw json.RawMessage
	if err := s.decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode array element: %w", err)
	}
	return raw, nil
}

func (s *ReaderSource) nextLine() ([]byte, error) {
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		out := make([]byte, len(line))
		copy(out, line)
		return out, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// SliceSource yields pre-loaded records.
type SliceSource struct {
	items [][]byte
	pos   int
}

func NewSliceSource(items ...[]byte) *SliceSource {
	return &SliceSource{items: items}
}

func (s *SliceSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.items) {
		return nil, io.EOF
	}
	item := s.items[s.pos]
	s.pos++
	return item, nil
}
