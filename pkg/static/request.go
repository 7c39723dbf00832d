package static

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrEmptyRequest is returned when the stream ends or a blank line
	// arrives before any request line.
	ErrEmptyRequest = errors.New("static: empty request")

	// ErrRequestTooLarge is returned when a line or the line count exceeds Limits.
	ErrRequestTooLarge = errors.New("static: request too large")
)

// ReadError wraps a transport failure while reading a request.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string { return fmt.Sprintf("static: read request: %v", e.Err) }

func (e *ReadError) Unwrap() error { return e.Err }

// Limits bounds how much of a request is buffered.
type Limits struct {
	MaxLineBytes int
	MaxLines     int
}

// DefaultLimits returns limits suitable for browser requests.
func DefaultLimits() Limits {
	return Limits{MaxLineBytes: 8 << 10, MaxLines: 100}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxLineBytes <= 0 {
		l.MaxLineBytes = d.MaxLineBytes
	}
	if l.MaxLines <= 0 {
		l.MaxLines = d.MaxLines
	}
	return l
}

// Request is the ordered set of lines preceding the first blank line.
// Only the first line is interpreted.
type Request struct {
	Lines []string
}

// RequestLine returns the first line of the request.
func (r *Request) RequestLine() string {
	if r == nil || len(r.Lines) == 0 {
		return ""
	}
	return r.Lines[0]
}

// ReadRequest reads lines until the first blank line or the end of the
// stream. Both "\r\n" and "\n" terminate a line.
func ReadRequest(r *bufio.Reader, limits Limits) (*Request, error) {
	limits = limits.withDefaults()

	req := &Request{}
	for {
		line, err := readLine(r, limits.MaxLineBytes)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if line == "" {
			break
		}
		if len(req.Lines) == limits.MaxLines {
			return nil, ErrRequestTooLarge
		}
		req.Lines = append(req.Lines, line)
	}

	if len(req.Lines) == 0 {
		return nil, ErrEmptyRequest
	}
	return req, nil
}

// readLine returns io.EOF only when no bytes of a new line were read.
func readLine(r *bufio.Reader, max int) (string, error) {
	var buf []byte
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(buf) > 0 {
					return string(buf), nil
				}
				return "", io.EOF
			}
			return "", &ReadError{Err: err}
		}
		if len(buf)+len(chunk) > max {
			return "", ErrRequestTooLarge
		}
		buf = append(buf, chunk...)
		if !isPrefix {
			return string(buf), nil
		}
	}
}
