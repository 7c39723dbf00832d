package static

import (
	"fmt"
	"io"
	"strconv"

	"github.com/valyala/bytebufferpool"
)

// Status is one of the fixed response statuses.
type Status struct {
	Code   int
	Reason string
}

var (
	StatusOK         = Status{Code: 200, Reason: "OK"}
	StatusNotFound   = Status{Code: 404, Reason: "NOT FOUND"}
	StatusBadRequest = Status{Code: 400, Reason: "BAD REQUEST"}
)

// Line returns the status line without its terminator.
func (s Status) Line() string {
	return "HTTP/1.1 " + strconv.Itoa(s.Code) + " " + s.Reason
}

// StatusFor returns the fixed status for code.
func StatusFor(code int) (Status, bool) {
	switch code {
	case StatusOK.Code:
		return StatusOK, true
	case StatusNotFound.Code:
		return StatusNotFound, true
	case StatusBadRequest.Code:
		return StatusBadRequest, true
	}
	return Status{}, false
}

// WriteError is returned when a response could not be written in full.
// Nothing is retried.
type WriteError struct {
	Written int
	Total   int
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("static: write response: %d/%d bytes: %v", e.Written, e.Total, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Response is a status plus payload.
type Response struct {
	Status Status
	Body   []byte
}

// WriteTo writes "<status-line>\r\nContent-Length: <N>\r\n\r\n<body>" with a
// single Write call. N is always len(Body).
func (r Response) WriteTo(w io.Writer) (int64, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString(r.Status.Line())
	buf.WriteString("\r\nContent-Length: ")
	buf.B = strconv.AppendInt(buf.B, int64(len(r.Body)), 10)
	buf.WriteString("\r\n\r\n")
	buf.Write(r.Body)

	n, err := w.Write(buf.B)
	if err == nil && n < buf.Len() {
		err = io.ErrShortWrite
	}
	if err != nil {
		return int64(n), &WriteError{Written: n, Total: buf.Len(), Err: err}
	}
	return int64(n), nil
}
