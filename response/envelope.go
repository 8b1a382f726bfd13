// Package response captures HTTP responses as rewindable envelopes and
// negotiates them into the representation a caller asks for.
package response

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Envelope is an immutable snapshot of an HTTP response whose body can be
// read any number of times.
type Envelope struct {
	StatusCode int
	Reason     string
	Proto      string
	Header     http.Header
	Body       *Body
}

// New creates an envelope from its parts. A nil header is replaced by an
// empty one.
func New(status int, header http.Header, body []byte) *Envelope {
	if header == nil {
		header = make(http.Header)
	}
	return &Envelope{
		StatusCode: status,
		Reason:     http.StatusText(status),
		Proto:      "HTTP/1.1",
		Header:     header,
		Body:       NewBody(body),
	}
}

// FromHTTP reads and closes resp.Body and captures resp as an envelope.
func FromHTTP(resp *http.Response) (*Envelope, error) {
	var data []byte
	if resp.Body != nil {
		defer resp.Body.Close()
		var err error
		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
	}
	env := New(resp.StatusCode, resp.Header.Clone(), data)
	if resp.Proto != "" {
		env.Proto = resp.Proto
	}
	if _, reason, ok := strings.Cut(resp.Status, " "); ok {
		env.Reason = reason
	}
	return env, nil
}

// Contents returns the whole body as a string. The read position is reset
// before and after reading.
func (e *Envelope) Contents() string {
	return string(e.Bytes())
}

// Bytes returns a copy of the whole body.
func (e *Envelope) Bytes() []byte {
	if e.Body == nil {
		return nil
	}
	return bytes.Clone(e.Body.data)
}

// Rewind resets the body read position to the start.
func (e *Envelope) Rewind() *Envelope {
	if e.Body != nil {
		e.Body.Rewind()
	}
	return e
}

// ContentType returns the Content-Type header line.
func (e *Envelope) ContentType() string {
	return e.Header.Get("Content-Type")
}

// Status returns the status line, e.g. "404 Not Found".
func (e *Envelope) Status() string {
	return fmt.Sprintf("%d %s", e.StatusCode, e.Reason)
}

// HTTPResponse returns a *http.Response view of the envelope with its own
// body reader. Reading it does not move the envelope's body.
func (e *Envelope) HTTPResponse() *http.Response {
	major, minor, ok := http.ParseHTTPVersion(e.Proto)
	if !ok {
		major, minor = 1, 1
	}
	body := e.Bytes()
	return &http.Response{
		Status:        e.Status(),
		StatusCode:    e.StatusCode,
		Proto:         e.Proto,
		ProtoMajor:    major,
		ProtoMinor:    minor,
		Header:        e.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}

// Decode negotiates the envelope into format. See Decode.
func (e *Envelope) Decode(format Format) (any, error) {
	return Decode(e, format)
}

// Body is a seekable in-memory response body.
type Body struct {
	data []byte
	r    *bytes.Reader
}

// NewBody creates a body over data. The slice is not copied and must not
// be modified afterwards.
func NewBody(data []byte) *Body {
	return &Body{data: data, r: bytes.NewReader(data)}
}

func (b *Body) Read(p []byte) (int, error) { return b.r.Read(p) }

func (b *Body) Seek(offset int64, whence int) (int64, error) { return b.r.Seek(offset, whence) }

// Close is a no-op; the body stays readable.
func (b *Body) Close() error { return nil }

// Rewind resets the read position to the start.
func (b *Body) Rewind() { b.r.Reset(b.data) }

// Len returns the total body size.
func (b *Body) Len() int { return len(b.data) }

// Unread returns the number of bytes left before the read position hits
// the end.
func (b *Body) Unread() int { return b.r.Len() }

var _ io.ReadSeekCloser = (*Body)(nil)
