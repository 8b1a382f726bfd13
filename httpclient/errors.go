package httpclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kbukum/foundation/errors"
	"github.com/kbukum/foundation/response"
)

// ErrorCode classifies a failed exchange.
type ErrorCode string

const (
	// ErrCodeTimeout: the total, connect or read timeout elapsed.
	ErrCodeTimeout ErrorCode = "HTTP_TIMEOUT"
	// ErrCodeConnection: no response was received (refused, DNS, open circuit).
	ErrCodeConnection ErrorCode = "HTTP_CONNECTION"
	// ErrCodeAuth: 401 or 403.
	ErrCodeAuth ErrorCode = "HTTP_AUTH"
	// ErrCodeNotFound: 404.
	ErrCodeNotFound ErrorCode = "HTTP_NOT_FOUND"
	// ErrCodeRateLimit: 429.
	ErrCodeRateLimit ErrorCode = "HTTP_RATE_LIMIT"
	// ErrCodeClient: any other 4xx.
	ErrCodeClient ErrorCode = "HTTP_CLIENT_ERROR"
	// ErrCodeServer: 5xx.
	ErrCodeServer ErrorCode = "HTTP_SERVER_ERROR"
)

// bodySummaryLimit caps how much of a response body an error message quotes.
const bodySummaryLimit = 120

// Error is a failed exchange. Status errors carry the captured response,
// rewound so it can be read again; transport errors carry the cause.
type Error struct {
	Code       ErrorCode
	Method     string
	URL        string
	StatusCode int
	// Message is the status line for status errors and the cause's text
	// otherwise.
	Message   string
	Retryable bool
	// RetryAfter is the delay a 429 or 503 response asked for, zero if none.
	RetryAfter time.Duration
	Response   *response.Envelope
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("httpclient: ")
	if e.Method != "" {
		fmt.Fprintf(&b, "%s %s: ", e.Method, e.URL)
	}
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, "%s response", e.Message)
		if summary := e.summary(); summary != "" {
			fmt.Fprintf(&b, ": %s", summary)
		}
		return b.String()
	}
	fmt.Fprintf(&b, "%s: %s", strings.ToLower(strings.TrimPrefix(string(e.Code), "HTTP_")), e.Message)
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Decode decodes the captured response body, typically an API's error
// document. Transport errors have no body and fail with INVALID_INPUT.
func (e *Error) Decode(format response.Format) (any, error) {
	if e.Response == nil {
		return nil, errors.InvalidInput("response", "error carries no response")
	}
	return response.Decode(e.Response.Rewind(), format)
}

// summary quotes the start of the response body on one line.
func (e *Error) summary() string {
	if e.Response == nil {
		return ""
	}
	text := strings.Join(strings.Fields(string(e.Response.Bytes())), " ")
	if len(text) <= bodySummaryLimit {
		return text
	}
	cut := bodySummaryLimit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + " (truncated...)"
}

// NewTimeoutError wraps a cause that ran out of time.
func NewTimeoutError(err error) *Error {
	return &Error{Code: ErrCodeTimeout, Message: err.Error(), Retryable: true, Err: err}
}

// NewConnectionError wraps a cause that produced no response.
func NewConnectionError(err error) *Error {
	return &Error{Code: ErrCodeConnection, Message: err.Error(), Retryable: true, Err: err}
}

// NewStatusError builds the error for a response whose status is >= 400.
// The envelope is rewound before it is attached.
func NewStatusError(env *response.Envelope) *Error {
	status := env.StatusCode
	e := &Error{
		StatusCode: status,
		Message:    env.Status(),
		Response:   env.Rewind(),
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Code = ErrCodeAuth
	case status == http.StatusNotFound:
		e.Code = ErrCodeNotFound
	case status == http.StatusTooManyRequests:
		e.Code, e.Retryable = ErrCodeRateLimit, true
	case status < 500:
		e.Code = ErrCodeClient
	default:
		e.Code, e.Retryable = ErrCodeServer, true
	}
	if status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable {
		e.RetryAfter = RetryAfter(env.Header, time.Now())
	}
	return e
}

// ClassifyStatus returns the typed error for env, or nil below 400.
func ClassifyStatus(env *response.Envelope) *Error {
	if env == nil || env.StatusCode < 400 {
		return nil
	}
	return NewStatusError(env)
}

// RetryAfter reads a Retry-After header given either as seconds or as an
// HTTP date relative to now. Missing, malformed and past values give zero.
func RetryAfter(h http.Header, now time.Time) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// classifyTransport converts a failed round trip into an *Error. An *Error
// raised by middleware passes through. Cancellation is returned as is.
func classifyTransport(ctx context.Context, err error) error {
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	var netErr net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(stderrors.As(err, &netErr) && netErr.Timeout()) {
		return NewTimeoutError(err)
	}
	if stderrors.Is(err, context.Canceled) {
		return err
	}
	return NewConnectionError(err)
}

// withRequest stamps the request line on err when it is an *Error that
// does not carry one yet.
func withRequest(err error, req *http.Request) error {
	var e *Error
	if req != nil && stderrors.As(err, &e) && e.Method == "" {
		e.Method, e.URL = req.Method, redactedURL(req)
	}
	return err
}

// redactedURL drops userinfo and masks query values.
func redactedURL(req *http.Request) string {
	u := *req.URL
	u.User = nil
	if u.RawQuery != "" {
		q := u.Query()
		for k := range q {
			q[k] = []string{"xxxxx"}
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Code == code
}

// IsTimeout reports whether err is an *Error with ErrCodeTimeout.
func IsTimeout(err error) bool { return hasCode(err, ErrCodeTimeout) }

// IsConnection reports whether err is an *Error with ErrCodeConnection.
func IsConnection(err error) bool { return hasCode(err, ErrCodeConnection) }

// IsAuth reports whether err is a 401 or 403.
func IsAuth(err error) bool { return hasCode(err, ErrCodeAuth) }

// IsNotFound reports whether err is a 404.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsRateLimit reports whether err is a 429.
func IsRateLimit(err error) bool { return hasCode(err, ErrCodeRateLimit) }

// IsClientError reports whether err is a 4xx other than auth, 404 and 429.
func IsClientError(err error) bool { return hasCode(err, ErrCodeClient) }

// IsServerError reports whether err is a 5xx.
func IsServerError(err error) bool { return hasCode(err, ErrCodeServer) }

// IsRetryable reports whether err is an *Error worth retrying.
func IsRetryable(err error) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Retryable
}

// ResponseOf returns the response captured on err, if any.
func ResponseOf(err error) (*response.Envelope, bool) {
	var e *Error
	if stderrors.As(err, &e) && e.Response != nil {
		return e.Response.Rewind(), true
	}
	return nil, false
}
