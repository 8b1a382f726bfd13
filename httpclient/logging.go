package httpclient

import (
	"bytes"
	"net/http"
	"net/http/httputil"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kbukum/foundation/logger"
)

const noValue = "NULL"

// LogMiddleware writes every exchange to log at debug level using
// template. Placeholders: {request} {response} {error} {method} {uri}
// {code} {phrase} {req_headers} {res_headers} {req_body} {res_body} {ts}.
// The response body is restored after it has been dumped.
func LogMiddleware(log *logger.Logger, template string) Middleware {
	if template == "" {
		template = DefaultLogTemplate
	}
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if log == nil || !log.Enabled(zerolog.DebugLevel) {
				return next.RoundTrip(req)
			}

			start := time.Now()
			reqDump, _ := httputil.DumpRequestOut(req, true)
			resp, err := next.RoundTrip(req)

			var resDump []byte
			if resp != nil {
				resDump, _ = httputil.DumpResponse(resp, true)
			}

			msg := formatExchange(template, req, resp, err, reqDump, resDump)
			fields := logger.Fields(
				logger.FieldMethod, req.Method,
				logger.FieldURL, req.URL.String(),
				logger.FieldDuration, time.Since(start).Milliseconds(),
			)
			if resp != nil {
				fields[logger.FieldStatus] = resp.StatusCode
			}
			log.WithContext(req.Context()).Debug(msg, fields)
			return resp, err
		})
	}
}

func formatExchange(template string, req *http.Request, resp *http.Response, err error, reqDump, resDump []byte) string {
	reqHead, reqBody := splitDump(reqDump)
	values := map[string]string{
		"{request}":     string(reqDump),
		"{method}":      req.Method,
		"{uri}":         req.URL.String(),
		"{req_headers}": reqHead,
		"{req_body}":    reqBody,
		"{ts}":          time.Now().UTC().Format(time.RFC3339),
		"{response}":    noValue,
		"{code}":        noValue,
		"{phrase}":      noValue,
		"{res_headers}": noValue,
		"{res_body}":    noValue,
		"{error}":       noValue,
	}
	if resp != nil {
		resHead, resBody := splitDump(resDump)
		values["{response}"] = string(resDump)
		values["{code}"] = strconv.Itoa(resp.StatusCode)
		values["{phrase}"] = strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
		values["{res_headers}"] = resHead
		values["{res_body}"] = resBody
	}
	if err != nil {
		values["{error}"] = err.Error()
	}

	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, k, v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func splitDump(dump []byte) (string, string) {
	head, body, _ := bytes.Cut(dump, []byte("\r\n\r\n"))
	return string(head), string(body)
}
