package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cyra/alogparse/internal/format"
	"github.com/itchyny/timefmt-go"
	"github.com/pkg/errors"
)

// Apache access log timestamp, e.g. [10/Oct/2000:13:55:36 -0700].
const apacheTimeLayout = "%d/%b/%Y:%H:%M:%S %z"

var (
	// ErrInvalidTime is wrapped by time post-processing failures.
	ErrInvalidTime = errors.New("invalid timestamp")
	// ErrMalformedRequest is returned for request lines that are not
	// "METHOD URL PROTOCOL".
	ErrMalformedRequest = errors.New("malformed request line")

	requestRe = regexp.MustCompile(`^(\w+) (.+) (\S+)$`)
)

// Request is the first line of an HTTP request split into its parts.
type Request struct {
	Method          string `json:"method"`
	URL             string `json:"url"`
	ProtocolVersion string `json:"protocol_version"`
}

// ParseRequest splits "GET /index.html HTTP/1.1". The URL is everything
// between the method and the last space-delimited token.
func ParseRequest(raw string) (Request, error) {
	m := requestRe.FindStringSubmatch(raw)
	if m == nil {
		return Request{}, errors.Wrapf(ErrMalformedRequest, "%q", raw)
	}
	return Request{Method: m[1], URL: m[2], ProtocolVersion: m[3]}, nil
}

func processRequest(_ format.Field, raw string) (any, error) {
	return ParseRequest(raw)
}

// ParseTime parses an Apache access log timestamp; the surrounding brackets
// are optional.
func ParseTime(raw string) (time.Time, error) {
	return parseTimeLayout(strings.TrimSuffix(strings.TrimPrefix(raw, "["), "]"), apacheTimeLayout)
}

func processTime(f format.Field, raw string) (any, error) {
	d := f.Directive
	if d.Kind != format.Brace || d.Type != 't' {
		return ParseTime(raw)
	}

	layout := strings.TrimPrefix(strings.TrimPrefix(d.Param, "begin:"), "end:")
	switch layout {
	case "sec", "msec", "usec":
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidTime, "%q is not a %s timestamp", raw, layout)
		}
		switch layout {
		case "sec":
			return time.Unix(n, 0), nil
		case "msec":
			return time.UnixMilli(n), nil
		default:
			return time.UnixMicro(n), nil
		}
	case "msec_frac", "usec_frac":
		// A sub-second component only; there is no instant to build.
		return raw, nil
	case "":
		return ParseTime(raw)
	}
	return parseTimeLayout(strings.TrimSuffix(strings.TrimPrefix(raw, "["), "]"), layout)
}

func parseTimeLayout(value, layout string) (time.Time, error) {
	t, err := timefmt.Parse(value, layout)
	if err != nil {
		return time.Time{}, errors.Wrapf(ErrInvalidTime, "%v", err)
	}
	return t, nil
}
