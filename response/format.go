package response

import (
	"strings"

	"github.com/kbukum/foundation/errors"
)

// Format selects how an envelope body is decoded.
type Format string

// Output formats.
const (
	FormatRaw        Format = "raw"
	FormatString     Format = "string"
	FormatArray      Format = "array"
	FormatJSON       Format = "json"
	FormatObject     Format = "object"
	FormatCollection Format = "collection"
)

// DefaultFormat is used when neither the call nor the configuration names one.
const DefaultFormat = FormatCollection

// ParseFormat validates a format name. An empty name yields DefaultFormat.
func ParseFormat(name string) (Format, error) {
	if name == "" {
		return DefaultFormat, nil
	}
	switch f := Format(strings.ToLower(name)); f {
	case FormatRaw, FormatString, FormatArray, FormatJSON, FormatObject, FormatCollection:
		return f, nil
	}
	return "", errors.UnsupportedFormat(name)
}
