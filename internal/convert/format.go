package convert

import (
	"fmt"

	"github.com/tdewolff/minify/v2"
	minjson "github.com/tdewolff/minify/v2/json"
	"github.com/tidwall/pretty"
)

// Format selects the layout of a converted document.
type Format string

// Output layouts.
const (
	// FormatKeep leaves the original layout alone.
	FormatKeep Format = "keep"
	// FormatCompact strips insignificant whitespace.
	FormatCompact Format = "compact"
	// FormatPretty indents the document.
	FormatPretty Format = "pretty"
)

const mediaJSON = "application/json"

var minifier = func() *minify.M {
	m := minify.New()
	m.AddFunc(mediaJSON, minjson.Minify)
	return m
}()

// ParseFormat validates a format name. The empty string means FormatKeep.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return FormatKeep, nil
	case FormatKeep, FormatCompact, FormatPretty:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// Reformat lays out a valid JSON document according to f.
func Reformat(doc []byte, f Format) ([]byte, error) {
	switch f {
	case "", FormatKeep:
		return doc, nil
	case FormatCompact:
		out, err := minifier.Bytes(mediaJSON, doc)
		if err != nil {
			return nil, fmt.Errorf("%w: minify: %v", ErrSerialize, err)
		}
		return out, nil
	case FormatPretty:
		return pretty.Pretty(doc), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", f)
	}
}
