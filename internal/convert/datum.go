package convert

import (
	"fmt"

	"github.com/woozymasta/gcjconv/internal/geo"

	"github.com/rs/zerolog/log"
)

// Options tune Datums.
type Options struct {
	// Format of the returned document.
	Format Format
	// Strict turns an unsupported datum pair into an error instead of a no-op.
	Strict bool
	// Approximate uses the single-step GCJ02 to WGS84 inverse.
	Approximate bool
}

// Datums converts doc between two datum tags ("WGS84", "GCJ02").
//
// Invalid JSON always fails. An unsupported pair returns the document with
// every coordinate unchanged and a warning in the log, unless opts.Strict
// is set, in which case geo.ErrUnsupportedPair is returned.
func Datums(doc []byte, source, target string, opts Options) ([]byte, Stats, error) {
	if err := Validate(doc); err != nil {
		return nil, Stats{}, err
	}

	selectFn := geo.SelectTransform
	if opts.Approximate {
		selectFn = geo.SelectApproximate
	}

	var (
		out   []byte
		stats Stats
		err   error
	)

	fn, ok := selectFn(geo.Datum(source), geo.Datum(target))
	if !ok {
		if opts.Strict {
			return nil, Stats{}, fmt.Errorf("%w: %s -> %s", geo.ErrUnsupportedPair, source, target)
		}
		log.Warn().
			Str("source", source).
			Str("target", target).
			Msg("Unsupported conversion, coordinates left unchanged")
		out, stats = doc, Stats{Unsupported: true}
	} else {
		out, stats, err = Document(doc, fn)
		if err != nil {
			return nil, stats, err
		}
	}

	out, err = Reformat(out, opts.Format)
	if err != nil {
		return nil, stats, err
	}

	return out, stats, nil
}
