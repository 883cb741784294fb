// internal/aggregator/escape.go
package aggregator

import "io"

const hexDigits = "0123456789abcdef"

// stringEscaper writes arbitrary bytes as the inside of a JSON string
// literal. Line feeds, carriage returns and backslashes are dropped, double
// quotes are escaped and any other control byte becomes \u00XX. Output goes
// through a fixed scratch buffer so no allocation happens per chunk.
type stringEscaper struct {
	w       io.Writer
	scratch [4096]byte
}

func newStringEscaper(w io.Writer) *stringEscaper {
	return &stringEscaper{w: w}
}

// Write reports len(p) on success even though fewer bytes may reach w.
func (e *stringEscaper) Write(p []byte) (int, error) {
	n := 0
	for _, b := range p {
		if n > len(e.scratch)-6 {
			if _, err := e.w.Write(e.scratch[:n]); err != nil {
				return 0, err
			}
			n = 0
		}
		switch {
		case b == '\n' || b == '\r' || b == '\\':
		case b == '"':
			e.scratch[n] = '\\'
			e.scratch[n+1] = '"'
			n += 2
		case b < 0x20:
			e.scratch[n] = '\\'
			e.scratch[n+1] = 'u'
			e.scratch[n+2] = '0'
			e.scratch[n+3] = '0'
			e.scratch[n+4] = hexDigits[b>>4]
			e.scratch[n+5] = hexDigits[b&0x0f]
			n += 6
		default:
			e.scratch[n] = b
			n++
		}
	}
	if n > 0 {
		if _, err := e.w.Write(e.scratch[:n]); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}
