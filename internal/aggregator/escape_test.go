package aggregator

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func escapeString(t *testing.T, in string) string {
	t.Helper()
	var out bytes.Buffer
	n, err := newStringEscaper(&out).Write([]byte(in))
	require.NoError(t, err)
	assert.Equal(t, len(in), n)
	return out.String()
}

func TestStringEscaper(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain text", "hello world", "hello world"},
		{"strips line breaks", "a\nb\r\nc", "abc"},
		{"strips backslashes", `C:\path\to`, "C:pathto"},
		{"escapes quotes", `say "hi"`, `say \"hi\"`},
		{"escapes other control bytes", "tab\there\x01", `tab\u0009here\u0001`},
		{"keeps utf8", "héllo ✓", "héllo ✓"},
		{"html passes through", "<html><body>x</body></html>", "<html><body>x</body></html>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := escapeString(t, tt.input)
			assert.Equal(t, tt.expected, got)

			var decoded string
			require.NoError(t, json.Unmarshal([]byte(`"`+got+`"`), &decoded))
		})
	}
}

func TestStringEscaper_LargeInputSpansScratch(t *testing.T) {
	input := strings.Repeat("\"\x02ab\n\\", 5000)
	got := escapeString(t, input)

	assert.Equal(t, strings.Repeat(`\"\u0002ab`, 5000), got)
}

func TestStringEscaper_NoAllocations(t *testing.T) {
	chunk := bytes.Repeat([]byte("line \"quoted\"\n\\x\x03"), 2048)
	e := newStringEscaper(discard{})

	allocs := testing.AllocsPerRun(100, func() {
		_, _ = e.Write(chunk)
	})
	assert.Zero(t, allocs)
}

func TestStringEscaper_PropagatesWriteError(t *testing.T) {
	boom := errors.New("boom")
	_, err := newStringEscaper(failingWriter{err: boom}).Write([]byte("abc"))
	assert.ErrorIs(t, err, boom)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

type failingWriter struct{ err error }

func (f failingWriter) Write([]byte) (int, error) { return 0, f.err }
