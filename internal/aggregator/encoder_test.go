package aggregator

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"aggregation-gateway/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Helpers
// ==========================

// chunkedBody returns its chunks one Read at a time and then err (io.EOF
// when nil).
type chunkedBody struct {
	chunks []string
	err    error
	closed bool
}

func (b *chunkedBody) Read(p []byte) (int, error) {
	if len(b.chunks) == 0 {
		if b.err != nil {
			return 0, b.err
		}
		return 0, io.EOF
	}
	n := copy(p, b.chunks[0])
	b.chunks[0] = b.chunks[0][n:]
	if b.chunks[0] == "" {
		b.chunks = b.chunks[1:]
	}
	return n, nil
}

func (b *chunkedBody) Close() error {
	b.closed = true
	return nil
}

type brokenWriter struct{ after int }

func (w *brokenWriter) Write(p []byte) (int, error) {
	if w.after <= 0 {
		return 0, errors.New("broken pipe")
	}
	w.after--
	return len(p), nil
}

// ==========================
// Encoder Tests
// ==========================

func TestEncoder_EmptyObject(t *testing.T) {
	rec := httptest.NewRecorder()
	enc := NewEncoder(rec, 0)

	require.NoError(t, enc.BeginObject())
	require.NoError(t, enc.EndObject())
	assert.Equal(t, "{}", rec.Body.String())
	assert.True(t, rec.Flushed)
}

func TestEncoder_EndWithoutBegin(t *testing.T) {
	rec := httptest.NewRecorder()
	enc := NewEncoder(rec, 0)
	require.NoError(t, enc.EndObject())
	require.NoError(t, enc.EndObject())
	assert.Equal(t, "{}", rec.Body.String())
}

func TestEncoder_StreamedMembers(t *testing.T) {
	rec := httptest.NewRecorder()
	enc := NewEncoder(rec, 4)

	require.NoError(t, enc.BeginObject())

	internal := &chunkedBody{chunks: []string{`{"name":"Bob",`, `"id":"1"}`}}
	n, err := enc.WriteMember("bob", models.Success(internal), true)
	require.NoError(t, err)
	assert.Equal(t, int64(len(`{"name":"Bob","id":"1"}`)), n)

	external := &chunkedBody{chunks: []string{"<p class=\"x\">\n", "hi\\</p>"}}
	_, err = enc.WriteMember("page", models.Success(external), false)
	require.NoError(t, err)

	_, err = enc.WriteMember("missing", models.Failed(&models.Failure{Status: intPtr(404), Body: []byte("customer doesn't exist")}), true)
	require.NoError(t, err)

	require.NoError(t, enc.EndObject())

	expected := `{"bob":{"data":{"name":"Bob","id":"1"}},` +
		`"page":{"data":"<p class=\"x\">hi</p>"},` +
		`"missing":{"error":{"status":404,"response":{"message":"customer doesn't exist"}}}}`
	assert.Equal(t, expected, rec.Body.String())
	assert.True(t, json.Valid(rec.Body.Bytes()))
}

func TestEncoder_EscapesMemberNames(t *testing.T) {
	rec := httptest.NewRecorder()
	enc := NewEncoder(rec, 0)

	_, err := enc.WriteMember("we\"ird\nname", models.BufferedSuccess([]byte(`1`)), true)
	require.NoError(t, err)
	require.NoError(t, enc.EndObject())

	var decoded map[string]map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Equal(t, 1, decoded["we\"ird\nname"]["data"])
}

func TestEncoder_EmptyBodies(t *testing.T) {
	rec := httptest.NewRecorder()
	enc := NewEncoder(rec, 0)

	_, err := enc.WriteMember("i", models.Success(&chunkedBody{}), true)
	require.NoError(t, err)
	_, err = enc.WriteMember("e", models.Success(&chunkedBody{}), false)
	require.NoError(t, err)
	require.NoError(t, enc.EndObject())

	assert.Equal(t, `{"i":{"data":null},"e":{"data":""}}`, rec.Body.String())
}

func TestEncoder_FirstReadFailureBecomesErrorMember(t *testing.T) {
	rec := httptest.NewRecorder()
	enc := NewEncoder(rec, 0)

	body := &chunkedBody{err: errors.New("connection reset by peer")}
	_, err := enc.WriteMember("x", models.Success(body), false)
	require.NoError(t, err)
	require.NoError(t, enc.EndObject())

	assert.Equal(t, `{"x":{"error":{"status":null,"response":"connection reset by peer"}}}`, rec.Body.String())
}

func TestEncoder_ExternalInterruptedIsClosed(t *testing.T) {
	rec := httptest.NewRecorder()
	enc := NewEncoder(rec, 0)

	body := &chunkedBody{chunks: []string{"partial"}, err: errors.New("unexpected EOF")}
	_, err := enc.WriteMember("x", models.Success(body), false)

	var interrupted *InterruptedError
	require.ErrorAs(t, err, &interrupted)
	assert.False(t, interrupted.Internal)

	open, _ := enc.MemberOpen()
	assert.False(t, open)

	require.NoError(t, enc.EndObject())
	assert.Equal(t, `{"x":{"data":"partial"}}`, rec.Body.String())
}

func TestEncoder_InternalInterruptedStaysOpen(t *testing.T) {
	rec := httptest.NewRecorder()
	enc := NewEncoder(rec, 0)

	body := &chunkedBody{chunks: []string{`{"a":`}, err: errors.New("unexpected EOF")}
	_, err := enc.WriteMember("x", models.Success(body), true)

	var interrupted *InterruptedError
	require.ErrorAs(t, err, &interrupted)
	assert.True(t, interrupted.Internal)

	open, internal := enc.MemberOpen()
	assert.True(t, open)
	assert.True(t, internal)
	assert.Error(t, enc.CloseTruncated())
}

func TestEncoder_ClientGone(t *testing.T) {
	enc := NewEncoder(&brokenWriter{after: 1}, 0)

	require.NoError(t, enc.BeginObject())
	_, err := enc.WriteMember("x", models.BufferedSuccess([]byte(`{}`)), true)
	assert.ErrorIs(t, err, ErrClientGone)

	_, err = enc.WriteMember("y", models.BufferedSuccess([]byte(`{}`)), true)
	assert.ErrorIs(t, err, ErrClientGone)
}

func TestEncoder_WriteOutputMember(t *testing.T) {
	rec := httptest.NewRecorder()
	enc := NewEncoder(rec, 0)

	errMember := Classify(&models.Failure{Message: "timeout of 5000ms exceeded"}, false)
	require.NoError(t, enc.WriteOutputMember(models.OutputMember{Name: "a", IsInternal: true, Data: []byte(`{"id":"1"}`)}))
	require.NoError(t, enc.WriteOutputMember(models.OutputMember{Name: "b", Data: []byte("line1\nline2")}))
	require.NoError(t, enc.WriteOutputMember(models.OutputMember{Name: "c", Error: &errMember}))
	require.NoError(t, enc.EndObject())

	expected := `{"a":{"data":{"id":"1"}},"b":{"data":"line1line2"},"c":{"error":{"status":null,"response":"timeout of 5000ms exceeded"}}}`
	assert.Equal(t, expected, rec.Body.String())
}

func TestEncoder_ConcurrentMembersStayValid(t *testing.T) {
	rec := httptest.NewRecorder()
	enc := NewEncoder(rec, 0)
	require.NoError(t, enc.BeginObject())

	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		name := strings.Repeat("k", i+1)
		go func() {
			_, _ = enc.WriteMember(name, models.BufferedSuccess([]byte(`{"v":1}`)), true)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 20; i++ {
		<-done
	}
	require.NoError(t, enc.EndObject())

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Len(t, decoded, 20)
}
