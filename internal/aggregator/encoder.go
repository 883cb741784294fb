// internal/aggregator/encoder.go
package aggregator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	apperrors "aggregation-gateway/internal/common/errors"
	"aggregation-gateway/internal/models"
)

// ErrClientGone is returned once a write to the client has failed.
var ErrClientGone = errors.New("client connection lost")

// InterruptedError reports a body that failed after its member was opened.
// External members are closed as a truncated string before it is returned;
// internal members are left open and the aggregate cannot continue.
type InterruptedError struct {
	Name     string
	Internal bool
	Err      error
}

func (e *InterruptedError) Error() string {
	return fmt.Sprintf("member %q interrupted: %v", e.Name, e.Err)
}

func (e *InterruptedError) Unwrap() error { return e.Err }

// Encoder writes the aggregate object incrementally. Writes are serialized
// by mu, which also guards the separator state.
type Encoder struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
	escaper *stringEscaper
	pool    *sync.Pool

	begun  bool
	first  bool
	ended  bool
	broken bool

	open         bool
	openInternal bool
}

// NewEncoder wraps w. When w is an http.Flusher, output is flushed after
// every member and every forwarded chunk.
func NewEncoder(w io.Writer, chunkSize int) *Encoder {
	if chunkSize <= 0 {
		chunkSize = 32 * 1024
	}
	enc := &Encoder{
		w:     w,
		first: true,
		pool:  chunkPool(chunkSize),
	}
	if f, ok := w.(http.Flusher); ok {
		enc.flusher = f
	}
	enc.escaper = newStringEscaper(errWriter{enc})
	return enc
}

var (
	poolsMu sync.Mutex
	pools   = map[int]*sync.Pool{}
)

func chunkPool(size int) *sync.Pool {
	poolsMu.Lock()
	defer poolsMu.Unlock()
	if p, ok := pools[size]; ok {
		return p
	}
	p := &sync.Pool{New: func() any {
		buf := make([]byte, size)
		return &buf
	}}
	pools[size] = p
	return p
}

// BeginObject writes the opening brace once.
func (e *Encoder) BeginObject() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.begun {
		return nil
	}
	e.begun = true
	return e.write([]byte{'{'})
}

// EndObject closes the object and flushes.
func (e *Encoder) EndObject() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ended {
		return nil
	}
	if !e.begun {
		e.begun = true
		if err := e.write([]byte{'{'}); err != nil {
			return err
		}
	}
	e.ended = true
	if err := e.write([]byte{'}'}); err != nil {
		return err
	}
	e.flush()
	return nil
}

// MemberOpen reports whether a member has been started but not finished,
// and whether it is an internal one.
func (e *Encoder) MemberOpen() (open, internal bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.open, e.openInternal
}

// CloseTruncated terminates an open external member so the object stays
// valid. It fails for internal members, whose raw JSON cannot be closed.
func (e *Encoder) CloseTruncated() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.open {
		return nil
	}
	if e.openInternal {
		return errors.New("internal member cannot be truncated")
	}
	return e.closeMember(false)
}

// WriteMember writes one member from a fetch outcome. Streamed bodies are
// copied through a pooled buffer. The first chunk is read before anything
// is written, so a body that fails immediately still becomes an error member.
func (e *Encoder) WriteMember(name string, outcome *models.Outcome, isInternal bool) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case outcome == nil:
		return 0, e.writeErrorMember(name, Classify(faultFailure(), isInternal))
	case outcome.Failure != nil:
		return 0, e.writeErrorMember(name, Classify(outcome.Failure, isInternal))
	case outcome.Body == nil:
		return int64(len(outcome.Data)), e.writeDataMember(name, outcome.Data, isInternal)
	}

	bufPtr := e.pool.Get().(*[]byte)
	defer e.pool.Put(bufPtr)
	buf := *bufPtr

	n, rerr := readSome(outcome.Body, buf)
	if rerr != nil && rerr != io.EOF && n == 0 {
		return 0, e.writeErrorMember(name, Classify(FailureFromError(rerr), isInternal))
	}

	if err := e.openMember(name, isInternal); err != nil {
		return 0, err
	}
	var total int64
	if n == 0 && rerr == io.EOF && isInternal {
		if err := e.write([]byte("null")); err != nil {
			return 0, err
		}
	}

	for {
		if n > 0 {
			if err := e.writeChunk(buf[:n], isInternal); err != nil {
				return total, err
			}
			total += int64(n)
			e.flush()
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return total, e.interrupted(name, isInternal, rerr)
		}
		n, rerr = outcome.Body.Read(buf)
	}

	return total, e.closeMember(isInternal)
}

// readSome reads until at least one byte or an error arrives.
func readSome(r io.Reader, buf []byte) (int, error) {
	for {
		n, err := r.Read(buf)
		if n > 0 || err != nil {
			return n, err
		}
	}
}

// WriteOutputMember writes a member that was fully materialized beforehand.
func (e *Encoder) WriteOutputMember(m models.OutputMember) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if m.Error != nil {
		return e.writeErrorMember(m.Name, *m.Error)
	}
	return e.writeDataMember(m.Name, m.Data, m.IsInternal)
}

func (e *Encoder) interrupted(name string, isInternal bool, cause error) error {
	ierr := &InterruptedError{Name: name, Internal: isInternal, Err: cause}
	if !isInternal {
		if err := e.closeMember(false); err != nil {
			return err
		}
	}
	return ierr
}

func (e *Encoder) writeDataMember(name string, data []byte, isInternal bool) error {
	if err := e.openMember(name, isInternal); err != nil {
		return err
	}
	if isInternal && len(data) == 0 {
		data = []byte("null")
	}
	if err := e.writeChunk(data, isInternal); err != nil {
		return err
	}
	return e.closeMember(isInternal)
}

func (e *Encoder) writeErrorMember(name string, member models.ErrorMember) error {
	payload, err := json.Marshal(member)
	if err != nil {
		payload, _ = json.Marshal(Classify(faultFailure(), false))
	}
	if err := e.writeKey(name); err != nil {
		return err
	}
	if err := e.write([]byte(`{"error":`)); err != nil {
		return err
	}
	if err := e.write(payload); err != nil {
		return err
	}
	if err := e.write([]byte{'}'}); err != nil {
		return err
	}
	e.flush()
	return nil
}

func (e *Encoder) openMember(name string, isInternal bool) error {
	if err := e.writeKey(name); err != nil {
		return err
	}
	prefix := `{"data":`
	if !isInternal {
		prefix = `{"data":"`
	}
	if err := e.write([]byte(prefix)); err != nil {
		return err
	}
	e.open = true
	e.openInternal = isInternal
	return nil
}

func (e *Encoder) closeMember(isInternal bool) error {
	suffix := "}"
	if !isInternal {
		suffix = `"}`
	}
	e.open = false
	e.openInternal = false
	if err := e.write([]byte(suffix)); err != nil {
		return err
	}
	e.flush()
	return nil
}

// writeKey emits the separator, when needed, and the quoted member name.
func (e *Encoder) writeKey(name string) error {
	if !e.begun {
		e.begun = true
		if err := e.write([]byte{'{'}); err != nil {
			return err
		}
	}
	key, err := json.Marshal(name)
	if err != nil {
		return apperrors.NewInternalFaultError(err)
	}
	if !e.first {
		if err := e.write([]byte{','}); err != nil {
			return err
		}
	}
	e.first = false
	if err := e.write(key); err != nil {
		return err
	}
	return e.write([]byte{':'})
}

func (e *Encoder) writeChunk(p []byte, isInternal bool) error {
	if isInternal {
		return e.write(p)
	}
	_, err := e.escaper.Write(p)
	return err
}

func (e *Encoder) write(p []byte) error {
	if e.broken {
		return ErrClientGone
	}
	if _, err := e.w.Write(p); err != nil {
		e.broken = true
		return fmt.Errorf("%w: %v", ErrClientGone, err)
	}
	return nil
}

func (e *Encoder) flush() {
	if e.flusher != nil && !e.broken {
		e.flusher.Flush()
	}
}

// errWriter routes escaped output through write so client failures are
// recorded. Callers already hold mu.
type errWriter struct{ e *Encoder }

func (w errWriter) Write(p []byte) (int, error) {
	if err := w.e.write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}
