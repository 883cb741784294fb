// internal/models/subrequest.go
package models

import (
	"encoding/json"
	"io"
	"sync"

	apperrors "aggregation-gateway/internal/common/errors"
)

// SubRequestSpec is one name=target pair taken from the /multiple query.
type SubRequestSpec struct {
	Name      string
	RawTarget string
}

// ResolvedTarget is a SubRequestSpec with its final URL. Internal targets are
// paths served by the gateway itself.
type ResolvedTarget struct {
	Name       string
	URL        string
	IsInternal bool
}

// Failure describes a sub-request that produced no usable payload.
// Status is nil for transport failures and timeouts.
type Failure struct {
	Status  *int
	Message string
	Body    []byte
	Code    apperrors.ErrorCode
}

// Outcome is the single result of fetching one target. Exactly one of Body,
// Data and Failure is meaningful: Body for a streamed success, Data for a
// buffered success.
type Outcome struct {
	Body    io.ReadCloser
	Data    []byte
	Failure *Failure

	closeOnce sync.Once
}

func Success(body io.ReadCloser) *Outcome {
	return &Outcome{Body: body}
}

func BufferedSuccess(data []byte) *Outcome {
	return &Outcome{Data: data}
}

func Failed(f *Failure) *Outcome {
	return &Outcome{Failure: f}
}

func (o *Outcome) OK() bool {
	return o != nil && o.Failure == nil
}

// Close releases the streamed body. Safe to call more than once.
func (o *Outcome) Close() error {
	if o == nil || o.Body == nil {
		return nil
	}
	var err error
	o.closeOnce.Do(func() {
		err = o.Body.Close()
	})
	return err
}

// ErrorMember is the value under "error" in a failed output member.
type ErrorMember struct {
	Status   *int            `json:"status"`
	Response json.RawMessage `json:"response"`
}

// OutputMember is a fully materialized member of the aggregate object.
// Data holds raw JSON for internal targets and plain text for external ones.
type OutputMember struct {
	Name       string
	IsInternal bool
	Data       []byte
	Error      *ErrorMember
}

// OrderedMembers keeps output members in insertion order with unique names.
type OrderedMembers struct {
	names   []string
	members map[string]OutputMember
}

func NewOrderedMembers(capacity int) *OrderedMembers {
	return &OrderedMembers{
		names:   make([]string, 0, capacity),
		members: make(map[string]OutputMember, capacity),
	}
}

// Add appends m unless its name is already present.
func (o *OrderedMembers) Add(m OutputMember) bool {
	if _, exists := o.members[m.Name]; exists {
		return false
	}
	o.names = append(o.names, m.Name)
	o.members[m.Name] = m
	return true
}

func (o *OrderedMembers) Get(name string) (OutputMember, bool) {
	m, ok := o.members[name]
	return m, ok
}

func (o *OrderedMembers) Len() int {
	return len(o.names)
}

// Each visits members in insertion order and stops at the first error.
func (o *OrderedMembers) Each(fn func(OutputMember) error) error {
	for _, name := range o.names {
		if err := fn(o.members[name]); err != nil {
			return err
		}
	}
	return nil
}
