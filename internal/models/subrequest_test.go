package models

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCloser struct {
	io.Reader
	closes int
}

func (c *countingCloser) Close() error {
	c.closes++
	return nil
}

func TestOutcome_CloseOnce(t *testing.T) {
	body := &countingCloser{Reader: strings.NewReader("x")}
	o := Success(body)

	require.True(t, o.OK())
	assert.NoError(t, o.Close())
	assert.NoError(t, o.Close())
	assert.Equal(t, 1, body.closes)
}

func TestOutcome_FailedAndNil(t *testing.T) {
	o := Failed(&Failure{Message: "boom"})
	assert.False(t, o.OK())
	assert.NoError(t, o.Close())

	var nilOutcome *Outcome
	assert.False(t, nilOutcome.OK())
	assert.NoError(t, nilOutcome.Close())
}

func TestOrderedMembers(t *testing.T) {
	m := NewOrderedMembers(3)
	assert.True(t, m.Add(OutputMember{Name: "bob", Data: []byte(`{"id":"1"}`), IsInternal: true}))
	assert.True(t, m.Add(OutputMember{Name: "ext", Data: []byte("hello")}))
	assert.False(t, m.Add(OutputMember{Name: "bob", Data: []byte(`{}`)}))
	assert.Equal(t, 2, m.Len())

	got, ok := m.Get("bob")
	require.True(t, ok)
	assert.Equal(t, `{"id":"1"}`, string(got.Data))

	var names []string
	require.NoError(t, m.Each(func(om OutputMember) error {
		names = append(names, om.Name)
		return nil
	}))
	assert.Equal(t, []string{"bob", "ext"}, names)

	stop := errors.New("stop")
	visited := 0
	err := m.Each(func(OutputMember) error {
		visited++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, visited)
}
