package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustQuestion(t *testing.T, name string, rrtype RRType) Question {
	t.Helper()
	q, err := NewQuestion(name, rrtype, RRClassIN)
	require.NoError(t, err)
	return q
}

func TestNewQuestion_Sections(t *testing.T) {
	q := mustQuestion(t, "www.example.com.", RRTypeAAAA)

	require.Equal(t, 4, q.NameCount())
	assert.Equal(t, 13, q.NameSize())
	assert.Equal(t, []byte("www"), q.Sections[0].Label)
	assert.Equal(t, uint8(7), q.Sections[1].Length)
	assert.True(t, q.Sections[3].IsTerminator())
	assert.Nil(t, q.Sections[3].Label)
	assert.Equal(t, "www.example.com", q.Name())
}

func TestNewQuestion_Root(t *testing.T) {
	q := mustQuestion(t, ".", RRTypeAAAA)
	assert.Equal(t, 1, q.NameCount())
	assert.Equal(t, 0, q.NameSize())
	assert.Equal(t, ".", q.Name())
}

func TestNewQuestion_Invalid(t *testing.T) {
	_, err := NewQuestion("a..b", RRTypeAAAA, RRClassIN)
	assert.Error(t, err)

	long := make([]byte, 64)
	for i := range long {
		long[i] = 'a'
	}
	_, err = NewQuestion(string(long)+".com", RRTypeAAAA, RRClassIN)
	assert.Error(t, err)
}

func TestQuestion_Equal(t *testing.T) {
	base := mustQuestion(t, "example.com", RRTypeAAAA)

	tests := []struct {
		name  string
		other Question
		want  bool
	}{
		{"identical", mustQuestion(t, "example.com", RRTypeAAAA), true},
		{"trailing dot is the same name", mustQuestion(t, "example.com.", RRTypeAAAA), true},
		{"different type", mustQuestion(t, "example.com", RRTypeA), false},
		{"different label bytes", mustQuestion(t, "exbmple.com", RRTypeAAAA), false},
		{"case differs", mustQuestion(t, "Example.com", RRTypeAAAA), false},
		{"extra label", mustQuestion(t, "www.example.com", RRTypeAAAA), false},
		{"same size different split", mustQuestion(t, "examplec.om", RRTypeAAAA), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Equal(tt.other))
			assert.Equal(t, tt.want, tt.other.Equal(base))
		})
	}

	chaos := base.Clone()
	chaos.Class = RRClassCH
	assert.False(t, base.Equal(chaos))
}

func TestQuestion_CloneIsDeep(t *testing.T) {
	q := mustQuestion(t, "example.com", RRTypeAAAA)
	c := q.Clone()
	c.Sections[0].Label[0] = 'X'

	assert.Equal(t, "example.com", q.Name())
	assert.False(t, q.Equal(c))
}
