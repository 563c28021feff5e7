package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapSetAddContains(t *testing.T) {
	s := NewMapSet[string]()
	assert.False(t, s.Contains("a"))

	s.Add("a")
	assert.True(t, s.Contains("a"))
	assert.False(t, s.Contains("b"))

	s.Add("a")
	assert.True(t, s.Contains("a"))
}
