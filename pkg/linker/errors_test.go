package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorReporterAccumulates(t *testing.T) {
	r := NewErrorReporter()
	assert.False(t, r.HasErrors())

	r.Add("undefined symbol: %s", "foo")
	r.Add("relocation overflow in %s at offset %d", ".text", 16)

	assert.True(t, r.HasErrors())
	assert.Len(t, r.Messages(), 2)
	assert.Equal(t, "undefined symbol: foo\nrelocation overflow in .text at offset 16", r.Error())
}
