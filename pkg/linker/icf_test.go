package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCIdentifier(t *testing.T) {
	assert.True(t, isCIdentifier("main"))
	assert.True(t, isCIdentifier("_start"))
	assert.True(t, isCIdentifier("foo_bar123"))
	assert.False(t, isCIdentifier("9lives"))
	assert.False(t, isCIdentifier(".text"))
	assert.False(t, isCIdentifier(""))
	assert.False(t, isCIdentifier("foo.bar"))
}

func TestPackNumberIsUnique(t *testing.T) {
	a := packNumber(1)
	b := packNumber(2)
	assert.NotEqual(t, a, b)
	assert.Equal(t, packNumber(42), packNumber(42))
}

func TestDigestLess(t *testing.T) {
	a := Digest{0x01}
	b := Digest{0x02}
	assert.True(t, a.less(b))
	assert.False(t, b.less(a))
	assert.False(t, a.less(a))
}

func TestCountClasses(t *testing.T) {
	digests := []Digest{{0x01}, {0x01}, {0x02}, {0x03}, {0x03}}
	assert.Equal(t, int64(2), countClasses(digests, len(digests)))

	same := []Digest{{0x01}, {0x01}, {0x01}}
	assert.Equal(t, int64(0), countClasses(same, len(same)))

	assert.Equal(t, int64(0), countClasses(digests, 1))
}
